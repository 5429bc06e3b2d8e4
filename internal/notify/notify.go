package notify

import (
	"context"
	"log/slog"

	"docmanager/internal/model"
)

// Broadcaster receives every document status transition. The core does not
// know how many listeners exist or whether delivery succeeds; implementations
// must not block the calling request path for long.
type Broadcaster interface {
	Broadcast(ctx context.Context, doc *model.Document)
}

// LogBroadcaster is the default Broadcaster: it only logs transitions. A real
// deployment would replace it with a push channel to subscribers.
type LogBroadcaster struct {
	log *slog.Logger
}

// NewLogBroadcaster creates a Broadcaster that writes transitions to the logger.
func NewLogBroadcaster(log *slog.Logger) *LogBroadcaster {
	return &LogBroadcaster{log: log}
}

func (b *LogBroadcaster) Broadcast(_ context.Context, doc *model.Document) {
	b.log.Info("document transition",
		"document_id", doc.ID,
		"status", string(doc.Status),
	)
}
