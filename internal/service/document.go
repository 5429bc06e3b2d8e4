package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"docmanager/internal/model"
	"docmanager/internal/notify"
	"docmanager/internal/query"
	"docmanager/internal/storage"
	"docmanager/internal/store"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrNotFound      = errors.New("document not found")
	ErrConflict      = errors.New("document is running and cannot be deleted")
	ErrInvalidStatus = errors.New("invalid status")
	ErrReaderNil     = errors.New("reader is nil")
)

// DocumentService defines the use cases for handling documents: creation via
// upload, listing, status transitions, and the asynchronous deletion flow.
type DocumentService interface {
	// Upload stores the content in object storage, persists a pending record,
	// and rolls back the stored object if the record write fails.
	// originalFilename is kept as metadata; the object key is derived from the
	// generated document id plus the original extension.
	Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// List returns one cursor-paginated page for the given status filter
	// (a status value or model.StatusAll).
	List(ctx context.Context, filter string, cursor string) (*query.Page, error)

	// UpdateStatus persists the new status and returns the updated record.
	// Legality of the target state is the caller's responsibility; only the
	// deletion path guards transitions.
	UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Document, error)

	// RequestDeletion removes the stored object and transitions the record to
	// deleting. Documents in running state cannot be deleted (ErrConflict).
	RequestDeletion(ctx context.Context, id string) (*model.Document, error)

	// FinalizeDeletion permanently removes the document record. Finalizing an
	// id that no longer exists is a no-op.
	FinalizeDeletion(ctx context.Context, id string) error
}

// sweeper is the reconciliation loop handle the deletion path pokes; the
// service only needs to be able to (re)start it.
type sweeper interface {
	EnsureRunning()
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store      store.RecordStore
	objects    storage.Storage
	engine     *query.Engine
	broadcast  notify.Broadcaster
	reconciler sweeper
	log        *slog.Logger
}

// NewDocumentService constructs a new DocumentService. reconciler may be nil
// (the deletion path then runs without a background sweep, as in tests).
func NewDocumentService(st store.RecordStore, objects storage.Storage, broadcast notify.Broadcaster, reconciler sweeper, log *slog.Logger) DocumentService {
	return &documentService{
		store:      st,
		objects:    objects,
		engine:     query.NewEngine(st),
		broadcast:  broadcast,
		reconciler: reconciler,
		log:        log,
	}
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	id := uuid.New().String()
	ext := filepath.Ext(originalFilename)
	key := filepath.ToSlash(filepath.Join("documents", id+ext))

	objInfo, err := s.objects.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ID:          id,
		FileName:    originalFilename,
		StoragePath: objInfo.Key,
		Size:        objInfo.Size,
		MimeType:    contentType,
		Status:      model.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	stored, err := s.store.Put(ctx, doc)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("record save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("record save failed: %w", err)
	}
	return stored, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) List(ctx context.Context, filter string, cursor string) (*query.Page, error) {
	return s.engine.List(ctx, filter, cursor)
}

func (s *documentService) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	doc, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.broadcast.Broadcast(ctx, doc)
	return doc, nil
}

// RequestDeletion deletes the stored object first, so a deleting record never
// points at content that was not removed; a storage failure leaves the record
// in its prior state and the operation retryable. The transition itself is a
// guarded write: if the document slips to running between the read and the
// update, the transition fails with ErrConflict instead of proceeding.
func (s *documentService) RequestDeletion(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if doc.Status == model.StatusRunning {
		return nil, ErrConflict
	}

	if err := s.objects.Delete(ctx, doc.StoragePath); err != nil {
		return nil, fmt.Errorf("delete storage: %w", err)
	}

	updated, err := s.store.UpdateStatusGuarded(ctx, id, model.StatusDeleting, model.StatusRunning)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrStatusGuard):
			return nil, ErrConflict
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.broadcast.Broadcast(ctx, updated)
	if s.reconciler != nil {
		s.reconciler.EnsureRunning()
	}
	return updated, nil
}

func (s *documentService) FinalizeDeletion(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	s.log.Info("finalizing document deletion", "document_id", id)
	return s.store.Delete(ctx, id)
}
