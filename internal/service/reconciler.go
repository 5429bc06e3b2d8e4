package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"docmanager/internal/model"
	"docmanager/internal/store"
)

// sweepBatch caps how many deleted records one tick finalizes. Anything beyond
// the batch stays in the partition and is picked up by the next tick.
const sweepBatch = 100

// Reconciler is the background loop that finalizes asynchronous deletions.
// It sweeps the deleted partition, removes those records, and keeps itself
// alive only while deletion work remains: the loop is started lazily by the
// first successful deletion request and stops once it observes neither
// deleted nor deleting documents.
//
// At most one loop is active at a time; EnsureRunning collapses concurrent
// starts. Per-document failures are logged and retried on the next tick, so
// finalization is at-least-once.
type Reconciler struct {
	store    store.RecordStore
	interval time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	sweepsTotal    prometheus.Counter
	finalizedTotal prometheus.Counter
	errorsTotal    prometheus.Counter
}

// NewReconciler constructs a reconciler sweeping at the given interval.
// reg may be nil to skip metrics registration (tests).
func NewReconciler(st store.RecordStore, interval time.Duration, log *slog.Logger, reg prometheus.Registerer) *Reconciler {
	r := &Reconciler{
		store:    st,
		interval: interval,
		log:      log,
		sweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reconciler_sweeps_total",
			Help: "Total number of reconciliation sweep ticks.",
		}),
		finalizedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reconciler_finalized_total",
			Help: "Total number of document records finalized by the reconciler.",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reconciler_errors_total",
			Help: "Total number of errors absorbed during reconciliation sweeps.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.sweepsTotal, r.finalizedTotal, r.errorsTotal)
	}
	return r
}

// EnsureRunning starts the loop if it is not already active. Safe to call
// concurrently; only one loop instance ever runs.
func (r *Reconciler) EnsureRunning() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.wg.Add(1)
	r.log.Info("reconciler starting")
	go r.run(r.stopCh)
}

// Running reports whether a loop instance is currently active.
func (r *Reconciler) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Stop terminates an active loop and waits for it to exit. Calling Stop on an
// idle reconciler is a no-op.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if r.running {
		r.running = false
		close(r.stopCh)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Reconciler) run(stopCh chan struct{}) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.interval)
			remaining := r.sweep(ctx)
			cancel()
			if remaining {
				continue
			}
			r.mu.Lock()
			// Only clear the flag if this goroutine is still the registered
			// loop; a Stop/EnsureRunning pair may have replaced it mid-sweep.
			if r.stopCh == stopCh {
				r.running = false
			}
			r.mu.Unlock()
			r.log.Info("reconciler idle, stopping")
			return
		}
	}
}

// sweep performs one tick and reports whether deletion work remains. Store
// failures keep the loop alive so the next tick retries.
func (r *Reconciler) sweep(ctx context.Context) bool {
	r.sweepsTotal.Inc()

	deleted, err := r.store.QueryByStatus(ctx, model.StatusDeleted, sweepBatch, nil, true)
	if err != nil {
		r.errorsTotal.Inc()
		r.log.Error("reconciler: query deleted partition", "error", err)
		return true
	}

	remaining := deleted.NextKey != nil
	for _, doc := range deleted.Items {
		if err := r.store.Delete(ctx, doc.ID); err != nil {
			r.errorsTotal.Inc()
			r.log.Error("reconciler: finalize deletion", "document_id", doc.ID, "error", err)
			// The record stays in the deleted partition and is retried next tick.
			remaining = true
			continue
		}
		r.finalizedTotal.Inc()
		r.log.Info("reconciler: finalized document", "document_id", doc.ID)
	}

	deleting, err := r.store.QueryByStatus(ctx, model.StatusDeleting, 1, nil, true)
	if err != nil {
		r.errorsTotal.Inc()
		r.log.Error("reconciler: query deleting partition", "error", err)
		return true
	}
	if len(deleting.Items) > 0 {
		remaining = true
	}
	return remaining
}
