package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"docmanager/internal/model"
	"docmanager/internal/store"
)

// sweepStore is a minimal in-memory RecordStore for driving the reconciler.
// Failures can be injected per document id.
type sweepStore struct {
	mu      sync.Mutex
	docs    map[string]*model.Document
	failIDs map[string]error

	deletes int
}

func newSweepStore() *sweepStore {
	return &sweepStore{
		docs:    make(map[string]*model.Document),
		failIDs: make(map[string]error),
	}
}

func (s *sweepStore) add(id string, status model.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = &model.Document{ID: id, Status: status, CreatedAt: time.Now().UTC()}
}

func (s *sweepStore) count(status model.Status) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.docs {
		if d.Status == status {
			n++
		}
	}
	return n
}

func (s *sweepStore) Put(ctx context.Context, doc *model.Document) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return doc, nil
}

func (s *sweepStore) Get(ctx context.Context, id string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

func (s *sweepStore) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	doc.Status = status
	return doc, nil
}

func (s *sweepStore) UpdateStatusGuarded(ctx context.Context, id string, status, forbidden model.Status) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if doc.Status == forbidden {
		return nil, store.ErrStatusGuard
	}
	doc.Status = status
	return doc, nil
}

func (s *sweepStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if err, ok := s.failIDs[id]; ok {
		return err
	}
	delete(s.docs, id)
	return nil
}

func (s *sweepStore) QueryByStatus(ctx context.Context, status model.Status, limit int, startKey *store.ContinuationKey, descending bool) (*store.QueryPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []model.Document
	for _, d := range s.docs {
		if d.Status == status {
			items = append(items, *d)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	page := &store.QueryPage{}
	if len(items) > limit {
		page.Items = items[:limit]
		page.NextKey = &store.ContinuationKey{CreatedAt: items[limit-1].CreatedAt, ID: items[limit-1].ID}
	} else {
		page.Items = items
	}
	return page, nil
}

func TestReconciler_SweepsUntilIdle(t *testing.T) {
	st := newSweepStore()
	st.add("doc-1", model.StatusDeleted)
	st.add("doc-2", model.StatusDeleted)
	st.add("doc-3", model.StatusFinished)

	r := NewReconciler(st, 5*time.Millisecond, testLogger(), nil)
	r.EnsureRunning()
	assert.True(t, r.Running())

	assert.Eventually(t, func() bool {
		return st.count(model.StatusDeleted) == 0 && !r.Running()
	}, 2*time.Second, 5*time.Millisecond, "reconciler should finalize deleted records and stop itself")

	// Untouched records survive the sweep.
	assert.Equal(t, 1, st.count(model.StatusFinished))
}

func TestReconciler_StaysAliveWhileDeleting(t *testing.T) {
	st := newSweepStore()
	st.add("doc-1", model.StatusDeleting)

	r := NewReconciler(st, 5*time.Millisecond, testLogger(), nil)
	r.EnsureRunning()

	// Nothing to finalize yet, but a deleting record keeps the loop alive.
	time.Sleep(50 * time.Millisecond)
	assert.True(t, r.Running())

	// Once the record reaches deleted, the loop finalizes it and stops.
	_, err := st.UpdateStatus(context.Background(), "doc-1", model.StatusDeleted)
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		return st.count(model.StatusDeleted) == 0 && !r.Running()
	}, 2*time.Second, 5*time.Millisecond)
}

func TestReconciler_RetriesFailedFinalization(t *testing.T) {
	st := newSweepStore()
	st.add("doc-1", model.StatusDeleted)
	st.add("doc-2", model.StatusDeleted)
	st.failIDs["doc-1"] = errors.New("transient store failure")

	r := NewReconciler(st, 5*time.Millisecond, testLogger(), nil)
	r.EnsureRunning()

	// doc-2 is finalized despite doc-1 failing; the loop stays up retrying.
	assert.Eventually(t, func() bool {
		st.mu.Lock()
		_, doc1Alive := st.docs["doc-1"]
		_, doc2Alive := st.docs["doc-2"]
		retried := st.deletes >= 3
		st.mu.Unlock()
		return doc1Alive && !doc2Alive && retried
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, r.Running())

	// Clearing the fault lets the loop drain and stop.
	st.mu.Lock()
	delete(st.failIDs, "doc-1")
	st.mu.Unlock()

	assert.Eventually(t, func() bool {
		return st.count(model.StatusDeleted) == 0 && !r.Running()
	}, 2*time.Second, 5*time.Millisecond)
}

func TestReconciler_EnsureRunningCollapsesConcurrentStarts(t *testing.T) {
	st := newSweepStore()
	st.add("doc-1", model.StatusDeleting)

	r := NewReconciler(st, time.Hour, testLogger(), nil)
	defer r.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.EnsureRunning()
		}()
	}
	wg.Wait()

	assert.True(t, r.Running())
	r.Stop()
	assert.False(t, r.Running())

	// A fresh deletion request restarts the loop.
	r.EnsureRunning()
	assert.True(t, r.Running())
}

func TestReconciler_StopOnIdleIsNoOp(t *testing.T) {
	r := NewReconciler(newSweepStore(), time.Hour, testLogger(), nil)
	r.Stop()
	assert.False(t, r.Running())
}
