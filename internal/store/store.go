package store

import (
	"context"
	"errors"
	"time"

	"docmanager/internal/model"
)

// Package store contains the record store abstraction: point reads/writes on
// document records plus single-partition indexed range queries. Implementations
// live in subpackages (e.g., postgres) inside this directory.

var (
	// ErrNotFound is returned by Get and the update operations when no record
	// exists for the given id.
	ErrNotFound = errors.New("record not found")
	// ErrStatusGuard is returned by UpdateStatusGuarded when the record's
	// current status matches the forbidden value.
	ErrStatusGuard = errors.New("status guard violated")
)

// ContinuationKey is the store-native resume position for one partition's
// descending range scan. It identifies the last row a previous query returned;
// the next query resumes strictly after it. Opaque to everything above the
// cursor codec.
type ContinuationKey struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// QueryPage is one partition query result. NextKey is nil when the partition
// is exhausted.
type QueryPage struct {
	Items   []model.Document
	NextKey *ContinuationKey
}

// RecordStore defines data access for document records. No business logic
// here — strictly persistence operations. Operations do not retry internally;
// transient store failures surface to the caller.
type RecordStore interface {
	// Put inserts a new document record and returns the stored record.
	Put(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Get returns a document by its ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*model.Document, error)

	// UpdateStatus unconditionally persists the new status and returns the
	// updated record. Returns ErrNotFound if the record does not exist.
	UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Document, error)

	// UpdateStatusGuarded persists the new status only if the record's current
	// status is not the forbidden value. It is a single conditional write, so
	// there is no window between the check and the update. Returns
	// ErrStatusGuard when the guard fails and ErrNotFound when the record does
	// not exist.
	UpdateStatusGuarded(ctx context.Context, id string, status, forbidden model.Status) (*model.Document, error)

	// Delete removes a document record by ID. Deleting a missing record is a
	// no-op, not an error.
	Delete(ctx context.Context, id string) error

	// QueryByStatus performs an indexed range scan over one status partition,
	// ordered by created-at (descending when descending is true), starting
	// strictly after startKey when it is non-nil.
	QueryByStatus(ctx context.Context, status model.Status, limit int, startKey *ContinuationKey, descending bool) (*QueryPage, error)
}
