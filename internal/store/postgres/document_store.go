package postgres

import (
	"context"
	"database/sql"
	"errors"

	"docmanager/internal/model"
	"docmanager/internal/store"
)

// DocumentStore is a PostgreSQL implementation of store.RecordStore.
// It uses database/sql with parameterized queries and contains no business logic.
// Partition scans are keyset-paginated over the (status, created_at, id) index,
// so the continuation key is simply the last row's sort position.
type DocumentStore struct {
	db *sql.DB
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

var _ store.RecordStore = (*DocumentStore)(nil)

const documentColumns = `id, file_name, storage_path, size, mime_type, status, created_at`

func scanDocument(row interface{ Scan(...any) error }) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.FileName,
		&d.StoragePath,
		&d.Size,
		&d.MimeType,
		&d.Status,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Put inserts a new document row and returns the stored record.
func (s *DocumentStore) Put(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, file_name, storage_path, size, mime_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + documentColumns
	row := s.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.FileName,
		doc.StoragePath,
		doc.Size,
		doc.MimeType,
		doc.Status,
		doc.CreatedAt,
	)
	return scanDocument(row)
}

// Get fetches a single document by its ID.
func (s *DocumentStore) Get(ctx context.Context, id string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1
	`
	doc, err := scanDocument(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// UpdateStatus unconditionally sets the status and returns the updated row.
func (s *DocumentStore) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET status = $2
		WHERE id = $1
		RETURNING ` + documentColumns
	doc, err := scanDocument(s.db.QueryRowContext(ctx, q, id, status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// UpdateStatusGuarded sets the status in a single conditional write that fails
// when the row currently holds the forbidden status.
func (s *DocumentStore) UpdateStatusGuarded(ctx context.Context, id string, status, forbidden model.Status) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET status = $2
		WHERE id = $1 AND status <> $3
		RETURNING ` + documentColumns
	doc, err := scanDocument(s.db.QueryRowContext(ctx, q, id, status, forbidden))
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	// No row updated: either the record is gone or the guard rejected it.
	if _, getErr := s.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, store.ErrStatusGuard
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	// Missing rows are fine: finalization retries must be idempotent.
	_, _ = res.RowsAffected()
	return nil
}

// QueryByStatus scans one status partition in created-at order using keyset
// pagination. It fetches limit+1 rows so a continuation key is only handed
// back when another row actually exists.
func (s *DocumentStore) QueryByStatus(ctx context.Context, status model.Status, limit int, startKey *store.ContinuationKey, descending bool) (*store.QueryPage, error) {
	q := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE status = $1
	`
	args := []any{status, limit + 1}
	if startKey != nil {
		if descending {
			q += ` AND (created_at, id) < ($3, $4)`
		} else {
			q += ` AND (created_at, id) > ($3, $4)`
		}
		args = append(args, startKey.CreatedAt, startKey.ID)
	}
	if descending {
		q += ` ORDER BY created_at DESC, id DESC`
	} else {
		q += ` ORDER BY created_at ASC, id ASC`
	}
	q += ` LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0, limit)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := &store.QueryPage{}
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		page.NextKey = &store.ContinuationKey{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	page.Items = items
	return page, nil
}
