package model

import "time"

// Status is the lifecycle state of a document. Each status value doubles as a
// partition of the status/created-at index, so changing a document's status
// moves it between partitions.
type Status string

const (
	StatusPending      Status = "pending"
	StatusRunning      Status = "running"
	StatusFinished     Status = "finished"
	StatusFailed       Status = "failed"
	StatusDeleting     Status = "deleting"
	StatusDeleted      Status = "deleted"
	StatusDeleteFailed Status = "delete_failed"
)

// StatusAll is the listing filter sentinel for "every partition".
// It is not a persistable status value.
const StatusAll = "all"

// AllStatuses returns every status value in a fixed order. The fan-out query
// engine issues one partition query per entry.
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusRunning,
		StatusFinished,
		StatusFailed,
		StatusDeleting,
		StatusDeleted,
		StatusDeleteFailed,
	}
}

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusFinished, StatusFailed,
		StatusDeleting, StatusDeleted, StatusDeleteFailed:
		return true
	}
	return false
}

// Document represents a stored file in the system.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
type Document struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	MimeType    string    `json:"mimetype"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
