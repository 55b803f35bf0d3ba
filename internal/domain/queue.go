package domain

import "time"

// Operation is the sync operation carried by a push queue item.
// A later enqueue for the same (mapping, record) replaces the operation;
// the queue keeps only "what this record now needs", not trigger history.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// PushQueueItem is one pending push, unique per (mapping_id, local_id).
type PushQueueItem struct {
	ID           string     `json:"id" db:"id"`
	MappingID    string     `json:"mapping_id" db:"mapping_id"`
	LocalID      string     `json:"local_id" db:"local_id"`
	Operation    Operation  `json:"operation" db:"operation"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	ClaimedUntil *time.Time `json:"claimed_until,omitempty" db:"claimed_until"`
	FailureCount int        `json:"failure_count" db:"failure_count"`
	Quarantined  bool       `json:"quarantined" db:"quarantined"`
	LastError    string     `json:"last_error,omitempty" db:"last_error"`
}

// PullItem is a transient unit of pull work. Items are built fresh each
// cycle from query results and are never deduplicated across cycles.
type PullItem struct {
	MappingID string         `json:"mapping_id"`
	Record    map[string]any `json:"record"`
	Force     bool           `json:"force"`
}
