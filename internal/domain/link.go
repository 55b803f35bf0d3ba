package domain

import "time"

// LinkedRecord is the durable association between one local record and one
// remote record under one mapping.
//
// Uniqueness invariants (enforced by storage):
//   - (mapping_id, local_type, local_id) is unique
//   - (mapping_id, remote_id) is unique
//
// Both sides are weak references: either record may have been deleted
// out-of-band and the link must tolerate that until reconciliation.
type LinkedRecord struct {
	ID           string    `json:"id" db:"id"`
	MappingID    string    `json:"mapping_id" db:"mapping_id"`
	LocalType    string    `json:"local_type" db:"local_type"`
	LocalID      string    `json:"local_id" db:"local_id"`
	RemoteID     string    `json:"remote_id" db:"remote_id"`
	ForcePull    bool      `json:"force_pull" db:"force_pull"`
	LastSyncedAt time.Time `json:"last_synced_at" db:"last_synced_at"`
	Revision     int       `json:"revision" db:"revision"`
}
