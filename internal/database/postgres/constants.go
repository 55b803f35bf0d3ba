package postgres

// PostgreSQL Error Codes
const (
	// PgErrorCodeUniqueViolation is the PostgreSQL error code for unique constraint violations
	PgErrorCodeUniqueViolation = "23505"
)

// Error Messages - Mapping Operations
const (
	ErrMsgFailedToGetMapping       = "failed to get mapping"
	ErrMsgFailedToListMappings     = "failed to list mappings"
	ErrMsgFailedToDecodeBindings   = "failed to decode mapping bindings"
	ErrMsgFailedToAdvanceWatermark = "failed to advance watermark"
)

// Error Messages - Link Operations
const (
	ErrMsgFailedToGetLink    = "failed to get link"
	ErrMsgFailedToListLinks  = "failed to list links"
	ErrMsgFailedToUpsertLink = "failed to upsert link"
	ErrMsgFailedToDeleteLink = "failed to delete link"
)

// Error Messages - Push Queue Operations
const (
	ErrMsgFailedToEnqueueItem     = "failed to enqueue item"
	ErrMsgFailedToClaimItems      = "failed to claim items"
	ErrMsgFailedToReleaseItem     = "failed to release item"
	ErrMsgFailedToDeleteItem      = "failed to delete item"
	ErrMsgFailedToFailItem        = "failed to record item failure"
	ErrMsgFailedToListQuarantined = "failed to list quarantined items"
	ErrMsgFailedToRetryItem       = "failed to retry item"
	ErrMsgFailedToPurgeItem       = "failed to purge item"
	ErrMsgFailedToCountQueue      = "failed to count queue depth"
)
