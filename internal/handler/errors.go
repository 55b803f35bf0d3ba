package handler

// Generic HTTP error messages for client responses.
// These messages intentionally do not expose internal error details.
// Both handlers and tests should reference these constants to maintain consistency.
const (
	// HTTP status messages
	ErrMsgMethodNotAllowed      = "Method not allowed"
	ErrMsgInvalidRequest        = "Invalid request body"
	ErrMsgInvalidRequestSummary = "Invalid request"

	// Query parameter error messages
	ErrMsgMissingQueryParam = "Missing %s query parameter"

	// Cycle operation error messages
	ErrMsgPushCycleFailed      = "Failed to run push cycle"
	ErrMsgPullCycleFailed      = "Failed to run pull cycle"
	ErrMsgReconcileCycleFailed = "Failed to run delete reconcile cycle"
	ErrMsgPurgeOrphansFailed   = "Failed to purge orphaned links"

	// Queue operation error messages
	ErrMsgListQuarantineFailed = "Failed to list quarantined items"
	ErrMsgRetryItemFailed      = "Failed to retry queue item"
	ErrMsgPurgeItemFailed      = "Failed to purge queue item"
	ErrMsgQueueDepthFailed     = "Failed to read queue depth"

	// Mapping error messages
	ErrMsgListMappingsFailed = "Failed to list mappings"
	ErrMsgGetMappingFailed   = "Failed to retrieve mapping"
	ErrMsgMappingNotFound    = "Mapping not found"

	// Link error messages
	ErrMsgForcePullFailed = "Failed to flag link for forced pull"
	ErrMsgLinkNotFound    = "Link not found"
)

// Success messages for API responses
const (
	MsgCycleStarted        = "Cycle completed"
	MsgItemRetriedSuccess  = "Item returned to the active queue"
	MsgItemPurgedSuccess   = "Item purged from quarantine"
	MsgMappingInvalidated  = "Mapping cache entry invalidated"
	MsgForcePullFlagged    = "Link flagged for forced pull"
	MsgOrphansPurgedFormat = "Purged %d orphaned links"
)
