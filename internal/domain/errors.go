package domain

import "errors"

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Configuration errors
	ErrMsgMappingNotFound = "mapping not found"
	ErrMsgInvalidMapping  = "invalid mapping"
	ErrMsgInvalidBinding  = "invalid field binding"

	// Link errors
	ErrMsgLinkNotFound  = "linked record not found"
	ErrMsgLinkConflict  = "linked record conflict"
	ErrMsgMissingRemote = "remote id could not be resolved"

	// Record errors
	ErrMsgRecordNotFound = "local record not found"

	// Queue errors
	ErrMsgItemNotFound    = "queue item not found"
	ErrMsgItemQuarantined = "queue item is quarantined"

	// Cycle errors
	ErrMsgCycleAborted = "sync cycle aborted"
	ErrMsgUnauthorized = "remote authorization failed"

	// Input errors
	ErrMsgInvalidInput = "invalid input"
)

// Common domain errors
// These errors should be used consistently across all layers of the engine.
// Wrap with fmt.Errorf("%w: %s", domain.ErrXxx, details) for context.
var (
	// Configuration errors
	ErrMappingNotFound = errors.New(ErrMsgMappingNotFound)
	ErrInvalidMapping  = errors.New(ErrMsgInvalidMapping)
	ErrInvalidBinding  = errors.New(ErrMsgInvalidBinding)

	// Link errors
	ErrLinkNotFound  = errors.New(ErrMsgLinkNotFound)
	ErrLinkConflict  = errors.New(ErrMsgLinkConflict)
	ErrMissingRemote = errors.New(ErrMsgMissingRemote)

	// Record errors
	ErrRecordNotFound = errors.New(ErrMsgRecordNotFound)

	// Queue errors
	ErrItemNotFound    = errors.New(ErrMsgItemNotFound)
	ErrItemQuarantined = errors.New(ErrMsgItemQuarantined)

	// Cycle errors
	ErrCycleAborted = errors.New(ErrMsgCycleAborted)
	ErrUnauthorized = errors.New(ErrMsgUnauthorized)

	// Validation errors
	ErrInvalidInput = errors.New(ErrMsgInvalidInput)
)
