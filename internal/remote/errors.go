package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a remote failure for retry/quarantine decisions.
type ErrorKind string

const (
	// KindValidation - the remote rejected the payload. Terminal; retrying
	// the same payload cannot help.
	KindValidation ErrorKind = "validation"
	// KindTransient - network, 5xx, rate limit. Retried with backoff.
	KindTransient ErrorKind = "transient"
	// KindConflict - concurrent modification on the remote side. Treated
	// as transient.
	KindConflict ErrorKind = "conflict"
	// KindAuth - token invalid or expired. Aborts the whole cycle.
	KindAuth ErrorKind = "auth"
	// KindNotFound - the remote record does not exist.
	KindNotFound ErrorKind = "not_found"
)

// Error is a structured remote failure carrying the HTTP status and the
// remote system's error code when available.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote %s error (%d %s): %s", e.Kind, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("remote %s error (%d): %s", e.Kind, e.StatusCode, e.Message)
}

// NewValidationError builds a terminal validation error.
func NewValidationError(code, message string) *Error {
	return &Error{Kind: KindValidation, StatusCode: http.StatusBadRequest, Code: code, Message: message}
}

// NewTransientError builds a retryable error.
func NewTransientError(status int, message string) *Error {
	return &Error{Kind: KindTransient, StatusCode: status, Message: message}
}

// NewConflictError builds a concurrent-modification error.
func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, StatusCode: http.StatusConflict, Message: message}
}

// NewAuthError builds a cycle-aborting authorization error.
func NewAuthError(message string) *Error {
	return &Error{Kind: KindAuth, StatusCode: http.StatusUnauthorized, Message: message}
}

// NewNotFoundError builds a missing-record error.
func NewNotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, StatusCode: http.StatusNotFound, Message: message}
}

// KindOf classifies any error from a remote call. Unknown errors are
// treated as transient, the safe default: they get bounded retries and
// eventually quarantine.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindTransient
}

// IsValidation reports whether err is a terminal validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	k := KindOf(err)
	return k == KindTransient || k == KindConflict
}

// IsAuth reports whether err must abort the whole cycle.
func IsAuth(err error) bool { return KindOf(err) == KindAuth }

// IsNotFound reports whether err means the remote record is gone.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
