package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/forcelink/forcelink/internal/domain"
)

// Standard response types for consistent API responses

// SuccessResponse represents a simple successful operation message
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// DataResponse represents a response with data payload
type DataResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

// CycleResponse reports the outcome counts of one sync cycle run
type CycleResponse struct {
	Message string              `json:"message"`
	Summary domain.CycleSummary `json:"summary"`
}

// Helper functions for responding

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Get a buffer from the pool to reduce allocations
	buf := getBuffer()
	defer putBuffer(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		// Headers are already sent, nothing more we can do for the client
		slog.Error("Failed to encode JSON response", "error", err)
		return
	}

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write response buffer", "error", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// User-facing error messages derived from domain errors
const (
	ErrMsgGenericServerError  = "Something went wrong"
	ErrMsgUnknownError        = "Unknown error"
	ErrMsgMappingNotFoundErr  = "Mapping not found"
	ErrMsgItemNotFoundErr     = "Queue item not found"
	ErrMsgLinkNotFoundErr     = "Link not found"
	ErrMsgRecordNotFoundErr   = "Local record not found"
	ErrMsgItemQuarantinedErr  = "Item is quarantined. Retry it before processing."
	ErrMsgLinkConflictErr     = "Remote record is already linked to another local record"
	ErrMsgInvalidMappingErr   = "Mapping configuration is invalid"
	ErrMsgRemoteAuthErr       = "Remote system rejected our credentials"
	ErrMsgCycleAbortedErr     = "Cycle aborted. Check remote credentials and retry."
	ErrMsgRemoteUnresolvedErr = "Remote record id could not be resolved"
)

// mapServiceErrorToUserMessage maps domain errors to user-friendly HTTP responses
func mapServiceErrorToUserMessage(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, ErrMsgUnknownError
	}

	switch {
	case errors.Is(err, domain.ErrMappingNotFound):
		return http.StatusNotFound, ErrMsgMappingNotFoundErr
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound, ErrMsgItemNotFoundErr
	case errors.Is(err, domain.ErrLinkNotFound):
		return http.StatusNotFound, ErrMsgLinkNotFoundErr
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, ErrMsgRecordNotFoundErr
	case errors.Is(err, domain.ErrItemQuarantined):
		return http.StatusConflict, ErrMsgItemQuarantinedErr
	case errors.Is(err, domain.ErrLinkConflict):
		return http.StatusConflict, ErrMsgLinkConflictErr
	case errors.Is(err, domain.ErrInvalidMapping), errors.Is(err, domain.ErrInvalidBinding):
		return http.StatusBadRequest, ErrMsgInvalidMappingErr
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, ErrMsgInvalidRequestSummary
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusBadGateway, ErrMsgRemoteAuthErr
	case errors.Is(err, domain.ErrCycleAborted):
		return http.StatusBadGateway, ErrMsgCycleAbortedErr
	case errors.Is(err, domain.ErrMissingRemote):
		return http.StatusBadGateway, ErrMsgRemoteUnresolvedErr
	}

	// For wrapped errors with domain errors as the base, try unwrapping
	unwrapped := errors.Unwrap(err)
	if unwrapped != nil && unwrapped != err {
		return mapServiceErrorToUserMessage(unwrapped)
	}

	errMsg := err.Error()
	if errMsg != "" && len(errMsg) < 200 {
		// Short error messages are safe enough to surface as-is
		return http.StatusInternalServerError, errMsg
	}

	return http.StatusInternalServerError, ErrMsgGenericServerError
}

// respondServiceError logs a failed operation and writes the mapped response
func respondServiceError(w http.ResponseWriter, opName string, log *slog.Logger, err error) {
	log.Error(opName+" failed", "error", err)
	statusCode, userMsg := mapServiceErrorToUserMessage(err)
	respondError(w, statusCode, userMsg)
}
