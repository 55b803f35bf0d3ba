package handler

import (
	"errors"
	"net/http"

	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/logger"
	"github.com/forcelink/forcelink/internal/repository"
)

// MappingCache is the read-through cache surface the invalidate endpoint needs.
type MappingCache interface {
	Invalidate(id string)
}

// InvalidateMappingRequest identifies a cached mapping to drop
type InvalidateMappingRequest struct {
	MappingID string `json:"mapping_id" validate:"required,max=100"`
}

// ForcePullRequest flags a linked record so the next pull overwrites it
type ForcePullRequest struct {
	MappingID string `json:"mapping_id" validate:"required,max=100"`
	LocalID   string `json:"local_id" validate:"required,max=100"`
}

// MappingHandler serves the mapping configuration surface
type MappingHandler struct {
	mappings repository.Mapping
	links    repository.Link
	cache    MappingCache
}

// NewMappingHandler creates a new mapping handler
func NewMappingHandler(mappings repository.Mapping, links repository.Link, cache MappingCache) *MappingHandler {
	return &MappingHandler{
		mappings: mappings,
		links:    links,
		cache:    cache,
	}
}

// HandleListMappings lists all configured mappings
func (h *MappingHandler) HandleListMappings(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	mappings, err := h.mappings.ListMappings(r.Context())
	if err != nil {
		respondServiceError(w, "List mappings", log, err)
		return
	}

	respondJSON(w, http.StatusOK, DataResponse{Data: mappings})
}

// HandleGetMapping returns one mapping by id
func (h *MappingHandler) HandleGetMapping(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	id, ok := GetQueryParam(r, w, "id")
	if !ok {
		return
	}

	m, err := h.mappings.GetMapping(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrMappingNotFound) {
			respondError(w, http.StatusNotFound, ErrMsgMappingNotFound)
			return
		}
		respondServiceError(w, "Get mapping", log, err)
		return
	}

	respondJSON(w, http.StatusOK, DataResponse{Data: m})
}

// HandleInvalidate drops a mapping from the read-through cache so the next
// cycle sees edited configuration immediately.
func (h *MappingHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req InvalidateMappingRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Invalidate mapping"); err != nil {
		return
	}

	h.cache.Invalidate(req.MappingID)

	log.Info("Mapping cache entry invalidated", "mapping", req.MappingID)
	respondJSON(w, http.StatusOK, SuccessResponse{Message: MsgMappingInvalidated})
}

// HandleForcePull flags a link so the next pull cycle overwrites the local
// record regardless of timestamps. The flag clears after one successful pull.
func (h *MappingHandler) HandleForcePull(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req ForcePullRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Force pull"); err != nil {
		return
	}

	link, err := h.links.GetByLocal(r.Context(), req.MappingID, req.LocalID)
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			respondError(w, http.StatusNotFound, ErrMsgLinkNotFound)
			return
		}
		respondServiceError(w, "Force pull", log, err)
		return
	}

	if err := h.links.SetForcePull(r.Context(), link.ID, true); err != nil {
		respondServiceError(w, "Force pull", log, err)
		return
	}

	log.Info("Link flagged for forced pull", "mapping", req.MappingID, "local_id", req.LocalID)
	respondJSON(w, http.StatusOK, SuccessResponse{Message: MsgForcePullFlagged})
}
