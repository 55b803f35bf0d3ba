package handler

import (
	"net/http"

	"github.com/forcelink/forcelink/internal/logger"
	"github.com/forcelink/forcelink/internal/repository"
)

// QueueItemRequest identifies one quarantined queue item
type QueueItemRequest struct {
	ItemID string `json:"item_id" validate:"required,max=100"`
}

// QueueDepthResponse reports the number of active queue items
type QueueDepthResponse struct {
	Depth int `json:"depth"`
}

// QueueHandler exposes the push queue's quarantine surface
type QueueHandler struct {
	queue repository.PushQueue
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queue repository.PushQueue) *QueueHandler {
	return &QueueHandler{queue: queue}
}

// HandleListQuarantine lists items parked after repeated or permanent failures
func (h *QueueHandler) HandleListQuarantine(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	items, err := h.queue.ListQuarantined(r.Context())
	if err != nil {
		respondServiceError(w, "List quarantine", log, err)
		return
	}

	respondJSON(w, http.StatusOK, DataResponse{Data: items})
}

// HandleRetry returns a quarantined item to the active queue
func (h *QueueHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req QueueItemRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Retry queue item"); err != nil {
		return
	}

	if err := h.queue.Retry(r.Context(), req.ItemID); err != nil {
		respondServiceError(w, "Retry queue item", log, err)
		return
	}

	log.Info("Quarantined item retried", "item_id", req.ItemID)
	respondJSON(w, http.StatusOK, SuccessResponse{Message: MsgItemRetriedSuccess})
}

// HandlePurge drops a quarantined item without processing it
func (h *QueueHandler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req QueueItemRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Purge queue item"); err != nil {
		return
	}

	if err := h.queue.Purge(r.Context(), req.ItemID); err != nil {
		respondServiceError(w, "Purge queue item", log, err)
		return
	}

	log.Info("Quarantined item purged", "item_id", req.ItemID)
	respondJSON(w, http.StatusOK, SuccessResponse{Message: MsgItemPurgedSuccess})
}

// HandleDepth reports the active queue depth
func (h *QueueHandler) HandleDepth(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	depth, err := h.queue.Depth(r.Context())
	if err != nil {
		respondServiceError(w, "Queue depth", log, err)
		return
	}

	respondJSON(w, http.StatusOK, QueueDepthResponse{Depth: depth})
}
