package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/logger"
)

// CycleRunner is the engine surface the sync trigger endpoints drive.
type CycleRunner interface {
	RunPushCycle(ctx context.Context) (domain.CycleSummary, error)
	RunPullCycle(ctx context.Context) (domain.CycleSummary, error)
	RunDeleteReconcile(ctx context.Context) (domain.CycleSummary, error)
	PushMapping(ctx context.Context, mappingID string) (domain.CycleSummary, error)
	PullMapping(ctx context.Context, mappingID string, force bool) (domain.CycleSummary, error)
	PurgeOrphans(ctx context.Context, mappingID string) (int, error)
}

// SyncHandler exposes on-demand cycle triggers. Scheduled cycles run through
// the worker pool; these endpoints serve operators and standalone mappings.
type SyncHandler struct {
	engine CycleRunner
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(engine CycleRunner) *SyncHandler {
	return &SyncHandler{engine: engine}
}

// HandleRunPush triggers a push cycle. With a mapping query parameter only
// that mapping is pushed, which is also how standalone mappings run.
func (h *SyncHandler) HandleRunPush(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	mappingID := GetOptionalQueryParam(r, "mapping", "")
	log.Info("Push cycle requested", "mapping", mappingID)

	var (
		summary domain.CycleSummary
		err     error
	)
	if mappingID == "" {
		summary, err = h.engine.RunPushCycle(r.Context())
	} else {
		summary, err = h.engine.PushMapping(r.Context(), mappingID)
	}
	if err != nil {
		respondServiceError(w, "Push cycle", log, err)
		return
	}

	respondJSON(w, http.StatusOK, CycleResponse{Message: MsgCycleStarted, Summary: summary})
}

// HandleRunPull triggers a pull cycle. The force query parameter overrides
// conflict resolution so remote values win for every record in the window.
func (h *SyncHandler) HandleRunPull(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	mappingID := GetOptionalQueryParam(r, "mapping", "")
	force, _ := strconv.ParseBool(GetOptionalQueryParam(r, "force", "false"))
	log.Info("Pull cycle requested", "mapping", mappingID, "force", force)

	var (
		summary domain.CycleSummary
		err     error
	)
	if mappingID == "" {
		summary, err = h.engine.RunPullCycle(r.Context())
	} else {
		summary, err = h.engine.PullMapping(r.Context(), mappingID, force)
	}
	if err != nil {
		respondServiceError(w, "Pull cycle", log, err)
		return
	}

	respondJSON(w, http.StatusOK, CycleResponse{Message: MsgCycleStarted, Summary: summary})
}

// HandleRunReconcile triggers a delete reconcile cycle across pull mappings.
func (h *SyncHandler) HandleRunReconcile(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	log.Info("Delete reconcile cycle requested")

	summary, err := h.engine.RunDeleteReconcile(r.Context())
	if err != nil {
		respondServiceError(w, "Delete reconcile cycle", log, err)
		return
	}

	respondJSON(w, http.StatusOK, CycleResponse{Message: MsgCycleStarted, Summary: summary})
}

// HandlePurgeOrphans removes links whose local record no longer exists.
func (h *SyncHandler) HandlePurgeOrphans(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	mappingID, ok := GetQueryParam(r, w, "mapping")
	if !ok {
		return
	}

	purged, err := h.engine.PurgeOrphans(r.Context(), mappingID)
	if err != nil {
		respondServiceError(w, "Purge orphans", log, err)
		return
	}

	log.Info("Orphaned links purged", "mapping", mappingID, "count", purged)
	respondJSON(w, http.StatusOK, SuccessResponse{Message: fmt.Sprintf(MsgOrphansPurgedFormat, purged)})
}
