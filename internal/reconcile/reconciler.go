// Package reconcile propagates remote deletions to the local store. The
// remote system reports tombstones for a time window; each tombstone that
// resolves to a link removes the local record and the link.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forcelink/forcelink/internal/clock"
	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/event"
	"github.com/forcelink/forcelink/internal/logger"
	"github.com/forcelink/forcelink/internal/remote"
	"github.com/forcelink/forcelink/internal/repository"
	"github.com/forcelink/forcelink/internal/store"
)

const (
	// minWindow is the smallest delete window the remote tombstone API
	// accepts. Cycles scheduled faster than this are no-ops until enough
	// time has accumulated.
	minWindow = time.Minute

	// defaultLookback bounds the first cycle of a mapping that has never
	// reconciled; without it the first window would reach back forever.
	defaultLookback = 30 * 24 * time.Hour
)

// Reconciler runs delete reconciliation cycles per mapping.
type Reconciler struct {
	mappings repository.Mapping
	links    repository.Link
	store    store.Store
	client   remote.Client
	bus      event.Bus
	clk      clock.Clock
}

func NewReconciler(
	mappings repository.Mapping,
	links repository.Link,
	st store.Store,
	client remote.Client,
	bus event.Bus,
	clk clock.Clock,
) *Reconciler {
	return &Reconciler{
		mappings: mappings,
		links:    links,
		store:    st,
		client:   client,
		bus:      bus,
		clk:      clk,
	}
}

// RunCycle reconciles one mapping's deletions. The delete watermark only
// advances after every tombstone in the window was handled, so a partial
// failure re-reads the window next cycle.
func (r *Reconciler) RunCycle(ctx context.Context, m *domain.Mapping) (domain.CycleSummary, error) {
	log := logger.FromContext(ctx)
	var summary domain.CycleSummary
	start := r.clk.Now()

	if !m.Triggers.RemoteDelete {
		return summary, nil
	}

	windowEnd := start
	windowStart := windowEnd.Add(-defaultLookback)
	if m.LastDeleteAt != nil {
		windowStart = *m.LastDeleteAt
	}
	if windowEnd.Sub(windowStart) < minWindow {
		log.Debug("delete window below remote minimum, skipping",
			"mapping_id", m.ID, "window", windowEnd.Sub(windowStart))
		return summary, nil
	}

	ids, err := r.client.GetDeletedSince(ctx, m.RemoteObject, windowStart, windowEnd)
	if err != nil {
		summary.Duration = r.clk.Since(start)
		if remote.IsAuth(err) {
			return summary, fmt.Errorf("%w: %s", domain.ErrCycleAborted, err.Error())
		}
		return summary, fmt.Errorf("fetching tombstones for %s: %w", m.RemoteObject, err)
	}

	for _, remoteID := range ids {
		if ctx.Err() != nil {
			summary.Duration = r.clk.Since(start)
			return summary, ctx.Err()
		}
		if err := r.reconcileOne(ctx, m, remoteID, &summary); err != nil {
			summary.Failed++
			log.Warn("failed to reconcile remote deletion",
				"mapping_id", m.ID, "remote_id", remoteID, "error", err)
		}
	}

	if summary.Failed == 0 {
		if err := r.mappings.AdvanceDeleteWatermark(ctx, m.ID, windowEnd); err != nil {
			summary.Duration = r.clk.Since(start)
			return summary, fmt.Errorf("advancing delete watermark for %s: %w", m.ID, err)
		}
	}

	summary.Duration = r.clk.Since(start)
	return summary, nil
}

func (r *Reconciler) reconcileOne(ctx context.Context, m *domain.Mapping, remoteID string, summary *domain.CycleSummary) error {
	log := logger.FromContext(ctx)

	link, err := r.links.GetByRemote(ctx, m.ID, remoteID)
	if errors.Is(err, domain.ErrLinkNotFound) {
		// Never linked, or already reconciled. Nothing local to remove.
		summary.Skipped++
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolving link for %s: %w", remoteID, err)
	}

	local, err := r.store.Load(ctx, link.LocalType, link.LocalID)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		return fmt.Errorf("loading %s/%s: %w", link.LocalType, link.LocalID, err)
	}

	hc := &event.Context{
		Hook:      event.DeleteAllowed,
		Mapping:   m,
		Local:     local,
		Operation: domain.OperationDelete,
	}
	if err := r.bus.Fire(ctx, hc); err != nil {
		return err
	}
	if hc.Vetoed() {
		log.Debug(event.LogMsgActionVetoed,
			"hook", event.DeleteAllowed, "mapping_id", m.ID,
			"remote_id", remoteID, "reason", hc.VetoReason())
		summary.Skipped++
		return nil
	}

	// Suppressed save path: removing the local record must not enqueue a
	// push delete for the record the remote already deleted.
	if local != nil {
		if err := r.store.Delete(ctx, link.LocalType, link.LocalID, store.SuppressPushTrigger()); err != nil {
			return fmt.Errorf("deleting %s/%s: %w", link.LocalType, link.LocalID, err)
		}
	}
	if err := r.links.Delete(ctx, link.ID); err != nil && !errors.Is(err, domain.ErrLinkNotFound) {
		return fmt.Errorf("removing link %s: %w", link.ID, err)
	}

	summary.Succeeded++
	return nil
}
