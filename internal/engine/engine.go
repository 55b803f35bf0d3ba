// Package engine coordinates sync cycles across mappings. Each cycle gets
// a budget, a cycle id for log correlation, and an aggregated summary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forcelink/forcelink/internal/clock"
	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/logger"
	"github.com/forcelink/forcelink/internal/pull"
	"github.com/forcelink/forcelink/internal/push"
	"github.com/forcelink/forcelink/internal/reconcile"
	"github.com/forcelink/forcelink/internal/registry"
	"github.com/forcelink/forcelink/internal/repository"
	"github.com/forcelink/forcelink/internal/store"
)

// Engine drives push, pull, and delete-reconcile cycles.
type Engine struct {
	registry   *registry.Registry
	processor  *push.Processor
	puller     *pull.Service
	reconciler *reconcile.Reconciler
	links      repository.Link
	store      store.Store
	clk        clock.Clock
	budget     time.Duration
}

func New(
	reg *registry.Registry,
	processor *push.Processor,
	puller *pull.Service,
	reconciler *reconcile.Reconciler,
	links repository.Link,
	st store.Store,
	clk clock.Clock,
	budget time.Duration,
) *Engine {
	return &Engine{
		registry:   reg,
		processor:  processor,
		puller:     puller,
		reconciler: reconciler,
		links:      links,
		store:      st,
		clk:        clk,
		budget:     budget,
	}
}

// RunPushCycle drains one batch per push-enabled mapping. Standalone
// mappings are excluded from scheduled cycles; they run only via
// PushMapping. A budget overrun stops between items, never mid-call.
func (e *Engine) RunPushCycle(ctx context.Context) (domain.CycleSummary, error) {
	ctx, cancel := e.begin(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	var total domain.CycleSummary
	mappings, err := e.registry.PushMappings(ctx)
	if err != nil {
		return total, fmt.Errorf("listing push mappings: %w", err)
	}

	for _, m := range mappings {
		if m.PushStandalone {
			continue
		}
		summary, err := e.processor.ProcessMapping(ctx, m)
		total.Add(summary)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				log.Warn("push cycle budget exhausted", "mapping_id", m.ID)
				return total, nil
			}
			log.Error("push cycle failed for mapping", "mapping_id", m.ID, "error", err)
			if errors.Is(err, domain.ErrCycleAborted) {
				return total, err
			}
		}
	}

	log.Info("push cycle finished",
		"succeeded", total.Succeeded, "failed", total.Failed,
		"skipped", total.Skipped, "quarantined", total.Quarantined)
	return total, nil
}

// PushMapping runs one mapping's push batch on demand, standalone or not.
func (e *Engine) PushMapping(ctx context.Context, mappingID string) (domain.CycleSummary, error) {
	ctx, cancel := e.begin(ctx)
	defer cancel()

	m, err := e.registry.Get(ctx, mappingID)
	if err != nil {
		return domain.CycleSummary{}, err
	}
	return e.processor.ProcessMapping(ctx, m)
}

// RunPullCycle pulls every pull-enabled, non-standalone mapping.
func (e *Engine) RunPullCycle(ctx context.Context) (domain.CycleSummary, error) {
	ctx, cancel := e.begin(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	var total domain.CycleSummary
	mappings, err := e.registry.PullMappings(ctx)
	if err != nil {
		return total, fmt.Errorf("listing pull mappings: %w", err)
	}

	for _, m := range mappings {
		if m.PullStandalone {
			continue
		}
		summary, err := e.puller.RunCycle(ctx, m, false)
		total.Add(summary)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				log.Warn("pull cycle budget exhausted", "mapping_id", m.ID)
				return total, nil
			}
			log.Error("pull cycle failed for mapping", "mapping_id", m.ID, "error", err)
			if errors.Is(err, domain.ErrCycleAborted) {
				return total, err
			}
		}
	}

	log.Info("pull cycle finished",
		"succeeded", total.Succeeded, "failed", total.Failed, "skipped", total.Skipped)
	return total, nil
}

// PullMapping pulls one mapping on demand. force bypasses conflict
// resolution for every record in the window (operator re-seed).
func (e *Engine) PullMapping(ctx context.Context, mappingID string, force bool) (domain.CycleSummary, error) {
	ctx, cancel := e.begin(ctx)
	defer cancel()

	m, err := e.registry.Get(ctx, mappingID)
	if err != nil {
		return domain.CycleSummary{}, err
	}
	return e.puller.RunCycle(ctx, m, force)
}

// RunDeleteReconcile propagates remote deletions for every mapping with
// the remote-delete trigger on.
func (e *Engine) RunDeleteReconcile(ctx context.Context) (domain.CycleSummary, error) {
	ctx, cancel := e.begin(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	var total domain.CycleSummary
	mappings, err := e.registry.PullMappings(ctx)
	if err != nil {
		return total, fmt.Errorf("listing mappings for reconcile: %w", err)
	}

	for _, m := range mappings {
		summary, err := e.reconciler.RunCycle(ctx, m)
		total.Add(summary)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				log.Warn("reconcile cycle budget exhausted", "mapping_id", m.ID)
				return total, nil
			}
			log.Error("reconcile failed for mapping", "mapping_id", m.ID, "error", err)
			if errors.Is(err, domain.ErrCycleAborted) {
				return total, err
			}
		}
	}

	log.Info("delete reconcile finished",
		"succeeded", total.Succeeded, "failed", total.Failed, "skipped", total.Skipped)
	return total, nil
}

// PurgeOrphans removes links whose local record no longer exists. Returns
// the number of links removed.
func (e *Engine) PurgeOrphans(ctx context.Context, mappingID string) (int, error) {
	ctx, cancel := e.begin(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	m, err := e.registry.Get(ctx, mappingID)
	if err != nil {
		return 0, err
	}
	links, err := e.links.ListByMapping(ctx, m.ID)
	if err != nil {
		return 0, fmt.Errorf("listing links for %s: %w", m.ID, err)
	}

	purged := 0
	for _, link := range links {
		_, err := e.store.Load(ctx, link.LocalType, link.LocalID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return purged, fmt.Errorf("loading %s/%s: %w", link.LocalType, link.LocalID, err)
		}
		if err := e.links.Delete(ctx, link.ID); err != nil && !errors.Is(err, domain.ErrLinkNotFound) {
			return purged, fmt.Errorf("removing orphaned link %s: %w", link.ID, err)
		}
		log.Info("purged orphaned link",
			"mapping_id", m.ID, "local_id", link.LocalID, "remote_id", link.RemoteID)
		purged++
	}
	return purged, nil
}

// begin stamps a cycle id for log correlation and applies the cycle budget.
func (e *Engine) begin(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := logger.CycleIDFromContext(ctx); !ok {
		ctx = logger.WithCycleID(ctx, logger.GenerateCycleID())
	}
	return context.WithTimeout(ctx, e.budget)
}
