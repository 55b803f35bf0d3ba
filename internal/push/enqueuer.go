// Package push implements the outbound half of the sync engine: turning
// local changes into queue items and draining the queue against the remote
// system.
package push

import (
	"context"
	"fmt"

	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/event"
	"github.com/forcelink/forcelink/internal/logger"
	"github.com/forcelink/forcelink/internal/registry"
	"github.com/forcelink/forcelink/internal/repository"
)

// Enqueuer reacts to local record changes and enqueues push work for every
// mapping whose trigger configuration matches the change.
type Enqueuer struct {
	registry *registry.Registry
	queue    repository.PushQueue
	bus      event.Bus
}

func NewEnqueuer(reg *registry.Registry, queue repository.PushQueue, bus event.Bus) *Enqueuer {
	return &Enqueuer{registry: reg, queue: queue, bus: bus}
}

// RecordChanged is wired as a store.ChangeObserver. Enqueueing is an upsert,
// so a burst of edits to one record costs one queue item.
func (e *Enqueuer) RecordChanged(ctx context.Context, kind domain.ChangeKind, rec *domain.LocalRecord) error {
	log := logger.FromContext(ctx)

	mappings, err := e.registry.ForLocalType(ctx, rec.Type, rec.Subtype)
	if err != nil {
		return fmt.Errorf("listing mappings for %s: %w", rec.Type, err)
	}

	for _, m := range mappings {
		if !triggered(m.Triggers, kind) {
			continue
		}

		hc := &event.Context{
			Hook:      event.PushEnqueueAllowed,
			Mapping:   m,
			Local:     rec,
			Operation: operationFor(kind),
		}
		if err := e.bus.Fire(ctx, hc); err != nil {
			return err
		}
		if hc.Vetoed() {
			log.Debug(event.LogMsgActionVetoed,
				"hook", event.PushEnqueueAllowed, "mapping_id", m.ID,
				"local_id", rec.ID, "reason", hc.VetoReason())
			continue
		}

		if err := e.queue.Enqueue(ctx, m.ID, rec.ID, hc.Operation); err != nil {
			return fmt.Errorf("enqueueing %s/%s: %w", m.ID, rec.ID, err)
		}
		log.Debug("push item enqueued",
			"mapping_id", m.ID, "local_id", rec.ID, "operation", hc.Operation)
	}
	return nil
}

func triggered(t domain.TriggerFlags, kind domain.ChangeKind) bool {
	switch kind {
	case domain.ChangeCreate:
		return t.LocalCreate
	case domain.ChangeUpdate:
		return t.LocalUpdate
	case domain.ChangeDelete:
		return t.LocalDelete
	default:
		return false
	}
}

func operationFor(kind domain.ChangeKind) domain.Operation {
	switch kind {
	case domain.ChangeCreate:
		return domain.OperationCreate
	case domain.ChangeDelete:
		return domain.OperationDelete
	default:
		return domain.OperationUpdate
	}
}
