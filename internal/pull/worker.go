package pull

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/forcelink/forcelink/internal/clock"
	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/event"
	"github.com/forcelink/forcelink/internal/fieldmap"
	"github.com/forcelink/forcelink/internal/logger"
	"github.com/forcelink/forcelink/internal/remote"
	"github.com/forcelink/forcelink/internal/repository"
	"github.com/forcelink/forcelink/internal/store"
)

// outcome classifies the handling of one remote record.
type outcome int

const (
	outcomeApplied outcome = iota
	outcomeSkipped
)

// Worker applies one remote record to the local store.
type Worker struct {
	links      repository.Link
	store      store.Store
	translator *fieldmap.Translator
	client     remote.Client
	bus        event.Bus
	clk        clock.Clock
}

func NewWorker(
	links repository.Link,
	st store.Store,
	translator *fieldmap.Translator,
	client remote.Client,
	bus event.Bus,
	clk clock.Clock,
) *Worker {
	return &Worker{
		links:      links,
		store:      st,
		translator: translator,
		client:     client,
		bus:        bus,
		clk:        clk,
	}
}

// Apply routes one unit of pull work to create or update handling based
// on whether a link already exists. The item's force flag bypasses
// conflict resolution for that record; a link's own force-pull flag does
// the same.
func (w *Worker) Apply(ctx context.Context, m *domain.Mapping, item domain.PullItem) (outcome, error) {
	rec := remote.Record(item.Record)
	remoteID := rec.ID()
	if remoteID == "" {
		return outcomeSkipped, fmt.Errorf("%w: remote record without id in %s results", domain.ErrMissingRemote, m.RemoteObject)
	}

	link, err := w.links.GetByRemote(ctx, m.ID, remoteID)
	if errors.Is(err, domain.ErrLinkNotFound) {
		return w.applyCreate(ctx, m, rec, remoteID)
	}
	if err != nil {
		return outcomeSkipped, fmt.Errorf("resolving link for %s/%s: %w", m.ID, remoteID, err)
	}
	return w.applyUpdate(ctx, m, rec, link, item.Force)
}

func (w *Worker) applyCreate(ctx context.Context, m *domain.Mapping, rec remote.Record, remoteID string) (outcome, error) {
	log := logger.FromContext(ctx)
	if !m.Triggers.RemoteCreate {
		return outcomeSkipped, nil
	}

	hc := &event.Context{Hook: event.PullBeforeCreate, Mapping: m, Remote: rec}
	if err := w.bus.Fire(ctx, hc); err != nil {
		return outcomeSkipped, err
	}
	if hc.Vetoed() {
		log.Debug(event.LogMsgActionVetoed,
			"hook", event.PullBeforeCreate, "mapping_id", m.ID,
			"remote_id", remoteID, "reason", hc.VetoReason())
		return outcomeSkipped, nil
	}

	local := &domain.LocalRecord{
		Type:    m.LocalType,
		Subtype: m.LocalSubtype,
		ID:      uuid.NewString(),
	}
	if err := w.translator.ApplyPullValues(ctx, m, rec, local); err != nil {
		return outcomeSkipped, err
	}
	if err := w.store.Save(ctx, local, store.AsCreate(), store.SuppressPushTrigger()); err != nil {
		return outcomeSkipped, fmt.Errorf("creating local record for %s: %w", remoteID, err)
	}
	if err := w.upsertLink(ctx, m, local.ID, remoteID); err != nil {
		return outcomeSkipped, err
	}

	w.pushReciprocalKey(ctx, m, rec, local, remoteID)

	w.fireApplied(ctx, m, local, rec)
	return outcomeApplied, nil
}

func (w *Worker) applyUpdate(ctx context.Context, m *domain.Mapping, rec remote.Record, link *domain.LinkedRecord, force bool) (outcome, error) {
	log := logger.FromContext(ctx)
	if !m.Triggers.RemoteUpdate {
		return outcomeSkipped, nil
	}

	local, err := w.store.Load(ctx, m.LocalType, link.LocalID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		// Local side was deleted out-of-band. Not this cycle's call to
		// make; the delete reconciler owns link cleanup.
		log.Warn("linked local record is missing, skipping pull",
			"mapping_id", m.ID, "local_id", link.LocalID, "remote_id", link.RemoteID)
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeSkipped, fmt.Errorf("loading %s/%s: %w", m.LocalType, link.LocalID, err)
	}

	if !force && !link.ForcePull && !remoteNewer(m, rec, local) {
		return outcomeSkipped, nil
	}

	hc := &event.Context{Hook: event.PullBeforeUpdate, Mapping: m, Local: local, Remote: rec}
	if err := w.bus.Fire(ctx, hc); err != nil {
		return outcomeSkipped, err
	}
	if hc.Vetoed() {
		log.Debug(event.LogMsgActionVetoed,
			"hook", event.PullBeforeUpdate, "mapping_id", m.ID,
			"local_id", local.ID, "reason", hc.VetoReason())
		return outcomeSkipped, nil
	}

	if err := w.translator.ApplyPullValues(ctx, m, rec, local); err != nil {
		return outcomeSkipped, err
	}
	if err := w.store.Save(ctx, local, store.SuppressPushTrigger()); err != nil {
		return outcomeSkipped, fmt.Errorf("saving %s/%s: %w", m.LocalType, local.ID, err)
	}
	// A successful forced pull consumes the record's force flag.
	if err := w.upsertLink(ctx, m, local.ID, link.RemoteID); err != nil {
		return outcomeSkipped, err
	}

	w.fireApplied(ctx, m, local, rec)
	return outcomeApplied, nil
}

// remoteNewer implements conflict resolution: the pull wins only when the
// remote trigger date is strictly newer than the local modification time.
// A missing or unparsable remote date loses; the local edit is the only
// side with evidence.
func remoteNewer(m *domain.Mapping, rec remote.Record, local *domain.LocalRecord) bool {
	if m.PullDateField == "" {
		return true
	}
	remoteAt, ok := rec.Time(m.PullDateField)
	if !ok {
		return false
	}
	return remoteAt.After(local.ModifiedAt)
}

// pushReciprocalKey seeds the mapping's external key on both sides after a
// pull-created record, so later pushes upsert onto this record instead of
// duplicating it. Failure to write the key back is reported, not fatal:
// the link already protects update pushes.
func (w *Worker) pushReciprocalKey(ctx context.Context, m *domain.Mapping, rec remote.Record, local *domain.LocalRecord, remoteID string) {
	if m.ExternalKeyField == "" || rec.String(m.ExternalKeyField) != "" {
		return
	}
	keyPath := m.ExternalKeyLocalPath()
	if keyPath == "" {
		return
	}
	log := logger.FromContext(ctx)

	keyValue := local.StringAttribute(keyPath)
	if keyValue == "" {
		keyValue = local.ID
		local.SetAttribute(keyPath, keyValue)
		if err := w.store.Save(ctx, local, store.SuppressPushTrigger()); err != nil {
			log.Error("failed to persist generated external key",
				"mapping_id", m.ID, "local_id", local.ID, "error", err)
			return
		}
	}
	if err := w.client.Update(ctx, m.RemoteObject, remoteID, map[string]any{m.ExternalKeyField: keyValue}); err != nil {
		log.Warn("failed to write external key back to remote record",
			"mapping_id", m.ID, "remote_id", remoteID, "error", err)
	}
}

func (w *Worker) upsertLink(ctx context.Context, m *domain.Mapping, localID, remoteID string) error {
	err := w.links.Upsert(ctx, &domain.LinkedRecord{
		MappingID:    m.ID,
		LocalType:    m.LocalType,
		LocalID:      localID,
		RemoteID:     remoteID,
		ForcePull:    false,
		LastSyncedAt: w.clk.Now(),
	})
	if err != nil {
		return fmt.Errorf("persisting link %s -> %s: %w", localID, remoteID, err)
	}
	return nil
}

func (w *Worker) fireApplied(ctx context.Context, m *domain.Mapping, local *domain.LocalRecord, rec remote.Record) {
	hc := &event.Context{Hook: event.PullApplied, Mapping: m, Local: local, Remote: rec}
	if err := w.bus.Fire(ctx, hc); err != nil {
		logger.FromContext(ctx).Error("extension subscriber failed",
			"hook", event.PullApplied, "error", err)
	}
}
