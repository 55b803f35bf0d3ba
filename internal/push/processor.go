package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forcelink/forcelink/internal/clock"
	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/event"
	"github.com/forcelink/forcelink/internal/fieldmap"
	"github.com/forcelink/forcelink/internal/logger"
	"github.com/forcelink/forcelink/internal/remote"
	"github.com/forcelink/forcelink/internal/repository"
	"github.com/forcelink/forcelink/internal/store"
)

// errVetoed marks an item skipped by an extension subscriber. The item is
// removed from the queue without contacting the remote system.
var errVetoed = errors.New("push vetoed")

// Options tunes one processor instance.
type Options struct {
	BatchSize   int
	Lease       time.Duration
	MaxFailures int
}

// Processor drains the push queue for one mapping at a time. Delivery is
// at least once: an item leaves the queue only after its remote call
// succeeded, and lease expiry returns crashed work to the pool.
type Processor struct {
	queue      repository.PushQueue
	links      repository.Link
	store      store.Store
	translator *fieldmap.Translator
	client     remote.Client
	bus        event.Bus
	clk        clock.Clock
	opts       Options
}

func NewProcessor(
	queue repository.PushQueue,
	links repository.Link,
	st store.Store,
	translator *fieldmap.Translator,
	client remote.Client,
	bus event.Bus,
	clk clock.Clock,
	opts Options,
) *Processor {
	return &Processor{
		queue:      queue,
		links:      links,
		store:      st,
		translator: translator,
		client:     client,
		bus:        bus,
		clk:        clk,
		opts:       opts,
	}
}

// ProcessMapping claims and processes one batch for the mapping. An
// authorization failure aborts immediately with domain.ErrCycleAborted;
// retrying item by item against a dead credential would just burn the
// failure budget of every queued record.
func (p *Processor) ProcessMapping(ctx context.Context, m *domain.Mapping) (domain.CycleSummary, error) {
	log := logger.FromContext(ctx)
	var summary domain.CycleSummary
	start := p.clk.Now()

	items, err := p.queue.ClaimBatch(ctx, m.ID, p.opts.BatchSize, p.opts.Lease, start)
	if err != nil {
		return summary, fmt.Errorf("claiming batch for %s: %w", m.ID, err)
	}

	for _, item := range items {
		if ctx.Err() != nil {
			// Budget exhausted; leases expire on their own.
			summary.Duration = p.clk.Since(start)
			return summary, ctx.Err()
		}

		err := p.processItem(ctx, m, item)
		switch {
		case err == nil:
			if delErr := p.queue.Delete(ctx, item); delErr != nil && !errors.Is(delErr, domain.ErrItemNotFound) {
				log.Error("failed to remove completed item", "item_id", item.ID, "error", delErr)
			}
			summary.Succeeded++

		case errors.Is(err, errVetoed):
			if delErr := p.queue.Delete(ctx, item); delErr != nil && !errors.Is(delErr, domain.ErrItemNotFound) {
				log.Error("failed to remove vetoed item", "item_id", item.ID, "error", delErr)
			}
			summary.Skipped++

		case remote.IsAuth(err):
			// Put the item back untouched and stop the whole cycle.
			if relErr := p.queue.Release(ctx, item); relErr != nil {
				log.Error("failed to release item after auth failure", "item_id", item.ID, "error", relErr)
			}
			summary.Duration = p.clk.Since(start)
			p.fireFailed(ctx, m, item, err)
			return summary, fmt.Errorf("%w: %s", domain.ErrCycleAborted, err.Error())

		case remote.IsValidation(err):
			// Validation failures never fix themselves; quarantine now.
			if failErr := p.queue.Fail(ctx, item, err.Error(), true); failErr != nil {
				log.Error("failed to quarantine item", "item_id", item.ID, "error", failErr)
			}
			summary.Failed++
			summary.Quarantined++
			log.Warn("push item quarantined",
				"mapping_id", m.ID, "item_id", item.ID, "local_id", item.LocalID, "error", err)
			p.fireFailed(ctx, m, item, err)

		default:
			quarantine := item.FailureCount+1 >= p.opts.MaxFailures
			if failErr := p.queue.Fail(ctx, item, err.Error(), quarantine); failErr != nil {
				log.Error("failed to record item failure", "item_id", item.ID, "error", failErr)
			}
			summary.Failed++
			if quarantine {
				summary.Quarantined++
				log.Warn("push item exceeded failure ceiling, quarantined",
					"mapping_id", m.ID, "item_id", item.ID, "failures", item.FailureCount+1)
			}
			p.fireFailed(ctx, m, item, err)
		}
	}

	summary.Duration = p.clk.Since(start)
	return summary, nil
}

func (p *Processor) processItem(ctx context.Context, m *domain.Mapping, item *domain.PushQueueItem) error {
	if item.Operation == domain.OperationDelete {
		return p.processDelete(ctx, m, item)
	}

	rec, err := p.store.Load(ctx, m.LocalType, item.LocalID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		// The record vanished between enqueue and processing. Nothing to
		// push; a delete trigger, if configured, queued its own item.
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading %s/%s: %w", m.LocalType, item.LocalID, err)
	}

	hc := &event.Context{
		Hook:      event.PushAllowed,
		Mapping:   m,
		Local:     rec,
		Operation: item.Operation,
	}
	if err := p.bus.Fire(ctx, hc); err != nil {
		return err
	}
	if hc.Vetoed() {
		logger.FromContext(ctx).Debug(event.LogMsgActionVetoed,
			"hook", event.PushAllowed, "mapping_id", m.ID,
			"local_id", rec.ID, "reason", hc.VetoReason())
		return errVetoed
	}

	payload, err := p.translator.BuildPushPayload(ctx, m, rec)
	if err != nil {
		return err
	}

	link, err := p.links.GetByLocal(ctx, m.ID, item.LocalID)
	if err != nil && !errors.Is(err, domain.ErrLinkNotFound) {
		return fmt.Errorf("resolving link for %s/%s: %w", m.ID, item.LocalID, err)
	}
	if errors.Is(err, domain.ErrLinkNotFound) {
		link = nil
	}

	var remoteID string
	switch {
	case m.ExternalKeyField != "":
		remoteID, err = p.pushByExternalKey(ctx, m, rec, payload)
	case link != nil:
		remoteID, err = p.pushUpdate(ctx, m, link, payload)
	default:
		remoteID, err = p.pushCreate(ctx, m, item, payload)
	}
	if err != nil {
		return err
	}

	if err := p.links.Upsert(ctx, &domain.LinkedRecord{
		MappingID:    m.ID,
		LocalType:    m.LocalType,
		LocalID:      item.LocalID,
		RemoteID:     remoteID,
		LastSyncedAt: p.clk.Now(),
	}); err != nil {
		return fmt.Errorf("persisting link %s -> %s: %w", item.LocalID, remoteID, err)
	}

	p.fire(ctx, &event.Context{
		Hook:      event.PushSucceeded,
		Mapping:   m,
		Local:     rec,
		Payload:   payload,
		Operation: item.Operation,
	})
	return nil
}

// processDelete propagates a local deletion. A record that was never pushed
// has no link and nothing to delete remotely; that is success, not an error.
// The local record is already gone, so the allowed-check context carries no
// Local; subscribers judge the delete by mapping and operation.
func (p *Processor) processDelete(ctx context.Context, m *domain.Mapping, item *domain.PushQueueItem) error {
	link, err := p.links.GetByLocal(ctx, m.ID, item.LocalID)
	if errors.Is(err, domain.ErrLinkNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolving link for delete %s/%s: %w", m.ID, item.LocalID, err)
	}

	hc := &event.Context{
		Hook:      event.PushAllowed,
		Mapping:   m,
		Operation: domain.OperationDelete,
	}
	if err := p.bus.Fire(ctx, hc); err != nil {
		return err
	}
	if hc.Vetoed() {
		logger.FromContext(ctx).Debug(event.LogMsgActionVetoed,
			"hook", event.PushAllowed, "mapping_id", m.ID,
			"local_id", item.LocalID, "reason", hc.VetoReason())
		return errVetoed
	}

	err = p.client.Delete(ctx, m.RemoteObject, link.RemoteID)
	if err != nil && !remote.IsNotFound(err) {
		return err
	}
	if err := p.links.Delete(ctx, link.ID); err != nil && !errors.Is(err, domain.ErrLinkNotFound) {
		return fmt.Errorf("removing link %s: %w", link.ID, err)
	}

	p.fire(ctx, &event.Context{
		Hook:      event.PushSucceeded,
		Mapping:   m,
		Operation: domain.OperationDelete,
	})
	return nil
}

// pushByExternalKey upserts by the mapping's external key. Some remote APIs
// only return an id when the upsert created a record; an empty id on update
// forces a read-back query so the link is never persisted blind.
func (p *Processor) pushByExternalKey(ctx context.Context, m *domain.Mapping, rec *domain.LocalRecord, payload map[string]any) (string, error) {
	keyPath := m.ExternalKeyLocalPath()
	if keyPath == "" {
		return "", remote.NewValidationError("INVALID_MAPPING",
			fmt.Sprintf("mapping %s has external key %s but no attribute binding for it", m.ID, m.ExternalKeyField))
	}
	keyValue := rec.StringAttribute(keyPath)
	if keyValue == "" {
		return "", remote.NewValidationError("MISSING_EXTERNAL_KEY",
			fmt.Sprintf("record %s has no value for external key %s", rec.ID, m.ExternalKeyField))
	}

	remoteID, err := p.client.Upsert(ctx, m.RemoteObject, m.ExternalKeyField, keyValue, payload)
	if err != nil {
		return "", err
	}
	if remoteID != "" {
		return remoteID, nil
	}
	return p.readBackRemoteID(ctx, m, keyValue)
}

func (p *Processor) readBackRemoteID(ctx context.Context, m *domain.Mapping, keyValue string) (string, error) {
	q := remote.NewQuery(m.RemoteObject).
		Select(remote.IDField).
		Where(m.ExternalKeyField, "=", remote.StringValue(keyValue))
	res, err := p.client.Query(ctx, *q)
	if err != nil {
		return "", fmt.Errorf("reading back %s=%s: %w", m.ExternalKeyField, keyValue, err)
	}
	if len(res.Records) == 0 {
		return "", fmt.Errorf("%w: upsert reported success but %s=%s not found",
			domain.ErrMissingRemote, m.ExternalKeyField, keyValue)
	}
	return res.Records[0].ID(), nil
}

// pushUpdate overwrites the linked remote record. If the remote side was
// deleted out-of-band the record is re-created and the link repointed.
func (p *Processor) pushUpdate(ctx context.Context, m *domain.Mapping, link *domain.LinkedRecord, payload map[string]any) (string, error) {
	err := p.client.Update(ctx, m.RemoteObject, link.RemoteID, payload)
	if err == nil {
		return link.RemoteID, nil
	}
	if !remote.IsNotFound(err) {
		return "", err
	}

	logger.FromContext(ctx).Warn("linked remote record is gone, re-creating",
		"mapping_id", m.ID, "local_id", link.LocalID, "remote_id", link.RemoteID)
	return p.client.Create(ctx, m.RemoteObject, payload)
}

// pushCreate inserts a new remote record. The link is re-checked right
// before the call: a concurrent pull may have linked this record since the
// batch was claimed, and creating again would duplicate it remotely.
func (p *Processor) pushCreate(ctx context.Context, m *domain.Mapping, item *domain.PushQueueItem, payload map[string]any) (string, error) {
	link, err := p.links.GetByLocal(ctx, m.ID, item.LocalID)
	if err == nil {
		return p.pushUpdate(ctx, m, link, payload)
	}
	if !errors.Is(err, domain.ErrLinkNotFound) {
		return "", err
	}
	return p.client.Create(ctx, m.RemoteObject, payload)
}

func (p *Processor) fire(ctx context.Context, hc *event.Context) {
	if err := p.bus.Fire(ctx, hc); err != nil {
		logger.FromContext(ctx).Error("extension subscriber failed",
			"hook", hc.Hook, "error", err)
	}
}

func (p *Processor) fireFailed(ctx context.Context, m *domain.Mapping, item *domain.PushQueueItem, cause error) {
	p.fire(ctx, &event.Context{
		Hook:      event.PushFailed,
		Mapping:   m,
		Operation: item.Operation,
		Err:       cause,
	})
}
