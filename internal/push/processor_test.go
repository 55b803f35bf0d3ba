package push

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forcelink/forcelink/internal/clock"
	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/event"
	"github.com/forcelink/forcelink/internal/fieldmap"
	"github.com/forcelink/forcelink/internal/remote"
	"github.com/forcelink/forcelink/internal/repository"
	"github.com/forcelink/forcelink/internal/store"
)

type processorFixture struct {
	processor *Processor
	queue     *repository.FakePushQueue
	links     *repository.FakeLinkRepo
	store     *store.MemoryStore
	client    *remote.FakeClient
	bus       *event.MemoryBus
	clk       *clock.SimulatedClock
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	queue := repository.NewFakePushQueue()
	links := repository.NewFakeLinkRepo()
	st := store.NewMemoryStore()
	client := remote.NewFakeClient()
	bus := event.NewMemoryBus()
	clk := clock.NewSimulatedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	st.SetNowFunc(clk.Now)

	proc := NewProcessor(queue, links, st, fieldmap.NewTranslator(links, bus), client, bus, clk, Options{
		BatchSize:   50,
		Lease:       2 * time.Minute,
		MaxFailures: 3,
	})
	return &processorFixture{processor: proc, queue: queue, links: links, store: st, client: client, bus: bus, clk: clk}
}

func pushMapping() *domain.Mapping {
	return &domain.Mapping{
		ID: "m1", Name: "contacts", LocalType: "person", RemoteObject: "Contact",
		Triggers: domain.TriggerFlags{LocalCreate: true, LocalUpdate: true, LocalDelete: true},
		Bindings: []domain.FieldBinding{
			{RemoteField: "LastName", Kind: domain.BindingAttribute, Direction: domain.DirectionBoth, LocalPath: "name.last"},
			{RemoteField: "Email", Kind: domain.BindingAttribute, Direction: domain.DirectionBoth, LocalPath: "email"},
		},
	}
}

func (f *processorFixture) seedLocal(t *testing.T, id string, attrs map[string]any) {
	t.Helper()
	rec := &domain.LocalRecord{Type: "person", ID: id, Attributes: attrs}
	require.NoError(t, f.store.Save(context.Background(), rec, store.SuppressPushTrigger()))
}

func TestProcessCreateLinksRecord(t *testing.T) {
	f := newProcessorFixture(t)
	m := pushMapping()
	f.seedLocal(t, "p1", map[string]any{"name": map[string]any{"last": "Okafor"}, "email": "o@x.example"})
	require.NoError(t, f.queue.Enqueue(context.Background(), m.ID, "p1", domain.OperationCreate))

	summary, err := f.processor.ProcessMapping(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	link, err := f.links.GetByLocal(context.Background(), m.ID, "p1")
	require.NoError(t, err)
	remoteRec := f.client.Get("Contact", link.RemoteID)
	require.NotNil(t, remoteRec)
	assert.Equal(t, "Okafor", remoteRec.String("LastName"))

	depth, err := f.queue.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, depth, "completed item must leave the queue")
}

func TestProcessUpdateUsesLink(t *testing.T) {
	f := newProcessorFixture(t)
	m := pushMapping()
	remoteID := f.client.Seed("Contact", remote.Record{"LastName": "Old"})
	require.NoError(t, f.links.Upsert(context.Background(), &domain.LinkedRecord{
		MappingID: m.ID, LocalType: "person", LocalID: "p1", RemoteID: remoteID,
	}))
	f.seedLocal(t, "p1", map[string]any{"name": map[string]any{"last": "New"}})
	require.NoError(t, f.queue.Enqueue(context.Background(), m.ID, "p1", domain.OperationUpdate))

	summary, err := f.processor.ProcessMapping(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, "New", f.client.Get("Contact", remoteID).String("LastName"))
	assert.Equal(t, 1, f.client.Count("Contact"), "update must not create a second remote record")
}

func TestProcessUpdateRemoteGoneRecreates(t *testing.T) {
	f := newProcessorFixture(t)
	m := pushMapping()
	require.NoError(t, f.links.Upsert(context.Background(), &domain.LinkedRecord{
		MappingID: m.ID, LocalType: "person", LocalID: "p1", RemoteID: "contact-gone",
	}))
	f.seedLocal(t, "p1", map[string]any{"name": map[string]any{"last": "Okafor"}})
	require.NoError(t, f.queue.Enqueue(context.Background(), m.ID, "p1", domain.OperationUpdate))

	summary, err := f.processor.ProcessMapping(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	link, err := f.links.GetByLocal(context.Background(), m.ID, "p1")
	require.NoError(t, err)
	assert.NotEqual(t, "contact-gone", link.RemoteID, "link must point at the re-created record")
	assert.NotNil(t, f.client.Get("Contact", link.RemoteID))
}

func TestProcessUpsertByExternalKey(t *testing.T) {
	f := newProcessorFixture(t)
	m := pushMapping()
	m.ExternalKeyField = "Email"
	existingID := f.client.Seed("Contact", remote.Record{"Email": "o@x.example", "LastName": "Old"})

	f.seedLocal(t, "p1", map[string]any{"name": map[string]any{"last": "New"}, "email": "o@x.example"})
	require.NoError(t, f.queue.Enqueue(context.Background(), m.ID, "p1", domain.OperationUpdate))

	summary, err := f.processor.ProcessMapping(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, f.client.Count("Contact"))

	link, err := f.links.GetByLocal(context.Background(), m.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, existingID, link.RemoteID)
}

func TestProcessUpsertEmptyIDReadsBack(t *testing.T) {
	f := newProcessorFixture(t)
	f.client.EmptyUpsertID = true
	m := pushMapping()
	m.ExternalKeyField = "Email"
	existingID := f.client.Seed("Contact", remote.Record{"Email": "o@x.example"})

	f.seedLocal(t, "p1", map[string]any{"name": map[string]any{"last": "Okafor"}, "email": "o@x.example"})
	require.NoError(t, f.queue.Enqueue(context.Background(), m.ID, "p1", domain.OperationUpdate))

	summary, err := f.processor.ProcessMapping(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	link, err := f.links.GetByLocal(context.Background(), m.ID, "p1")
	require.NoError(t, err, "link must be persisted even when the upsert reported no id")
	assert.Equal(t, existingID, link.RemoteID)
}

func TestProcessDelete(t *testing.T) {
	f := newProcessorFixture(t)
	m := pushMapping()
	remoteID := f.client.Seed("Contact", remote.Record{"LastName": "Okafor"})
	require.NoError(t, f.links.Upsert(context.Background(), &domain.LinkedRecord{
		MappingID: m.ID, LocalType: "person", LocalID: "p1", RemoteID: remoteID,
	}))
	require.NoError(t, f.queue.Enqueue(context.Background(), m.ID, "p1", domain.OperationDelete))

	summary, err := f.processor.ProcessMapping(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Nil(t, f.client.Get("Contact", remoteID))
	assert.Equal(t, 0, f.links.Count(), "link is removed with the remote record")
}

func TestProcessDeleteWithoutLinkSucceeds(t *testing.T) {
	f := newProcessorFixture(t)
	m := pushMapping()
	require.NoError(t, f.queue.Enqueue(context.Background(), m.ID, "p1", domain.OperationDelete))

	summary, err := f.processor.ProcessMapping(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded, "never-pushed record has nothing to delete remotely")
}

func TestProcessVetoSkips(t *testing.T) {
	f := newProcessorFixture(t)
	m := pushMapping()
	f.bus.Subscribe(event.PushAllowed, func(_ context.Context, hc *event.Context) error {
		hc.Veto("frozen by extension")
		return nil
	})
	f.seedLocal(t, "p1", map[string]any{"email": "o@x.example"})
	require.NoError(t, f.queue.Enqueue(context.Background(), m.ID, "p1", domain.OperationCreate))

	summary, err := f.processor.ProcessMapping(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, f.client.Count("Contact"))

	depth, err := f.queue.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, depth, "vetoed item leaves the queue without remote contact")
}

func TestProcessDeleteVetoKeepsRemoteRecord(t *testing.T) {
	f := newProcessorFixture(t)
	m := pushMapping()
	remoteID := f.client.Seed("Contact", remote.Record{"LastName": "Okafor"})
	require.NoError(t, f.links.Upsert(context.Background(), &domain.LinkedRecord{
		MappingID: m.ID, LocalType: "person", LocalID: "p1", RemoteID: remoteID,
	}))
	f.bus.Subscribe(event.PushAllowed, func(_ context.Context, hc *event.Context) error {
		if hc.Operation == domain.OperationDelete {
			hc.Veto("deletes held back by extension")
		}
		return nil
	})
	require.NoError(t, f.queue.Enqueue(context.Background(), m.ID, "p1", domain.OperationDelete))

	summary, err := f.processor.ProcessMapping(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Succeeded)
	assert.NotNil(t, f.client.Get("Contact", remoteID), "vetoed delete must not reach the remote system")
	assert.Equal(t, 1, f.links.Count(), "vetoed delete keeps the link")

	depth, err := f.queue.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, depth, "vetoed item leaves the queue")
}

// raceLinkRepo reports no link on the first lookup, then links the record
// before answering the second. This is the concurrent-pull window: a pull
// lands between the processor's link resolution and the create call.
type raceLinkRepo struct {
	*repository.FakeLinkRepo
	localType string
	remoteID  string
	lookups   int
}

func (r *raceLinkRepo) GetByLocal(ctx context.Context, mappingID, localID string) (*domain.LinkedRecord, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, domain.ErrLinkNotFound
	}
	if r.lookups == 2 {
		if err := r.FakeLinkRepo.Upsert(ctx, &domain.LinkedRecord{
			MappingID: mappingID, LocalType: r.localType, LocalID: localID, RemoteID: r.remoteID,
		}); err != nil {
			return nil, err
		}
	}
	return r.FakeLinkRepo.GetByLocal(ctx, mappingID, localID)
}

func TestProcessCreateLinkedConcurrentlyUpdatesInstead(t *testing.T) {
	queue := repository.NewFakePushQueue()
	st := store.NewMemoryStore()
	client := remote.NewFakeClient()
	bus := event.NewMemoryBus()
	clk := clock.NewSimulatedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	st.SetNowFunc(clk.Now)

	m := pushMapping()
	remoteID := client.Seed("Contact", remote.Record{"LastName": "Old", "Email": "o@x.example"})
	links := &raceLinkRepo{FakeLinkRepo: repository.NewFakeLinkRepo(), localType: "person", remoteID: remoteID}

	proc := NewProcessor(queue, links, st, fieldmap.NewTranslator(links, bus), client, bus, clk, Options{
		BatchSize: 50, Lease: 2 * time.Minute, MaxFailures: 3,
	})

	rec := &domain.LocalRecord{Type: "person", ID: "p1", Attributes: map[string]any{
		"name": map[string]any{"last": "New"}, "email": "o@x.example",
	}}
	require.NoError(t, st.Save(context.Background(), rec, store.SuppressPushTrigger()))
	require.NoError(t, queue.Enqueue(context.Background(), m.ID, "p1", domain.OperationCreate))

	summary, err := proc.ProcessMapping(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, client.Count("Contact"), "re-checked create must not duplicate the remote record")
	assert.Equal(t, "New", client.Get("Contact", remoteID).String("LastName"))

	link, err := links.FakeLinkRepo.GetByLocal(context.Background(), m.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, remoteID, link.RemoteID)
	assert.Equal(t, 1, links.Count())
}

func TestValidationErrorQuarantinesImmediately(t *testing.T) {
	f := newProcessorFixture(t)
	m := pushMapping()
	f.client.CreateErr = remote.NewValidationError("REQUIRED_FIELD_MISSING", "LastName required")
	f.seedLocal(t, "p1", map[string]any{"email": "o@x.example"})
	require.NoError(t, f.queue.Enqueue(context.Background(), m.ID, "p1", domain.OperationCreate))

	summary, err := f.processor.ProcessMapping(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Quarantined)

	quarantined, err := f.queue.ListQuarantined(context.Background())
	require.NoError(t, err)
	require.Len(t, quarantined, 1)
	assert.Equal(t, 1, quarantined[0].FailureCount)
	assert.Contains(t, quarantined[0].LastError, "REQUIRED_FIELD_MISSING")
}

func TestTransientErrorRetriesThenQuarantines(t *testing.T) {
	f := newProcessorFixture(t)
	m := pushMapping()
	f.client.CreateErr = remote.NewTransientError(503, "service unavailable")
	f.seedLocal(t, "p1", map[string]any{"email": "o@x.example"})
	require.NoError(t, f.queue.Enqueue(context.Background(), m.ID, "p1", domain.OperationCreate))

	// MaxFailures is 3: two failed cycles keep the item active.
	for i := 0; i < 2; i++ {
		summary, err := f.processor.ProcessMapping(context.Background(), m)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 0, summary.Quarantined)
		f.clk.Advance(5 * time.Minute)
	}

	summary, err := f.processor.ProcessMapping(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Quarantined)

	quarantined, err := f.queue.ListQuarantined(context.Background())
	require.NoError(t, err)
	require.Len(t, quarantined, 1)
	assert.Equal(t, 3, quarantined[0].FailureCount)
}

func TestAuthErrorAbortsCycle(t *testing.T) {
	f := newProcessorFixture(t)
	m := pushMapping()
	f.client.CreateErr = remote.NewAuthError("session expired")
	f.seedLocal(t, "p1", map[string]any{"email": "a@x.example"})
	f.seedLocal(t, "p2", map[string]any{"email": "b@x.example"})
	require.NoError(t, f.queue.Enqueue(context.Background(), m.ID, "p1", domain.OperationCreate))
	require.NoError(t, f.queue.Enqueue(context.Background(), m.ID, "p2", domain.OperationCreate))

	summary, err := f.processor.ProcessMapping(context.Background(), m)
	require.ErrorIs(t, err, domain.ErrCycleAborted)
	assert.Equal(t, 0, summary.Succeeded)

	// Neither item may be quarantined or lose a retry: the credential is
	// the problem, not the records.
	quarantined, qErr := f.queue.ListQuarantined(context.Background())
	require.NoError(t, qErr)
	assert.Empty(t, quarantined)
	item, ok := f.queue.Find(m.ID, "p1")
	require.True(t, ok)
	assert.Equal(t, 0, item.FailureCount)
}

func TestLocalRecordGoneDropsItem(t *testing.T) {
	f := newProcessorFixture(t)
	m := pushMapping()
	require.NoError(t, f.queue.Enqueue(context.Background(), m.ID, "missing", domain.OperationUpdate))

	summary, err := f.processor.ProcessMapping(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	depth, err := f.queue.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}
