package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forcelink/forcelink/internal/clock"
	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/event"
	"github.com/forcelink/forcelink/internal/remote"
	"github.com/forcelink/forcelink/internal/repository"
	"github.com/forcelink/forcelink/internal/store"
)

type reconcileFixture struct {
	reconciler *Reconciler
	mappings   *repository.FakeMappingRepo
	links      *repository.FakeLinkRepo
	store      *store.MemoryStore
	client     *remote.FakeClient
	bus        *event.MemoryBus
	clk        *clock.SimulatedClock
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	mappings := repository.NewFakeMappingRepo()
	links := repository.NewFakeLinkRepo()
	st := store.NewMemoryStore()
	client := remote.NewFakeClient()
	bus := event.NewMemoryBus()
	clk := clock.NewSimulatedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	st.SetNowFunc(clk.Now)
	client.NowFunc = clk.Now

	return &reconcileFixture{
		reconciler: NewReconciler(mappings, links, st, client, bus, clk),
		mappings:   mappings, links: links, store: st, client: client, bus: bus, clk: clk,
	}
}

func reconcileMapping() *domain.Mapping {
	return &domain.Mapping{
		ID: "m1", Name: "contacts", LocalType: "person", RemoteObject: "Contact",
		Triggers: domain.TriggerFlags{RemoteDelete: true},
	}
}

// linkAndSeed creates a linked pair of records and returns the remote id.
func (f *reconcileFixture) linkAndSeed(t *testing.T, m *domain.Mapping, localID string) string {
	t.Helper()
	remoteID := f.client.Seed("Contact", remote.Record{"LastName": "Okafor"})
	require.NoError(t, f.store.Save(context.Background(),
		&domain.LocalRecord{Type: "person", ID: localID}, store.SuppressPushTrigger()))
	require.NoError(t, f.links.Upsert(context.Background(), &domain.LinkedRecord{
		MappingID: m.ID, LocalType: "person", LocalID: localID, RemoteID: remoteID,
	}))
	return remoteID
}

func TestReconcileRemovesLocalRecordAndLink(t *testing.T) {
	f := newReconcileFixture(t)
	m := reconcileMapping()
	f.mappings.Add(m)
	remoteID := f.linkAndSeed(t, m, "p1")

	require.NoError(t, f.client.Delete(context.Background(), "Contact", remoteID))
	f.clk.Advance(5 * time.Minute)

	summary, err := f.reconciler.RunCycle(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, f.store.Count())
	assert.Equal(t, 0, f.links.Count())
}

func TestReconcileDoesNotRetriggerPush(t *testing.T) {
	f := newReconcileFixture(t)
	m := reconcileMapping()
	f.mappings.Add(m)
	remoteID := f.linkAndSeed(t, m, "p1")

	var observed int
	f.store.Observe(func(context.Context, domain.ChangeKind, *domain.LocalRecord) error {
		observed++
		return nil
	})

	require.NoError(t, f.client.Delete(context.Background(), "Contact", remoteID))
	f.clk.Advance(5 * time.Minute)

	_, err := f.reconciler.RunCycle(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 0, observed, "reconciled deletes must not enqueue push work")
}

func TestReconcileTriggerOffSkipsMapping(t *testing.T) {
	f := newReconcileFixture(t)
	m := reconcileMapping()
	m.Triggers.RemoteDelete = false
	f.mappings.Add(m)
	remoteID := f.linkAndSeed(t, m, "p1")

	require.NoError(t, f.client.Delete(context.Background(), "Contact", remoteID))
	f.clk.Advance(5 * time.Minute)

	summary, err := f.reconciler.RunCycle(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total())
	assert.Equal(t, 1, f.store.Count(), "trigger off means the tombstone is ignored entirely")
}

func TestReconcileVetoKeepsLocalRecord(t *testing.T) {
	f := newReconcileFixture(t)
	m := reconcileMapping()
	f.mappings.Add(m)
	remoteID := f.linkAndSeed(t, m, "p1")
	f.bus.Subscribe(event.DeleteAllowed, func(_ context.Context, hc *event.Context) error {
		hc.Veto("local record has open work")
		return nil
	})

	require.NoError(t, f.client.Delete(context.Background(), "Contact", remoteID))
	f.clk.Advance(5 * time.Minute)

	summary, err := f.reconciler.RunCycle(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, f.store.Count())
	assert.Equal(t, 1, f.links.Count())
}

func TestReconcileUnlinkedTombstoneIsSkipped(t *testing.T) {
	f := newReconcileFixture(t)
	m := reconcileMapping()
	f.mappings.Add(m)
	remoteID := f.client.Seed("Contact", remote.Record{"LastName": "Unlinked"})

	require.NoError(t, f.client.Delete(context.Background(), "Contact", remoteID))
	f.clk.Advance(5 * time.Minute)

	summary, err := f.reconciler.RunCycle(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
}

func TestReconcileLocalAlreadyGoneStillRemovesLink(t *testing.T) {
	f := newReconcileFixture(t)
	m := reconcileMapping()
	f.mappings.Add(m)
	remoteID := f.linkAndSeed(t, m, "p1")
	require.NoError(t, f.store.Delete(context.Background(), "person", "p1", store.SuppressPushTrigger()))

	require.NoError(t, f.client.Delete(context.Background(), "Contact", remoteID))
	f.clk.Advance(5 * time.Minute)

	summary, err := f.reconciler.RunCycle(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, f.links.Count())
}

func TestReconcileMinimumWindow(t *testing.T) {
	f := newReconcileFixture(t)
	m := reconcileMapping()
	last := f.clk.Now().Add(-30 * time.Second)
	m.LastDeleteAt = &last
	f.mappings.Add(m)
	remoteID := f.linkAndSeed(t, m, "p1")
	require.NoError(t, f.client.Delete(context.Background(), "Contact", remoteID))

	summary, err := f.reconciler.RunCycle(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total(), "window below the remote minimum is a no-op")

	got, err := f.mappings.GetMapping(context.Background(), m.ID)
	require.NoError(t, err)
	assert.True(t, got.LastDeleteAt.Equal(last), "watermark untouched by a skipped cycle")
}

func TestReconcileWatermarkAdvances(t *testing.T) {
	f := newReconcileFixture(t)
	m := reconcileMapping()
	f.mappings.Add(m)
	windowEnd := f.clk.Now()

	summary, err := f.reconciler.RunCycle(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total())

	got, err := f.mappings.GetMapping(context.Background(), m.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastDeleteAt)
	assert.True(t, got.LastDeleteAt.Equal(windowEnd))
}

func TestReconcileWatermarkStaysOnFailure(t *testing.T) {
	f := newReconcileFixture(t)
	m := reconcileMapping()
	f.mappings.Add(m)
	remoteID := f.linkAndSeed(t, m, "p1")
	f.bus.Subscribe(event.DeleteAllowed, func(context.Context, *event.Context) error {
		return assert.AnError
	})

	require.NoError(t, f.client.Delete(context.Background(), "Contact", remoteID))
	f.clk.Advance(5 * time.Minute)

	summary, err := f.reconciler.RunCycle(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	got, err := f.mappings.GetMapping(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastDeleteAt)
}
