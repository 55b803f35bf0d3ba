package pull

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

type pullFixture struct {
	service  *Service
	mappings *repository.FakeMappingRepo
	links    *repository.FakeLinkRepo
	store    *store.MemoryStore
	client   *remote.FakeClient
	bus      *event.MemoryBus
	clk      *clock.SimulatedClock
}

func newPullFixture(t *testing.T) *pullFixture {
	t.Helper()
	mappings := repository.NewFakeMappingRepo()
	links := repository.NewFakeLinkRepo()
	st := store.NewMemoryStore()
	client := remote.NewFakeClient()
	bus := event.NewMemoryBus()
	clk := clock.NewSimulatedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	st.SetNowFunc(clk.Now)
	client.NowFunc = clk.Now

	translator := fieldmap.NewTranslator(links, bus)
	service := NewService(mappings, NewPlanner(bus), NewWorker(links, st, translator, client, bus, clk), client, clk)
	return &pullFixture{service: service, mappings: mappings, links: links, store: st, client: client, bus: bus, clk: clk}
}

func pullMapping() *domain.Mapping {
	return &domain.Mapping{
		ID: "m1", Name: "contacts", LocalType: "person", RemoteObject: "Contact",
		PullDateField: "SystemModstamp",
		Triggers:      domain.TriggerFlags{RemoteCreate: true, RemoteUpdate: true},
		Bindings: []domain.FieldBinding{
			{RemoteField: "LastName", Kind: domain.BindingAttribute, Direction: domain.DirectionBoth, LocalPath: "name.last"},
			{RemoteField: "Email", Kind: domain.BindingAttribute, Direction: domain.DirectionBoth, LocalPath: "email"},
		},
	}
}

func stamp(t time.Time) string {
	return t.UTC().Format(remote.TimeLayout)
}

func (f *pullFixture) seedRemote(modified time.Time, fields remote.Record) string {
	fields["SystemModstamp"] = stamp(modified)
	return f.client.Seed("Contact", fields)
}

func TestPullCreatesLocalRecord(t *testing.T) {
	f := newPullFixture(t)
	m := pullMapping()
	f.mappings.Add(m)
	remoteID := f.seedRemote(f.clk.Now().Add(-time.Hour), remote.Record{"LastName": "Okafor", "Email": "o@x.example"})

	summary, err := f.service.RunCycle(context.Background(), m, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	link, err := f.links.GetByRemote(context.Background(), m.ID, remoteID)
	require.NoError(t, err)
	local, err := f.store.Load(context.Background(), "person", link.LocalID)
	require.NoError(t, err)
	assert.Equal(t, "Okafor", local.StringAttribute("name.last"))
	assert.Equal(t, "o@x.example", local.StringAttribute("email"))
}

func TestPullDoesNotRetriggerPush(t *testing.T) {
	f := newPullFixture(t)
	m := pullMapping()
	f.mappings.Add(m)
	f.seedRemote(f.clk.Now().Add(-time.Hour), remote.Record{"LastName": "Okafor"})

	var observed int
	f.store.Observe(func(context.Context, domain.ChangeKind, *domain.LocalRecord) error {
		observed++
		return nil
	})

	_, err := f.service.RunCycle(context.Background(), m, false)
	require.NoError(t, err)
	assert.Equal(t, 0, observed, "pull-applied saves must not notify change observers")
}

func TestPullConflictResolution(t *testing.T) {
	f := newPullFixture(t)
	m := pullMapping()
	f.mappings.Add(m)

	// Local record modified now, remote modified earlier: local wins.
	remoteID := f.seedRemote(f.clk.Now().Add(-2*time.Hour), remote.Record{"LastName": "Stale"})
	local := &domain.LocalRecord{Type: "person", ID: "p1", Attributes: map[string]any{"name": map[string]any{"last": "Fresh"}}}
	require.NoError(t, f.store.Save(context.Background(), local, store.SuppressPushTrigger()))
	require.NoError(t, f.links.Upsert(context.Background(), &domain.LinkedRecord{
		MappingID: m.ID, LocalType: "person", LocalID: "p1", RemoteID: remoteID,
	}))

	summary, err := f.service.RunCycle(context.Background(), m, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)

	got, err := f.store.Load(context.Background(), "person", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Fresh", got.StringAttribute("name.last"), "older remote must not clobber newer local edit")

	// Remote modified after the local edit: remote wins next cycle.
	f.clk.Advance(time.Hour)
	require.NoError(t, f.client.Update(context.Background(), "Contact", remoteID, map[string]any{
		"LastName": "Remote", "SystemModstamp": stamp(f.clk.Now()),
	}))
	f.clk.Advance(time.Minute)

	summary, err = f.service.RunCycle(context.Background(), m, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	got, err = f.store.Load(context.Background(), "person", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Remote", got.StringAttribute("name.last"))
}

func TestPullForceOverridesConflict(t *testing.T) {
	f := newPullFixture(t)
	m := pullMapping()
	f.mappings.Add(m)

	remoteID := f.seedRemote(f.clk.Now().Add(-2*time.Hour), remote.Record{"LastName": "Remote"})
	local := &domain.LocalRecord{Type: "person", ID: "p1", Attributes: map[string]any{"name": map[string]any{"last": "Local"}}}
	require.NoError(t, f.store.Save(context.Background(), local, store.SuppressPushTrigger()))
	require.NoError(t, f.links.Upsert(context.Background(), &domain.LinkedRecord{
		MappingID: m.ID, LocalType: "person", LocalID: "p1", RemoteID: remoteID,
	}))

	summary, err := f.service.RunCycle(context.Background(), m, true)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	got, err := f.store.Load(context.Background(), "person", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Remote", got.StringAttribute("name.last"))
}

func TestPullForcePullFlagIsOneShot(t *testing.T) {
	f := newPullFixture(t)
	m := pullMapping()
	f.mappings.Add(m)

	remoteID := f.seedRemote(f.clk.Now().Add(-2*time.Hour), remote.Record{"LastName": "Remote"})
	local := &domain.LocalRecord{Type: "person", ID: "p1", Attributes: map[string]any{"name": map[string]any{"last": "Local"}}}
	require.NoError(t, f.store.Save(context.Background(), local, store.SuppressPushTrigger()))
	require.NoError(t, f.links.Upsert(context.Background(), &domain.LinkedRecord{
		MappingID: m.ID, LocalType: "person", LocalID: "p1", RemoteID: remoteID, ForcePull: true,
	}))

	summary, err := f.service.RunCycle(context.Background(), m, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	link, err := f.links.GetByRemote(context.Background(), m.ID, remoteID)
	require.NoError(t, err)
	assert.False(t, link.ForcePull, "a successful forced pull consumes the flag")
}

func TestPullWindowBounds(t *testing.T) {
	f := newPullFixture(t)
	m := pullMapping()
	// Previous cycle pulled up to an hour ago.
	last := f.clk.Now().Add(-time.Hour)
	m.LastPullAt = &last
	f.mappings.Add(m)

	f.seedRemote(f.clk.Now().Add(-2*time.Hour), remote.Record{"LastName": "BeforeWatermark"})
	f.seedRemote(f.clk.Now().Add(-time.Minute), remote.Record{"LastName": "InWindow"})
	f.seedRemote(f.clk.Now().Add(time.Minute), remote.Record{"LastName": "AfterWindowEnd"})

	summary, err := f.service.RunCycle(context.Background(), m, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded, "only the record inside (lastPull, windowEnd] is pulled")
	assert.Equal(t, 1, f.store.Count())
}

func TestPullWatermarkAdvancesOnCleanCycle(t *testing.T) {
	f := newPullFixture(t)
	m := pullMapping()
	f.mappings.Add(m)
	f.seedRemote(f.clk.Now().Add(-time.Hour), remote.Record{"LastName": "Okafor"})
	windowEnd := f.clk.Now()

	_, err := f.service.RunCycle(context.Background(), m, false)
	require.NoError(t, err)

	got, err := f.mappings.GetMapping(context.Background(), m.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastPullAt)
	assert.True(t, got.LastPullAt.Equal(windowEnd))
}

func TestPullWatermarkStaysOnFailure(t *testing.T) {
	f := newPullFixture(t)
	m := pullMapping()
	f.mappings.Add(m)
	f.seedRemote(f.clk.Now().Add(-time.Hour), remote.Record{"LastName": "Okafor"})

	// A record-level failure: applying fails because the store rejects it.
	f.bus.Subscribe(event.PullBeforeCreate, func(context.Context, *event.Context) error {
		return assert.AnError
	})

	summary, err := f.service.RunCycle(context.Background(), m, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	got, err := f.mappings.GetMapping(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastPullAt, "failed cycle must leave the watermark so the window is re-read")
}

func TestPullVetoBeforeCreate(t *testing.T) {
	f := newPullFixture(t)
	m := pullMapping()
	f.mappings.Add(m)
	f.seedRemote(f.clk.Now().Add(-time.Hour), remote.Record{"LastName": "Okafor"})
	f.bus.Subscribe(event.PullBeforeCreate, func(_ context.Context, hc *event.Context) error {
		hc.Veto("not wanted locally")
		return nil
	})

	summary, err := f.service.RunCycle(context.Background(), m, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, f.store.Count())
}

func TestPullPagination(t *testing.T) {
	f := newPullFixture(t)
	f.client.PageSize = 2
	m := pullMapping()
	f.mappings.Add(m)
	for i := 0; i < 5; i++ {
		f.seedRemote(f.clk.Now().Add(-time.Hour), remote.Record{"LastName": "Rec"})
	}

	summary, err := f.service.RunCycle(context.Background(), m, false)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Succeeded)
	assert.Equal(t, 5, f.store.Count())
}

func TestPullAuthErrorAbortsCycle(t *testing.T) {
	f := newPullFixture(t)
	m := pullMapping()
	f.mappings.Add(m)
	f.client.QueryErr = remote.NewAuthError("session expired")

	_, err := f.service.RunCycle(context.Background(), m, false)
	require.ErrorIs(t, err, domain.ErrCycleAborted)

	got, err := f.mappings.GetMapping(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastPullAt)
}

func TestPullMissingCredentialAbortsCycle(t *testing.T) {
	mappings := repository.NewFakeMappingRepo()
	links := repository.NewFakeLinkRepo()
	st := store.NewMemoryStore()
	inner := remote.NewFakeClient()
	bus := event.NewMemoryBus()
	clk := clock.NewSimulatedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	st.SetNowFunc(clk.Now)
	inner.NowFunc = clk.Now

	client := remote.WithAuth(inner, remote.StaticTokenProvider{})
	translator := fieldmap.NewTranslator(links, bus)
	service := NewService(mappings, NewPlanner(bus), NewWorker(links, st, translator, client, bus, clk), client, clk)

	m := pullMapping()
	mappings.Add(m)
	inner.Seed("Contact", remote.Record{"LastName": "Okafor", "SystemModstamp": stamp(clk.Now().Add(-time.Hour))})

	_, err := service.RunCycle(context.Background(), m, false)
	require.ErrorIs(t, err, domain.ErrCycleAborted)

	got, err := mappings.GetMapping(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastPullAt, "aborted cycle must not advance the watermark")
}

func TestPullSeedsExternalKeyOnCreate(t *testing.T) {
	f := newPullFixture(t)
	m := pullMapping()
	m.ExternalKeyField = "Local_Key__c"
	m.Bindings = append(m.Bindings, domain.FieldBinding{
		RemoteField: "Local_Key__c", Kind: domain.BindingAttribute,
		Direction: domain.DirectionBoth, LocalPath: "sync_key",
	})
	f.mappings.Add(m)
	remoteID := f.seedRemote(f.clk.Now().Add(-time.Hour), remote.Record{"LastName": "Okafor"})

	summary, err := f.service.RunCycle(context.Background(), m, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	link, err := f.links.GetByRemote(context.Background(), m.ID, remoteID)
	require.NoError(t, err)
	local, err := f.store.Load(context.Background(), "person", link.LocalID)
	require.NoError(t, err)

	key := local.StringAttribute("sync_key")
	require.NotEmpty(t, key, "pull-created record gets an external key")
	assert.Equal(t, key, f.client.Get("Contact", remoteID).String("Local_Key__c"),
		"the key is written back so future pushes upsert onto this record")
}
