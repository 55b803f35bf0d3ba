package push

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/event"
	"github.com/forcelink/forcelink/internal/registry"
	"github.com/forcelink/forcelink/internal/repository"
)

func newEnqueuerFixture() (*Enqueuer, *repository.FakeMappingRepo, *repository.FakePushQueue, *event.MemoryBus) {
	mappings := repository.NewFakeMappingRepo()
	queue := repository.NewFakePushQueue()
	bus := event.NewMemoryBus()
	enq := NewEnqueuer(registry.New(mappings), queue, bus)
	return enq, mappings, queue, bus
}

func TestRecordChangedEnqueuesPerMatchingMapping(t *testing.T) {
	enq, mappings, queue, _ := newEnqueuerFixture()
	mappings.Add(&domain.Mapping{
		ID: "m1", LocalType: "person", RemoteObject: "Contact",
		Triggers: domain.TriggerFlags{LocalCreate: true, LocalUpdate: true},
	})
	mappings.Add(&domain.Mapping{
		ID: "m2", LocalType: "person", RemoteObject: "Lead",
		Triggers: domain.TriggerFlags{LocalUpdate: true},
	})

	rec := &domain.LocalRecord{Type: "person", ID: "p1"}
	require.NoError(t, enq.RecordChanged(context.Background(), domain.ChangeCreate, rec))

	// Only m1 has the create trigger on.
	item, ok := queue.Find("m1", "p1")
	require.True(t, ok)
	assert.Equal(t, domain.OperationCreate, item.Operation)
	_, ok = queue.Find("m2", "p1")
	assert.False(t, ok)

	require.NoError(t, enq.RecordChanged(context.Background(), domain.ChangeUpdate, rec))
	item, ok = queue.Find("m1", "p1")
	require.True(t, ok)
	assert.Equal(t, domain.OperationUpdate, item.Operation, "second change replaces the pending operation")
	_, ok = queue.Find("m2", "p1")
	assert.True(t, ok)

	depth, err := queue.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, depth, "dedup keeps one item per mapping and record")
}

func TestRecordChangedTriggerOff(t *testing.T) {
	enq, mappings, queue, _ := newEnqueuerFixture()
	mappings.Add(&domain.Mapping{
		ID: "m1", LocalType: "person", RemoteObject: "Contact",
		Triggers: domain.TriggerFlags{LocalUpdate: true},
	})

	rec := &domain.LocalRecord{Type: "person", ID: "p1"}
	require.NoError(t, enq.RecordChanged(context.Background(), domain.ChangeDelete, rec))

	depth, err := queue.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestRecordChangedVeto(t *testing.T) {
	enq, mappings, queue, bus := newEnqueuerFixture()
	mappings.Add(&domain.Mapping{
		ID: "m1", LocalType: "person", RemoteObject: "Contact",
		Triggers: domain.TriggerFlags{LocalUpdate: true},
	})
	bus.Subscribe(event.PushEnqueueAllowed, func(_ context.Context, hc *event.Context) error {
		if hc.Local.StringAttribute("status") == "draft" {
			hc.Veto("drafts are not synced")
		}
		return nil
	})

	draft := &domain.LocalRecord{Type: "person", ID: "p1", Attributes: map[string]any{"status": "draft"}}
	require.NoError(t, enq.RecordChanged(context.Background(), domain.ChangeUpdate, draft))
	depth, err := queue.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	live := &domain.LocalRecord{Type: "person", ID: "p2", Attributes: map[string]any{"status": "live"}}
	require.NoError(t, enq.RecordChanged(context.Background(), domain.ChangeUpdate, live))
	_, ok := queue.Find("m1", "p2")
	assert.True(t, ok)
}
