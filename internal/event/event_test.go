package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forcelink/forcelink/internal/domain"
)

func TestMemoryBus_SubscribersRunInOrder(t *testing.T) {
	bus := NewMemoryBus()
	var order []int

	for i := 1; i <= 3; i++ {
		i := i
		bus.Subscribe(PushAllowed, func(ctx context.Context, hc *Context) error {
			order = append(order, i)
			return nil
		})
	}

	err := bus.Fire(context.Background(), &Context{Hook: PushAllowed})
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestMemoryBus_VetoIsSticky(t *testing.T) {
	bus := NewMemoryBus()

	bus.Subscribe(PushAllowed, func(ctx context.Context, hc *Context) error {
		hc.Veto("record belongs to a restricted subtype")
		return nil
	})
	// A later subscriber observes the veto but cannot clear it; there is
	// deliberately no API for un-vetoing.
	observedVeto := false
	bus.Subscribe(PushAllowed, func(ctx context.Context, hc *Context) error {
		observedVeto = hc.Vetoed()
		hc.Veto("second veto must not overwrite the first reason")
		return nil
	})

	hc := &Context{Hook: PushAllowed}
	err := bus.Fire(context.Background(), hc)

	assert.NoError(t, err)
	assert.True(t, observedVeto, "later subscriber should still run and see the veto")
	assert.True(t, hc.Vetoed())
	assert.Equal(t, "record belongs to a restricted subtype", hc.VetoReason())
}

func TestMemoryBus_SubscriberErrorsDoNotStopIteration(t *testing.T) {
	bus := NewMemoryBus()
	secondRan := false

	bus.Subscribe(PushPayloadReady, func(ctx context.Context, hc *Context) error {
		return errors.New("subscriber blew up")
	})
	bus.Subscribe(PushPayloadReady, func(ctx context.Context, hc *Context) error {
		secondRan = true
		return nil
	})

	err := bus.Fire(context.Background(), &Context{Hook: PushPayloadReady})
	assert.Error(t, err)
	assert.True(t, secondRan)
}

func TestMemoryBus_PayloadMutation(t *testing.T) {
	bus := NewMemoryBus()
	bus.Subscribe(PushPayloadReady, func(ctx context.Context, hc *Context) error {
		hc.Payload["Status__c"] = "Synced"
		return nil
	})

	hc := &Context{
		Hook:    PushPayloadReady,
		Mapping: &domain.Mapping{ID: "m1"},
		Payload: map[string]any{"Name": "Ada"},
	}
	assert.NoError(t, bus.Fire(context.Background(), hc))
	assert.Equal(t, "Synced", hc.Payload["Status__c"])
	assert.Equal(t, "Ada", hc.Payload["Name"])
}

func TestMemoryBus_NoSubscribersIsNoop(t *testing.T) {
	bus := NewMemoryBus()
	assert.NoError(t, bus.Fire(context.Background(), &Context{Hook: DeleteAllowed}))
}
