package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/remote"
)

// Hook names an extension point in push/pull processing.
type Hook string

// Extension points fired by the sync engine. Veto-able hooks carry a
// sticky disallow flag; observe-only hooks ignore it.
const (
	// PushEnqueueAllowed fires before a local mutation is enqueued. Veto-able.
	PushEnqueueAllowed Hook = "push.enqueue_allowed"
	// PushAllowed fires before the remote system is contacted for an item. Veto-able.
	PushAllowed Hook = "push.allowed"
	// PushPayloadReady fires with the assembled outbound payload. Mutate-only.
	PushPayloadReady Hook = "push.payload_ready"
	// PushSucceeded and PushFailed are observe-only.
	PushSucceeded Hook = "push.succeeded"
	PushFailed    Hook = "push.failed"

	// PullQueryBuild fires with the planned remote query. Subscribers may
	// append conditions. Mutate-only.
	PullQueryBuild Hook = "pull.query_build"
	// PullBeforeCreate and PullBeforeUpdate fire per remote record before
	// translation is applied. Veto-able.
	PullBeforeCreate Hook = "pull.before_create"
	PullBeforeUpdate Hook = "pull.before_update"
	// PullValue fires per inbound field value. Veto-able per value.
	PullValue Hook = "pull.value"
	// PullApplied is observe-only.
	PullApplied Hook = "pull.applied"

	// DeleteAllowed fires before a remote tombstone removes a local record. Veto-able.
	DeleteAllowed Hook = "delete.allowed"
)

// Context is the mutable payload handed to subscribers of one hook firing.
// Which fields are set depends on the hook.
type Context struct {
	Hook    Hook
	Mapping *domain.Mapping

	// Local is the local record in play, when one exists yet.
	Local *domain.LocalRecord
	// Remote is the remote snapshot, pull-side.
	Remote remote.Record

	// Payload is the outbound field map (PushPayloadReady). Subscribers
	// may mutate values in place.
	Payload map[string]any

	// Field and Value carry one inbound value (PullValue). Subscribers
	// may replace Value.
	Field string
	Value any

	// Query is the planned pull query (PullQueryBuild).
	Query *remote.Query

	// Operation is the queue operation under decision, push-side.
	Operation domain.Operation

	// Err carries the failure on PushFailed.
	Err error

	vetoed     bool
	vetoReason string
}

// Veto marks the action disallowed. The veto is sticky: later subscribers
// still run and may observe it, but no subscriber can clear it.
func (c *Context) Veto(reason string) {
	if !c.vetoed {
		c.vetoed = true
		c.vetoReason = reason
	}
}

// Vetoed reports whether any subscriber disallowed the action.
func (c *Context) Vetoed() bool { return c.vetoed }

// VetoReason returns the first veto's reason, or "".
func (c *Context) VetoReason() string { return c.vetoReason }

// Subscriber is a function that handles one hook firing.
type Subscriber func(ctx context.Context, hc *Context) error

// Bus defines the interface for the extension-point bus.
type Bus interface {
	Fire(ctx context.Context, hc *Context) error
	Subscribe(hook Hook, sub Subscriber)
}

// MemoryBus is the in-process implementation of the extension-point bus.
// Subscribers run synchronously in registration order.
type MemoryBus struct {
	subscribers map[Hook][]Subscriber
	mu          sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subscribers: make(map[Hook][]Subscriber),
	}
}

// Fire invokes all subscribers of the hook in registration order. A veto
// does not stop iteration; subscriber errors are collected and do not
// prevent later subscribers from running.
func (b *MemoryBus) Fire(ctx context.Context, hc *Context) error {
	b.mu.RLock()
	subs, ok := b.subscribers[hc.Hook]
	b.mu.RUnlock()

	if !ok {
		return nil
	}

	var errs []error
	for _, sub := range subs {
		if err := sub(ctx, hc); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf(LogMsgSubscriberErrorFormat, len(errs), hc.Hook, errs)
	}

	return nil
}

// Subscribe registers a subscriber for a hook.
func (b *MemoryBus) Subscribe(hook Hook, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[hook] = append(b.subscribers[hook], sub)
}
