package repository

import (
	"context"
	"time"

	"github.com/forcelink/forcelink/internal/domain"
)

// PushQueue is the durable outbound change queue. Enqueue is an upsert keyed
// on (mapping, local record), so repeated local edits collapse into a single
// pending item. Claiming is lease based: a claimed item becomes visible again
// once its lease expires, which gives at-least-once delivery without a
// separate in-flight table.
type PushQueue interface {
	Enqueue(ctx context.Context, mappingID, localID string, op domain.Operation) error
	// ClaimBatch atomically claims up to limit unclaimed, non-quarantined
	// items for the mapping, ordered oldest first. An empty mappingID claims
	// across all mappings.
	ClaimBatch(ctx context.Context, mappingID string, limit int, lease time.Duration, now time.Time) ([]*domain.PushQueueItem, error)
	// Release clears the claim so the item is immediately eligible again.
	Release(ctx context.Context, item *domain.PushQueueItem) error
	// Delete removes a completed item.
	Delete(ctx context.Context, item *domain.PushQueueItem) error
	// Fail records a processing failure: increments the failure count, stores
	// the cause, clears the claim, and quarantines when asked.
	Fail(ctx context.Context, item *domain.PushQueueItem, cause string, quarantine bool) error
	ListQuarantined(ctx context.Context) ([]*domain.PushQueueItem, error)
	// Retry returns a quarantined item to the active queue with a reset
	// failure count.
	Retry(ctx context.Context, id string) error
	// Purge removes a quarantined item without processing it.
	Purge(ctx context.Context, id string) error
	Depth(ctx context.Context) (int, error)
}
