package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/forcelink/forcelink/internal/domain"
)

// FakeMappingRepo is an in-memory Mapping implementation for tests.
type FakeMappingRepo struct {
	mu       sync.RWMutex
	mappings map[string]*domain.Mapping
}

func NewFakeMappingRepo() *FakeMappingRepo {
	return &FakeMappingRepo{mappings: make(map[string]*domain.Mapping)}
}

func (r *FakeMappingRepo) Add(m *domain.Mapping) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.mappings[m.ID] = &cp
}

func (r *FakeMappingRepo) GetMapping(_ context.Context, id string) (*domain.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[id]
	if !ok {
		return nil, domain.ErrMappingNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *FakeMappingRepo) ListMappings(_ context.Context) ([]*domain.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(*domain.Mapping) bool { return true }), nil
}

func (r *FakeMappingRepo) ListForLocalType(_ context.Context, localType, subtype string) ([]*domain.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(m *domain.Mapping) bool {
		if m.LocalType != localType {
			return false
		}
		return m.LocalSubtype == "" || m.LocalSubtype == subtype
	}), nil
}

func (r *FakeMappingRepo) ListPushMappings(_ context.Context) ([]*domain.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(m *domain.Mapping) bool { return m.Triggers.PushEnabled() }), nil
}

func (r *FakeMappingRepo) ListPullMappings(_ context.Context) ([]*domain.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(m *domain.Mapping) bool { return m.Triggers.PullEnabled() }), nil
}

func (r *FakeMappingRepo) AdvancePullWatermark(_ context.Context, mappingID string, to time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mappings[mappingID]
	if !ok {
		return domain.ErrMappingNotFound
	}
	t := to
	m.LastPullAt = &t
	return nil
}

func (r *FakeMappingRepo) AdvanceDeleteWatermark(_ context.Context, mappingID string, to time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mappings[mappingID]
	if !ok {
		return domain.ErrMappingNotFound
	}
	t := to
	m.LastDeleteAt = &t
	return nil
}

// collect assumes the caller holds the lock.
func (r *FakeMappingRepo) collect(keep func(*domain.Mapping) bool) []*domain.Mapping {
	out := make([]*domain.Mapping, 0, len(r.mappings))
	for _, m := range r.mappings {
		if keep(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FakeLinkRepo is an in-memory Link implementation for tests. It enforces
// the same uniqueness rules as the postgres repository.
type FakeLinkRepo struct {
	mu     sync.RWMutex
	links  map[string]*domain.LinkedRecord
	nextID int
}

func NewFakeLinkRepo() *FakeLinkRepo {
	return &FakeLinkRepo{links: make(map[string]*domain.LinkedRecord)}
}

func (r *FakeLinkRepo) GetByLocal(_ context.Context, mappingID, localID string) (*domain.LinkedRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.links {
		if l.MappingID == mappingID && l.LocalID == localID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, domain.ErrLinkNotFound
}

func (r *FakeLinkRepo) GetByRemote(_ context.Context, mappingID, remoteID string) (*domain.LinkedRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.links {
		if l.MappingID == mappingID && l.RemoteID == remoteID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, domain.ErrLinkNotFound
}

func (r *FakeLinkRepo) ListByMapping(_ context.Context, mappingID string) ([]*domain.LinkedRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.LinkedRecord, 0)
	for _, l := range r.links {
		if l.MappingID == mappingID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *FakeLinkRepo) Upsert(_ context.Context, link *domain.LinkedRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.MappingID == link.MappingID && l.RemoteID == link.RemoteID && l.LocalID != link.LocalID {
			return domain.ErrLinkConflict
		}
	}
	for _, l := range r.links {
		if l.MappingID == link.MappingID && l.LocalID == link.LocalID {
			l.RemoteID = link.RemoteID
			l.ForcePull = link.ForcePull
			l.LastSyncedAt = link.LastSyncedAt
			l.Revision++
			link.ID = l.ID
			link.Revision = l.Revision
			return nil
		}
	}
	r.nextID++
	link.ID = fmt.Sprintf("link-%04d", r.nextID)
	link.Revision = 1
	cp := *link
	r.links[link.ID] = &cp
	return nil
}

func (r *FakeLinkRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.links[id]; !ok {
		return domain.ErrLinkNotFound
	}
	delete(r.links, id)
	return nil
}

func (r *FakeLinkRepo) SetForcePull(_ context.Context, id string, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok {
		return domain.ErrLinkNotFound
	}
	l.ForcePull = force
	return nil
}

// Count reports the number of stored links.
func (r *FakeLinkRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.links)
}

// FakePushQueue is an in-memory PushQueue implementation for tests.
type FakePushQueue struct {
	mu     sync.Mutex
	items  map[string]*domain.PushQueueItem
	nextID int

	// EnqueueErr and ClaimErr inject failures when set.
	EnqueueErr error
	ClaimErr   error
}

func NewFakePushQueue() *FakePushQueue {
	return &FakePushQueue{items: make(map[string]*domain.PushQueueItem)}
}

func (q *FakePushQueue) Enqueue(_ context.Context, mappingID, localID string, op domain.Operation) error {
	if q.EnqueueErr != nil {
		return q.EnqueueErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items {
		if it.MappingID == mappingID && it.LocalID == localID {
			it.Operation = op
			return nil
		}
	}
	q.nextID++
	q.items[fmt.Sprintf("item-%04d", q.nextID)] = &domain.PushQueueItem{
		ID:        fmt.Sprintf("item-%04d", q.nextID),
		MappingID: mappingID,
		LocalID:   localID,
		Operation: op,
		CreatedAt: time.Now(),
	}
	return nil
}

func (q *FakePushQueue) ClaimBatch(_ context.Context, mappingID string, limit int, lease time.Duration, now time.Time) ([]*domain.PushQueueItem, error) {
	if q.ClaimErr != nil {
		return nil, q.ClaimErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	candidates := make([]*domain.PushQueueItem, 0)
	for _, it := range q.items {
		if it.Quarantined {
			continue
		}
		if mappingID != "" && it.MappingID != mappingID {
			continue
		}
		if it.ClaimedUntil != nil && it.ClaimedUntil.After(now) {
			continue
		}
		candidates = append(candidates, it)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]*domain.PushQueueItem, 0, len(candidates))
	until := now.Add(lease)
	for _, it := range candidates {
		u := until
		it.ClaimedUntil = &u
		cp := *it
		out = append(out, &cp)
	}
	return out, nil
}

func (q *FakePushQueue) Release(_ context.Context, item *domain.PushQueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	it, ok := q.items[item.ID]
	if !ok {
		return domain.ErrItemNotFound
	}
	it.ClaimedUntil = nil
	return nil
}

func (q *FakePushQueue) Delete(_ context.Context, item *domain.PushQueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.items[item.ID]; !ok {
		return domain.ErrItemNotFound
	}
	delete(q.items, item.ID)
	return nil
}

func (q *FakePushQueue) Fail(_ context.Context, item *domain.PushQueueItem, cause string, quarantine bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	it, ok := q.items[item.ID]
	if !ok {
		return domain.ErrItemNotFound
	}
	it.FailureCount++
	it.LastError = cause
	it.ClaimedUntil = nil
	it.Quarantined = quarantine
	return nil
}

func (q *FakePushQueue) ListQuarantined(_ context.Context) ([]*domain.PushQueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*domain.PushQueueItem, 0)
	for _, it := range q.items {
		if it.Quarantined {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *FakePushQueue) Retry(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	it, ok := q.items[id]
	if !ok {
		return domain.ErrItemNotFound
	}
	it.Quarantined = false
	it.FailureCount = 0
	it.LastError = ""
	it.ClaimedUntil = nil
	return nil
}

func (q *FakePushQueue) Purge(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	it, ok := q.items[id]
	if !ok {
		return domain.ErrItemNotFound
	}
	if !it.Quarantined {
		return domain.ErrItemNotFound
	}
	delete(q.items, id)
	return nil
}

func (q *FakePushQueue) Depth(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, it := range q.items {
		if !it.Quarantined {
			n++
		}
	}
	return n, nil
}

// Get returns the stored item, for test assertions.
func (q *FakePushQueue) Get(id string) (*domain.PushQueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	it, ok := q.items[id]
	if !ok {
		return nil, false
	}
	cp := *it
	return &cp, true
}

// Find returns the item for a (mapping, local) pair, for test assertions.
func (q *FakePushQueue) Find(mappingID, localID string) (*domain.PushQueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items {
		if it.MappingID == mappingID && it.LocalID == localID {
			cp := *it
			return &cp, true
		}
	}
	return nil, false
}

