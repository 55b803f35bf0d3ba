package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/forcelink/forcelink/internal/domain"
)

// MemoryStore is an in-memory Store used by tests and by deployments that
// embed the engine next to their own persistence.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[string]*domain.LocalRecord
	observers []ChangeObserver
	nowFunc   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*domain.LocalRecord),
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the modification timestamp source, for tests.
func (s *MemoryStore) SetNowFunc(f func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFunc = f
}

// Observe registers a change observer. Observers run synchronously in
// registration order after the record is stored.
func (s *MemoryStore) Observe(obs ChangeObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

func (s *MemoryStore) Load(_ context.Context, localType, id string) (*domain.LocalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key(localType, id)]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, rec *domain.LocalRecord, opts ...SaveOption) error {
	options := applyOptions(opts)

	s.mu.Lock()
	_, existed := s.records[key(rec.Type, rec.ID)]
	cp := rec.Clone()
	cp.ModifiedAt = s.nowFunc()
	s.records[key(rec.Type, rec.ID)] = cp
	observers := s.observers
	s.mu.Unlock()

	if options.SuppressPushTrigger {
		return nil
	}
	kind := domain.ChangeUpdate
	if options.Create || !existed {
		kind = domain.ChangeCreate
	}
	return notify(ctx, observers, kind, cp.Clone())
}

func (s *MemoryStore) Delete(ctx context.Context, localType, id string, opts ...SaveOption) error {
	options := applyOptions(opts)

	s.mu.Lock()
	rec, existed := s.records[key(localType, id)]
	if existed {
		delete(s.records, key(localType, id))
	}
	observers := s.observers
	s.mu.Unlock()

	if !existed || options.SuppressPushTrigger {
		return nil
	}
	return notify(ctx, observers, domain.ChangeDelete, rec.Clone())
}

// Count reports the number of stored records, for test assertions.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func applyOptions(opts []SaveOption) SaveOptions {
	var options SaveOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func notify(ctx context.Context, observers []ChangeObserver, kind domain.ChangeKind, rec *domain.LocalRecord) error {
	for _, obs := range observers {
		if err := obs(ctx, kind, rec); err != nil {
			return fmt.Errorf("change observer: %w", err)
		}
	}
	return nil
}

func key(localType, id string) string {
	return localType + "/" + id
}
