// Package registry serves mapping definitions with a read-through cache.
// Mappings change rarely compared to how often cycles read them, so lookups
// are cached with a short TTL rather than hitting the database per record.
package registry

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/repository"
)

const (
	cacheSize = 256
	cacheTTL  = 30 * time.Second
)

// Registry is the read path for mapping configuration.
type Registry struct {
	repo    repository.Mapping
	byID    *expirable.LRU[string, *domain.Mapping]
	byLocal *expirable.LRU[string, []*domain.Mapping]
}

func New(repo repository.Mapping) *Registry {
	return &Registry{
		repo:    repo,
		byID:    expirable.NewLRU[string, *domain.Mapping](cacheSize, nil, cacheTTL),
		byLocal: expirable.NewLRU[string, []*domain.Mapping](cacheSize, nil, cacheTTL),
	}
}

// Get returns the mapping by id, from cache when fresh.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Mapping, error) {
	if m, ok := r.byID.Get(id); ok {
		return m, nil
	}
	m, err := r.repo.GetMapping(ctx, id)
	if err != nil {
		return nil, err
	}
	r.byID.Add(id, m)
	return m, nil
}

// ForLocalType returns the mappings whose trigger configuration makes them
// candidates for a local change of the given type and subtype.
func (r *Registry) ForLocalType(ctx context.Context, localType, subtype string) ([]*domain.Mapping, error) {
	key := localType + ":" + subtype
	if ms, ok := r.byLocal.Get(key); ok {
		return ms, nil
	}
	ms, err := r.repo.ListForLocalType(ctx, localType, subtype)
	if err != nil {
		return nil, err
	}
	r.byLocal.Add(key, ms)
	return ms, nil
}

// PushMappings returns mappings with at least one local-side trigger on.
// List results are not cached; cycles run on intervals, not per record.
func (r *Registry) PushMappings(ctx context.Context) ([]*domain.Mapping, error) {
	return r.repo.ListPushMappings(ctx)
}

// PullMappings returns mappings with at least one remote-side trigger on.
func (r *Registry) PullMappings(ctx context.Context) ([]*domain.Mapping, error) {
	return r.repo.ListPullMappings(ctx)
}

// Invalidate drops cached entries for the mapping so the next read sees
// fresh configuration.
func (r *Registry) Invalidate(id string) {
	if m, ok := r.byID.Get(id); ok {
		r.byLocal.Remove(m.LocalType + ":" + m.LocalSubtype)
	}
	r.byID.Remove(id)
}
