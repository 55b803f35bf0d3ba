package repository

import (
	"context"
	"time"

	"github.com/forcelink/forcelink/internal/domain"
)

// Mapping provides access to sync mapping definitions and their cycle
// watermarks.
type Mapping interface {
	GetMapping(ctx context.Context, id string) (*domain.Mapping, error)
	ListMappings(ctx context.Context) ([]*domain.Mapping, error)
	// ListForLocalType returns mappings whose local type and subtype match.
	// A mapping with an empty subtype matches any subtype.
	ListForLocalType(ctx context.Context, localType, subtype string) ([]*domain.Mapping, error)
	ListPushMappings(ctx context.Context) ([]*domain.Mapping, error)
	ListPullMappings(ctx context.Context) ([]*domain.Mapping, error)
	// AdvancePullWatermark records the upper bound of the last fully
	// successful pull cycle for the mapping.
	AdvancePullWatermark(ctx context.Context, mappingID string, to time.Time) error
	AdvanceDeleteWatermark(ctx context.Context, mappingID string, to time.Time) error
}
