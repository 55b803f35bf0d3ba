package repository

import (
	"context"

	"github.com/forcelink/forcelink/internal/domain"
)

// Link provides access to the identity links between local records and
// their remote counterparts.
type Link interface {
	GetByLocal(ctx context.Context, mappingID, localID string) (*domain.LinkedRecord, error)
	GetByRemote(ctx context.Context, mappingID, remoteID string) (*domain.LinkedRecord, error)
	ListByMapping(ctx context.Context, mappingID string) ([]*domain.LinkedRecord, error)
	// Upsert inserts the link or updates the existing link for the same
	// (mapping, local) pair. Returns domain.ErrLinkConflict when the remote
	// id is already linked to a different local record.
	Upsert(ctx context.Context, link *domain.LinkedRecord) error
	Delete(ctx context.Context, id string) error
	SetForcePull(ctx context.Context, id string, force bool) error
}
