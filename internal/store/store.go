// Package store abstracts the local entity store the sync engine reads from
// and writes into. The engine never talks to application tables directly; it
// goes through this interface so pull-applied changes can be saved without
// re-triggering the outbound push path.
package store

import (
	"context"

	"github.com/forcelink/forcelink/internal/domain"
)

// SaveOptions controls how a save is performed and observed.
type SaveOptions struct {
	// SuppressPushTrigger saves without notifying change observers. The pull
	// worker sets this so applying remote values does not enqueue the record
	// for push again.
	SuppressPushTrigger bool
	// Create marks the save as a brand new record.
	Create bool
}

// SaveOption mutates SaveOptions.
type SaveOption func(*SaveOptions)

func SuppressPushTrigger() SaveOption {
	return func(o *SaveOptions) { o.SuppressPushTrigger = true }
}

func AsCreate() SaveOption {
	return func(o *SaveOptions) { o.Create = true }
}

// ChangeObserver is notified after a record is saved or deleted, unless the
// save suppressed triggers. The push enqueuer registers itself here.
type ChangeObserver func(ctx context.Context, kind domain.ChangeKind, rec *domain.LocalRecord) error

// Store is the local record store.
type Store interface {
	// Load returns the record, or domain.ErrRecordNotFound.
	Load(ctx context.Context, localType, id string) (*domain.LocalRecord, error)
	Save(ctx context.Context, rec *domain.LocalRecord, opts ...SaveOption) error
	// Delete removes the record. Deleting an absent record is not an error.
	Delete(ctx context.Context, localType, id string, opts ...SaveOption) error
}
