package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/repository"
)

func TestGetCaches(t *testing.T) {
	repo := repository.NewFakeMappingRepo()
	repo.Add(&domain.Mapping{ID: "m1", Name: "contacts", LocalType: "person", RemoteObject: "Contact"})
	reg := New(repo)

	m, err := reg.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "contacts", m.Name)

	// Mutating the repo behind the cache is invisible until invalidation.
	repo.Add(&domain.Mapping{ID: "m1", Name: "renamed", LocalType: "person", RemoteObject: "Contact"})
	m, err = reg.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "contacts", m.Name)

	reg.Invalidate("m1")
	m, err = reg.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", m.Name)
}

func TestGetNotFound(t *testing.T) {
	reg := New(repository.NewFakeMappingRepo())
	_, err := reg.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrMappingNotFound)
}

func TestForLocalTypeSubtypeMatch(t *testing.T) {
	repo := repository.NewFakeMappingRepo()
	repo.Add(&domain.Mapping{ID: "m1", Name: "people", LocalType: "person", RemoteObject: "Contact"})
	repo.Add(&domain.Mapping{ID: "m2", Name: "employees", LocalType: "person", LocalSubtype: "employee", RemoteObject: "Contact"})
	repo.Add(&domain.Mapping{ID: "m3", Name: "companies", LocalType: "company", RemoteObject: "Account"})
	reg := New(repo)

	ms, err := reg.ForLocalType(context.Background(), "person", "employee")
	require.NoError(t, err)
	require.Len(t, ms, 2, "empty-subtype mapping matches any subtype")

	ms, err = reg.ForLocalType(context.Background(), "person", "contractor")
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "m1", ms[0].ID)
}

func TestPushPullMappings(t *testing.T) {
	repo := repository.NewFakeMappingRepo()
	repo.Add(&domain.Mapping{ID: "m1", LocalType: "person", RemoteObject: "Contact",
		Triggers: domain.TriggerFlags{LocalCreate: true, LocalUpdate: true}})
	repo.Add(&domain.Mapping{ID: "m2", LocalType: "company", RemoteObject: "Account",
		Triggers: domain.TriggerFlags{RemoteCreate: true, RemoteUpdate: true}})
	reg := New(repo)

	push, err := reg.PushMappings(context.Background())
	require.NoError(t, err)
	require.Len(t, push, 1)
	assert.Equal(t, "m1", push[0].ID)

	pull, err := reg.PullMappings(context.Background())
	require.NoError(t, err)
	require.Len(t, pull, 1)
	assert.Equal(t, "m2", pull[0].ID)
}
