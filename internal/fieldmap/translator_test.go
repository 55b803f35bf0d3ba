package fieldmap

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/event"
	"github.com/forcelink/forcelink/internal/remote"
	"github.com/forcelink/forcelink/internal/repository"
)

func newTestTranslator() (*Translator, *repository.FakeLinkRepo, *event.MemoryBus) {
	links := repository.NewFakeLinkRepo()
	bus := event.NewMemoryBus()
	return NewTranslator(links, bus), links, bus
}

func contactMapping() *domain.Mapping {
	return &domain.Mapping{
		ID:           "map-contact",
		Name:         "contacts",
		LocalType:    "person",
		RemoteObject: "Contact",
		Bindings: []domain.FieldBinding{
			{RemoteField: "LastName", Kind: domain.BindingAttribute, Direction: domain.DirectionBoth, LocalPath: "name.last"},
			{RemoteField: "Email", Kind: domain.BindingAttribute, Direction: domain.DirectionBoth, LocalPath: "email"},
			{RemoteField: "LeadSource", Kind: domain.BindingConstant, Direction: domain.DirectionPush, Constant: "forcelink"},
			{RemoteField: "Phone", Kind: domain.BindingAttribute, Direction: domain.DirectionPull, LocalPath: "phone"},
		},
	}
}

func TestBuildPushPayload(t *testing.T) {
	tr, _, _ := newTestTranslator()
	m := contactMapping()
	rec := &domain.LocalRecord{
		Type: "person",
		ID:   "p1",
		Attributes: map[string]any{
			"name":  map[string]any{"last": "Okafor"},
			"phone": "555-0100",
		},
	}

	payload, err := tr.BuildPushPayload(context.Background(), m, rec)
	require.NoError(t, err)

	assert.Equal(t, "Okafor", payload["LastName"])
	assert.Equal(t, "forcelink", payload["LeadSource"])
	_, hasEmail := payload["Email"]
	assert.False(t, hasEmail, "absent attribute should be omitted, not sent as null")
	_, hasPhone := payload["Phone"]
	assert.False(t, hasPhone, "pull-only binding must not appear in push payload")
}

func TestBuildPushPayloadReference(t *testing.T) {
	tr, links, _ := newTestTranslator()
	m := &domain.Mapping{
		ID: "map-deal", LocalType: "deal", RemoteObject: "Opportunity",
		Bindings: []domain.FieldBinding{
			{RemoteField: "AccountId", Kind: domain.BindingReference, Direction: domain.DirectionPush, LocalPath: "company_id", RefMappingID: "map-company"},
		},
	}
	rec := &domain.LocalRecord{Type: "deal", ID: "d1", Attributes: map[string]any{"company_id": "c1"}}

	// Unlinked target: field omitted, no error.
	payload, err := tr.BuildPushPayload(context.Background(), m, rec)
	require.NoError(t, err)
	_, has := payload["AccountId"]
	assert.False(t, has)

	require.NoError(t, links.Upsert(context.Background(), &domain.LinkedRecord{
		MappingID: "map-company", LocalType: "company", LocalID: "c1", RemoteID: "acct-9001",
	}))
	payload, err = tr.BuildPushPayload(context.Background(), m, rec)
	require.NoError(t, err)
	assert.Equal(t, "acct-9001", payload["AccountId"])
}

type upperTranslator struct{}

func (upperTranslator) ToRemote(_ context.Context, _ *domain.Mapping, b domain.FieldBinding, rec *domain.LocalRecord) (any, bool, error) {
	v := rec.StringAttribute(b.LocalPath)
	if v == "" {
		return nil, false, nil
	}
	return strings.ToUpper(v), true, nil
}

func (upperTranslator) FromRemote(_ context.Context, _ *domain.Mapping, b domain.FieldBinding, value any, rec *domain.LocalRecord) error {
	s, _ := value.(string)
	rec.SetAttribute(b.LocalPath, strings.ToLower(s))
	return nil
}

func TestCustomTranslatorRoundTrip(t *testing.T) {
	tr, _, _ := newTestTranslator()
	tr.RegisterCustom("upper", upperTranslator{})
	m := &domain.Mapping{
		ID: "map-code", LocalType: "thing", RemoteObject: "Thing__c",
		Bindings: []domain.FieldBinding{
			{RemoteField: "Code__c", Kind: domain.BindingCustom, Direction: domain.DirectionBoth, LocalPath: "code", CustomKey: "upper"},
		},
	}
	rec := &domain.LocalRecord{Type: "thing", ID: "t1", Attributes: map[string]any{"code": "ab12"}}

	payload, err := tr.BuildPushPayload(context.Background(), m, rec)
	require.NoError(t, err)
	assert.Equal(t, "AB12", payload["Code__c"])

	require.NoError(t, tr.ApplyPullValues(context.Background(), m, remote.Record{"Code__c": "XY99"}, rec))
	assert.Equal(t, "xy99", rec.StringAttribute("code"))
}

func TestCustomTranslatorUnregistered(t *testing.T) {
	tr, _, _ := newTestTranslator()
	m := &domain.Mapping{
		ID: "map-bad", LocalType: "thing", RemoteObject: "Thing__c",
		Bindings: []domain.FieldBinding{
			{RemoteField: "X__c", Kind: domain.BindingCustom, Direction: domain.DirectionPush, CustomKey: "missing"},
		},
	}
	_, err := tr.BuildPushPayload(context.Background(), m, &domain.LocalRecord{Type: "thing", ID: "t1"})
	assert.ErrorIs(t, err, domain.ErrInvalidBinding)
}

func TestPushPayloadReadySubscriberMutates(t *testing.T) {
	tr, _, bus := newTestTranslator()
	bus.Subscribe(event.PushPayloadReady, func(_ context.Context, hc *event.Context) error {
		hc.Payload["Description"] = "stamped"
		return nil
	})

	m := contactMapping()
	rec := &domain.LocalRecord{Type: "person", ID: "p1", Attributes: map[string]any{"email": "a@b.example"}}
	payload, err := tr.BuildPushPayload(context.Background(), m, rec)
	require.NoError(t, err)
	assert.Equal(t, "stamped", payload["Description"])
}

func TestApplyPullValues(t *testing.T) {
	tr, _, _ := newTestTranslator()
	m := contactMapping()
	rec := &domain.LocalRecord{
		Type: "person", ID: "p1",
		Attributes: map[string]any{"email": "old@b.example", "phone": "555-0100"},
	}

	err := tr.ApplyPullValues(context.Background(), m, remote.Record{
		"LastName": "Nakamura",
		"Email":    "new@b.example",
	}, rec)
	require.NoError(t, err)

	assert.Equal(t, "Nakamura", rec.StringAttribute("name.last"))
	assert.Equal(t, "new@b.example", rec.StringAttribute("email"))
	// Phone was not in the remote snapshot and must keep its local value.
	assert.Equal(t, "555-0100", rec.StringAttribute("phone"))
}

func TestApplyPullValuesVeto(t *testing.T) {
	tr, _, bus := newTestTranslator()
	bus.Subscribe(event.PullValue, func(_ context.Context, hc *event.Context) error {
		if hc.Field == "Email" {
			hc.Veto("email is locally authoritative")
		}
		return nil
	})

	m := contactMapping()
	rec := &domain.LocalRecord{Type: "person", ID: "p1", Attributes: map[string]any{"email": "keep@b.example"}}
	err := tr.ApplyPullValues(context.Background(), m, remote.Record{
		"LastName": "Nakamura",
		"Email":    "clobber@b.example",
	}, rec)
	require.NoError(t, err)

	assert.Equal(t, "Nakamura", rec.StringAttribute("name.last"))
	assert.Equal(t, "keep@b.example", rec.StringAttribute("email"))
}

func TestApplyPullValuesReference(t *testing.T) {
	tr, links, _ := newTestTranslator()
	require.NoError(t, links.Upsert(context.Background(), &domain.LinkedRecord{
		MappingID: "map-company", LocalType: "company", LocalID: "c1", RemoteID: "acct-9001",
	}))

	m := &domain.Mapping{
		ID: "map-deal", LocalType: "deal", RemoteObject: "Opportunity",
		Bindings: []domain.FieldBinding{
			{RemoteField: "AccountId", Kind: domain.BindingReference, Direction: domain.DirectionBoth, LocalPath: "company_id", RefMappingID: "map-company"},
		},
	}
	rec := &domain.LocalRecord{Type: "deal", ID: "d1"}

	require.NoError(t, tr.ApplyPullValues(context.Background(), m, remote.Record{"AccountId": "acct-9001"}, rec))
	assert.Equal(t, "c1", rec.StringAttribute("company_id"))

	// Unknown remote id leaves the local path untouched.
	rec2 := &domain.LocalRecord{Type: "deal", ID: "d2"}
	require.NoError(t, tr.ApplyPullValues(context.Background(), m, remote.Record{"AccountId": "acct-0000"}, rec2))
	_, has := rec2.Attribute("company_id")
	assert.False(t, has)
}
