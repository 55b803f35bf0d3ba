// Package fieldmap translates record values between the local attribute
// model and remote object fields, driven by a mapping's field bindings.
package fieldmap

import (
	"context"
	"errors"
	"fmt"

	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/event"
	"github.com/forcelink/forcelink/internal/logger"
	"github.com/forcelink/forcelink/internal/remote"
	"github.com/forcelink/forcelink/internal/repository"
)

// ValueTranslator converts one bound field in either direction. Custom
// bindings select a registered ValueTranslator by key.
type ValueTranslator interface {
	// ToRemote produces the outbound value. ok=false omits the field from
	// the payload.
	ToRemote(ctx context.Context, m *domain.Mapping, b domain.FieldBinding, rec *domain.LocalRecord) (value any, ok bool, err error)
	// FromRemote applies one inbound value to the local record.
	FromRemote(ctx context.Context, m *domain.Mapping, b domain.FieldBinding, value any, rec *domain.LocalRecord) error
}

// Translator assembles push payloads and applies pull values for a mapping's
// bindings, in configured order.
type Translator struct {
	links  repository.Link
	bus    event.Bus
	custom map[string]ValueTranslator
}

func NewTranslator(links repository.Link, bus event.Bus) *Translator {
	return &Translator{
		links:  links,
		bus:    bus,
		custom: make(map[string]ValueTranslator),
	}
}

// RegisterCustom makes a ValueTranslator available to custom bindings under
// the given key. Registration is expected at wiring time, before cycles run.
func (t *Translator) RegisterCustom(key string, vt ValueTranslator) {
	t.custom[key] = vt
}

// BuildPushPayload evaluates every push-eligible binding against the local
// record and returns the outbound field map. Bindings whose source value is
// absent are omitted rather than sent as null. After assembly the payload is
// offered to PushPayloadReady subscribers, which may mutate it in place.
func (t *Translator) BuildPushPayload(ctx context.Context, m *domain.Mapping, rec *domain.LocalRecord) (map[string]any, error) {
	log := logger.FromContext(ctx)
	payload := make(map[string]any)

	for _, b := range m.Bindings {
		if !b.PushEligible() {
			continue
		}
		switch b.Kind {
		case domain.BindingAttribute:
			v, ok := rec.Attribute(b.LocalPath)
			if !ok {
				continue
			}
			payload[b.RemoteField] = v

		case domain.BindingConstant:
			payload[b.RemoteField] = b.Constant

		case domain.BindingReference:
			refID := rec.StringAttribute(b.LocalPath)
			if refID == "" {
				continue
			}
			link, err := t.links.GetByLocal(ctx, b.RefMappingID, refID)
			if errors.Is(err, domain.ErrLinkNotFound) {
				log.Warn("reference target not linked yet, omitting field",
					"mapping_id", m.ID, "field", b.RemoteField, "ref_local_id", refID)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("resolving reference %s: %w", b.RemoteField, err)
			}
			payload[b.RemoteField] = link.RemoteID

		case domain.BindingCustom:
			vt, ok := t.custom[b.CustomKey]
			if !ok {
				return nil, fmt.Errorf("%w: no custom translator registered for %q", domain.ErrInvalidBinding, b.CustomKey)
			}
			v, ok, err := vt.ToRemote(ctx, m, b, rec)
			if err != nil {
				return nil, fmt.Errorf("custom translator %q: %w", b.CustomKey, err)
			}
			if !ok {
				continue
			}
			payload[b.RemoteField] = v

		default:
			return nil, fmt.Errorf("%w: unknown binding kind %q", domain.ErrInvalidBinding, b.Kind)
		}
	}

	hc := &event.Context{
		Hook:    event.PushPayloadReady,
		Mapping: m,
		Local:   rec,
		Payload: payload,
	}
	if err := t.bus.Fire(ctx, hc); err != nil {
		return nil, err
	}
	return payload, nil
}

// ApplyPullValues writes every pull-eligible binding's inbound value onto
// the local record. Fields absent from the remote snapshot are left alone,
// so partial query results never blank out local data. Each value passes
// through the PullValue hook, which may replace or veto it.
func (t *Translator) ApplyPullValues(ctx context.Context, m *domain.Mapping, remoteRec remote.Record, rec *domain.LocalRecord) error {
	log := logger.FromContext(ctx)

	for _, b := range m.Bindings {
		if !b.PullEligible() || b.Kind == domain.BindingConstant {
			continue
		}
		value, present := remoteRec[b.RemoteField]
		if !present {
			continue
		}

		hc := &event.Context{
			Hook:    event.PullValue,
			Mapping: m,
			Local:   rec,
			Remote:  remoteRec,
			Field:   b.RemoteField,
			Value:   value,
		}
		if err := t.bus.Fire(ctx, hc); err != nil {
			return err
		}
		if hc.Vetoed() {
			log.Debug(event.LogMsgActionVetoed,
				"hook", event.PullValue, "field", b.RemoteField, "reason", hc.VetoReason())
			continue
		}
		value = hc.Value

		switch b.Kind {
		case domain.BindingAttribute:
			rec.SetAttribute(b.LocalPath, value)

		case domain.BindingReference:
			remoteID, _ := value.(string)
			if remoteID == "" {
				continue
			}
			link, err := t.links.GetByRemote(ctx, b.RefMappingID, remoteID)
			if errors.Is(err, domain.ErrLinkNotFound) {
				log.Warn("inbound reference has no local counterpart, skipping field",
					"mapping_id", m.ID, "field", b.RemoteField, "remote_id", remoteID)
				continue
			}
			if err != nil {
				return fmt.Errorf("resolving inbound reference %s: %w", b.RemoteField, err)
			}
			rec.SetAttribute(b.LocalPath, link.LocalID)

		case domain.BindingCustom:
			vt, ok := t.custom[b.CustomKey]
			if !ok {
				return fmt.Errorf("%w: no custom translator registered for %q", domain.ErrInvalidBinding, b.CustomKey)
			}
			if err := vt.FromRemote(ctx, m, b, value, rec); err != nil {
				return fmt.Errorf("custom translator %q: %w", b.CustomKey, err)
			}

		default:
			return fmt.Errorf("%w: unknown binding kind %q", domain.ErrInvalidBinding, b.Kind)
		}
	}
	return nil
}
