package domain

import "time"

// BindingKind identifies how a field binding produces or consumes a value.
type BindingKind string

const (
	// BindingAttribute reads/writes a local attribute path.
	BindingAttribute BindingKind = "attribute"
	// BindingConstant writes a fixed value on push; ignored on pull.
	BindingConstant BindingKind = "constant"
	// BindingReference resolves a related local record's link to its remote id.
	BindingReference BindingKind = "reference"
	// BindingCustom delegates to a registered value translator.
	BindingCustom BindingKind = "custom"
)

// BindingDirection controls which sync directions a binding participates in.
type BindingDirection string

const (
	DirectionPush BindingDirection = "push"
	DirectionPull BindingDirection = "pull"
	DirectionBoth BindingDirection = "both"
)

// FieldBinding configures one remote field of a mapping.
// Within one mapping the remote field name need not be unique; each binding
// is evaluated independently, in configured order.
type FieldBinding struct {
	RemoteField string           `json:"remote_field" validate:"required"`
	Kind        BindingKind      `json:"kind" validate:"required,oneof=attribute constant reference custom"`
	Direction   BindingDirection `json:"direction" validate:"required,oneof=push pull both"`

	// LocalPath is the dotted attribute path on the local record.
	// Used by attribute and reference bindings.
	LocalPath string `json:"local_path,omitempty"`

	// Constant is the fixed value written by constant bindings.
	Constant any `json:"constant,omitempty"`

	// RefMappingID names the mapping whose links resolve the referenced
	// record's remote id. Used by reference bindings.
	RefMappingID string `json:"ref_mapping_id,omitempty"`

	// CustomKey selects a registered value translator for custom bindings.
	CustomKey string `json:"custom_key,omitempty"`
}

// PushEligible reports whether the binding participates in push translation.
func (b FieldBinding) PushEligible() bool {
	return b.Direction == DirectionPush || b.Direction == DirectionBoth
}

// PullEligible reports whether the binding participates in pull translation.
func (b FieldBinding) PullEligible() bool {
	return b.Direction == DirectionPull || b.Direction == DirectionBoth
}

// TriggerFlags is the mapping's sync-trigger bitset.
type TriggerFlags struct {
	LocalCreate  bool `json:"local_create"`
	LocalUpdate  bool `json:"local_update"`
	LocalDelete  bool `json:"local_delete"`
	RemoteCreate bool `json:"remote_create"`
	RemoteUpdate bool `json:"remote_update"`
	RemoteDelete bool `json:"remote_delete"`
}

// PushEnabled reports whether any local-side trigger is on.
func (t TriggerFlags) PushEnabled() bool {
	return t.LocalCreate || t.LocalUpdate || t.LocalDelete
}

// PullEnabled reports whether any remote-side trigger is on.
func (t TriggerFlags) PullEnabled() bool {
	return t.RemoteCreate || t.RemoteUpdate || t.RemoteDelete
}

// Mapping binds one local record type/subtype to one remote object type.
// The sync engine treats mappings as read-only configuration; only the
// watermark columns are advanced after successful cycles.
type Mapping struct {
	ID           string         `json:"id" db:"id"`
	Name         string         `json:"name" db:"name" validate:"required"`
	LocalType    string         `json:"local_type" db:"local_type" validate:"required"`
	LocalSubtype string         `json:"local_subtype" db:"local_subtype"`
	RemoteObject string         `json:"remote_object" db:"remote_object" validate:"required"`
	Bindings     []FieldBinding `json:"bindings" db:"bindings" validate:"dive"`
	Triggers     TriggerFlags   `json:"triggers" db:"triggers"`

	// ExternalKeyField, when set, selects upsert-by-key semantics for every
	// push regardless of whether a link exists yet.
	ExternalKeyField string `json:"external_key_field,omitempty" db:"external_key_field"`

	// PullDateField is the remote timestamp field that bounds pull queries
	// and drives conflict resolution.
	PullDateField string `json:"pull_date_field" db:"pull_date_field"`

	PushStandalone bool `json:"push_standalone" db:"push_standalone"`
	PullStandalone bool `json:"pull_standalone" db:"pull_standalone"`

	// Watermarks. Advanced only after a fully successful cycle.
	LastPullAt   *time.Time `json:"last_pull_at,omitempty" db:"last_pull_at"`
	LastDeleteAt *time.Time `json:"last_delete_at,omitempty" db:"last_delete_at"`
}

// ExternalKeyLocalPath returns the local attribute path bound to the
// mapping's external key field, or "" when no binding targets it.
func (m *Mapping) ExternalKeyLocalPath() string {
	if m.ExternalKeyField == "" {
		return ""
	}
	for _, b := range m.Bindings {
		if b.RemoteField == m.ExternalKeyField && b.Kind == BindingAttribute {
			return b.LocalPath
		}
	}
	return ""
}
