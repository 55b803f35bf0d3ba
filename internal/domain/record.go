package domain

import (
	"strings"
	"time"
)

// ChangeKind classifies a local record mutation for trigger evaluation.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// LocalRecord is the engine's view of a record in the generic entity store.
// Attributes are a nested map addressed by dotted paths; the entity
// framework's own persistence is out of scope.
type LocalRecord struct {
	Type       string         `json:"type"`
	Subtype    string         `json:"subtype"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
	ModifiedAt time.Time      `json:"modified_at"`
}

// Attribute resolves a dotted path into the attribute map.
// The second return reports whether the path exists.
func (r *LocalRecord) Attribute(path string) (any, bool) {
	if r == nil || r.Attributes == nil || path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	cur := any(r.Attributes)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetAttribute assigns a value at a dotted path, creating intermediate
// maps as needed. Existing non-map intermediates are replaced.
func (r *LocalRecord) SetAttribute(path string, value any) {
	if path == "" {
		return
	}
	if r.Attributes == nil {
		r.Attributes = make(map[string]any)
	}
	parts := strings.Split(path, ".")
	m := r.Attributes
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Clone returns a deep copy of the record. Attribute maps are copied so a
// clone can be mutated without affecting the original.
func (r *LocalRecord) Clone() *LocalRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Attributes = cloneMap(r.Attributes)
	return &cp
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// StringAttribute returns the attribute at path as a string, or "" when
// absent or not a string.
func (r *LocalRecord) StringAttribute(path string) string {
	v, ok := r.Attribute(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
