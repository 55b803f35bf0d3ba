package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// FakeClient is a stateful in-memory double of the remote record system.
// It stores records per object type and answers the query shapes the pull
// planner emits. Tests use it directly; the demo mode runs against it too.
type FakeClient struct {
	mu      sync.Mutex
	objects map[string]map[string]Record
	deleted map[string][]tombstone
	pages   map[string][]Record
	nextID  int
	nextPg  int

	// NowFunc supplies tombstone timestamps; defaults to time.Now.
	NowFunc func() time.Time

	// PageSize splits query results into pages when > 0.
	PageSize int

	// EmptyUpsertID makes Upsert return "" when the key matched an
	// existing record, mimicking APIs that only report ids on creation.
	EmptyUpsertID bool

	// Error injection. When set, the corresponding call always fails.
	QueryErr  error
	CreateErr error
	UpdateErr error
	UpsertErr error
	DeleteErr error
}

type tombstone struct {
	id string
	at time.Time
}

// NewFakeClient creates an empty fake remote system.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		objects: make(map[string]map[string]Record),
		deleted: make(map[string][]tombstone),
		pages:   make(map[string][]Record),
		NowFunc: time.Now,
	}
}

// Seed inserts a record directly, bypassing error injection. A missing Id
// field gets one assigned. Returns the record id.
func (f *FakeClient) Seed(objectType string, rec Record) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := rec.ID()
	if id == "" {
		id = f.newID(objectType)
		rec[IDField] = id
	}
	f.table(objectType)[id] = cloneRecord(rec)
	return id
}

// Get returns a copy of a stored record, or nil.
func (f *FakeClient) Get(objectType, id string) Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.table(objectType)[id]
	if !ok {
		return nil
	}
	return cloneRecord(rec)
}

// Count returns the number of stored records for an object type.
func (f *FakeClient) Count(objectType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.table(objectType))
}

func (f *FakeClient) Query(ctx context.Context, query Query) (*QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}

	var matched []Record
	for _, rec := range f.table(query.Object) {
		ok := true
		for _, c := range query.Conditions {
			if !matches(rec, c) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, project(rec, query.Fields))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID() < matched[j].ID() })

	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}

	if f.PageSize > 0 && len(matched) > f.PageSize {
		f.nextPg++
		token := fmt.Sprintf("page-%d", f.nextPg)
		f.pages[token] = matched[f.PageSize:]
		return &QueryResult{Records: matched[:f.PageSize], Done: false, NextPageToken: token}, nil
	}
	return &QueryResult{Records: matched, Done: true}, nil
}

func (f *FakeClient) QueryMore(ctx context.Context, pageToken string) (*QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rest, ok := f.pages[pageToken]
	if !ok {
		return nil, NewNotFoundError("unknown page token " + pageToken)
	}
	delete(f.pages, pageToken)
	if f.PageSize > 0 && len(rest) > f.PageSize {
		f.nextPg++
		token := fmt.Sprintf("page-%d", f.nextPg)
		f.pages[token] = rest[f.PageSize:]
		return &QueryResult{Records: rest[:f.PageSize], Done: false, NextPageToken: token}, nil
	}
	return &QueryResult{Records: rest, Done: true}, nil
}

func (f *FakeClient) Create(ctx context.Context, objectType string, fields map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	id := f.newID(objectType)
	rec := cloneRecord(fields)
	rec[IDField] = id
	f.table(objectType)[id] = rec
	return id, nil
}

func (f *FakeClient) Update(ctx context.Context, objectType, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	rec, ok := f.table(objectType)[id]
	if !ok {
		return NewNotFoundError(fmt.Sprintf("%s %s does not exist", objectType, id))
	}
	for k, v := range fields {
		rec[k] = v
	}
	return nil
}

func (f *FakeClient) Upsert(ctx context.Context, objectType, keyField, keyValue string, fields map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpsertErr != nil {
		return "", f.UpsertErr
	}
	for id, rec := range f.table(objectType) {
		if rec.String(keyField) == keyValue {
			for k, v := range fields {
				rec[k] = v
			}
			rec[keyField] = keyValue
			if f.EmptyUpsertID {
				return "", nil
			}
			return id, nil
		}
	}
	id := f.newID(objectType)
	rec := cloneRecord(fields)
	rec[IDField] = id
	rec[keyField] = keyValue
	f.table(objectType)[id] = rec
	return id, nil
}

func (f *FakeClient) Delete(ctx context.Context, objectType, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.table(objectType)[id]; !ok {
		return NewNotFoundError(fmt.Sprintf("%s %s does not exist", objectType, id))
	}
	delete(f.table(objectType), id)
	f.deleted[objectType] = append(f.deleted[objectType], tombstone{id: id, at: f.NowFunc()})
	return nil
}

func (f *FakeClient) GetDeletedSince(ctx context.Context, objectType string, start, end time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	var ids []string
	for _, t := range f.deleted[objectType] {
		if t.at.After(start) && !t.at.After(end) {
			ids = append(ids, t.id)
		}
	}
	return ids, nil
}

func (f *FakeClient) table(objectType string) map[string]Record {
	if f.objects[objectType] == nil {
		f.objects[objectType] = make(map[string]Record)
	}
	return f.objects[objectType]
}

func (f *FakeClient) newID(objectType string) string {
	f.nextID++
	return fmt.Sprintf("%s-%04d", strings.ToLower(objectType), f.nextID)
}

func cloneRecord(in map[string]any) Record {
	out := make(Record, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func project(rec Record, fields []string) Record {
	if len(fields) == 0 {
		return cloneRecord(rec)
	}
	out := make(Record, len(fields)+1)
	out[IDField] = rec[IDField]
	for _, field := range fields {
		if v, ok := rec[field]; ok {
			out[field] = v
		}
	}
	return out
}

func matches(rec Record, c Condition) bool {
	v, ok := rec[c.Field]
	if !ok {
		return false
	}
	lhs := normalizeValue(v)
	rhs := unquote(c.Value)

	// Timestamps compare chronologically when both sides parse.
	lt, lerr := time.Parse(TimeLayout, lhs)
	rt, rerr := time.Parse(TimeLayout, rhs)
	timewise := lerr == nil && rerr == nil

	switch c.Op {
	case "=":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	case ">":
		if timewise {
			return lt.After(rt)
		}
		return lhs > rhs
	case ">=":
		if timewise {
			return !lt.Before(rt)
		}
		return lhs >= rhs
	case "<":
		if timewise {
			return lt.Before(rt)
		}
		return lhs < rhs
	case "<=":
		if timewise {
			return !lt.After(rt)
		}
		return lhs <= rhs
	default:
		return false
	}
}

func normalizeValue(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(TimeLayout)
	}
	return fmt.Sprintf("%v", v)
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") {
		return strings.ReplaceAll(s[1:len(s)-1], "\\'", "'")
	}
	return s
}
