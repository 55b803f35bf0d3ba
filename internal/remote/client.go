package remote

import (
	"context"
	"time"
)

// Record is one remote record as returned by a query: field name to value.
// The remote identifier is always carried under the "Id" field.
type Record map[string]any

// IDField is the remote system's identifier field name.
const IDField = "Id"

// ID returns the record's remote identifier, or "" when absent.
func (r Record) ID() string {
	return r.String(IDField)
}

// String returns the named field as a string, or "" when absent or not a string.
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Time returns the named field parsed as a remote timestamp.
func (r Record) Time(field string) (time.Time, bool) {
	v, ok := r[field]
	if !ok {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(TimeLayout, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

// QueryResult is one page of query results.
type QueryResult struct {
	Records       []Record
	Done          bool
	NextPageToken string
}

// Client is the transport boundary to the remote record system. The sync
// engine only consumes this interface; HTTP/SOAP implementations live
// outside the engine.
type Client interface {
	// Query executes a query and returns the first page of results.
	Query(ctx context.Context, query Query) (*QueryResult, error)

	// QueryMore fetches the next page for a previous query.
	QueryMore(ctx context.Context, pageToken string) (*QueryResult, error)

	// Create inserts a record and returns its remote id.
	Create(ctx context.Context, objectType string, fields map[string]any) (string, error)

	// Update overwrites fields of an existing record.
	Update(ctx context.Context, objectType, id string, fields map[string]any) error

	// Upsert finds-or-creates by external key. The returned id may be
	// empty when the remote API only reports ids on creation.
	Upsert(ctx context.Context, objectType, keyField, keyValue string, fields map[string]any) (string, error)

	// Delete removes a record.
	Delete(ctx context.Context, objectType, id string) error

	// GetDeletedSince returns ids of records deleted in the window.
	GetDeletedSince(ctx context.Context, objectType string, start, end time.Time) ([]string, error)
}

// TokenProvider supplies a valid credential for remote calls. The engine
// never acquires tokens itself; an unauthorized signal aborts the cycle.
type TokenProvider interface {
	GetValidToken(ctx context.Context) (string, error)
}

// StaticTokenProvider returns a fixed token. Useful for tests and for
// deployments where an external agent refreshes the credential file.
type StaticTokenProvider struct {
	Token string
}

func (p StaticTokenProvider) GetValidToken(ctx context.Context) (string, error) {
	if p.Token == "" {
		return "", NewAuthError("no token configured")
	}
	return p.Token, nil
}
