package remote

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the remote system's timestamp wire format.
const TimeLayout = "2006-01-02T15:04:05Z"

// Condition is one WHERE clause term.
type Condition struct {
	Field string
	Op    string // "=", "!=", ">", ">=", "<", "<="
	Value string // pre-formatted; strings must be quoted via StringValue
}

// Query is a structured remote query. Components build it structurally so
// extension-point subscribers can append conditions without string surgery;
// String renders the SOQL-like wire form.
type Query struct {
	Object     string
	Fields     []string
	Conditions []Condition
	OrderBy    string
	Limit      int
}

// NewQuery starts a query against one object type.
func NewQuery(object string) *Query {
	return &Query{Object: object}
}

// Select adds fields, skipping duplicates and empty names.
func (q *Query) Select(fields ...string) *Query {
	for _, f := range fields {
		if f == "" {
			continue
		}
		exists := false
		for _, have := range q.Fields {
			if have == f {
				exists = true
				break
			}
		}
		if !exists {
			q.Fields = append(q.Fields, f)
		}
	}
	return q
}

// Where appends a condition.
func (q *Query) Where(field, op, value string) *Query {
	q.Conditions = append(q.Conditions, Condition{Field: field, Op: op, Value: value})
	return q
}

// String renders the query in the remote system's SOQL-like syntax.
func (q *Query) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(q.Fields, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(q.Object)
	if len(q.Conditions) > 0 {
		sb.WriteString(" WHERE ")
		terms := make([]string, 0, len(q.Conditions))
		for _, c := range q.Conditions {
			terms = append(terms, fmt.Sprintf("%s %s %s", c.Field, c.Op, c.Value))
		}
		sb.WriteString(strings.Join(terms, " AND "))
	}
	if q.OrderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.OrderBy)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String()
}

// TimeValue formats a timestamp for use as a condition value.
// Remote timestamps are unquoted on the wire.
func TimeValue(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// StringValue quotes a string for use as a condition value.
func StringValue(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
}
