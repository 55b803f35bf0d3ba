package remote

import (
	"context"
	"time"

	"github.com/forcelink/forcelink/internal/metrics"
)

// Call label values for remote call metrics
const (
	callQuery        = "query"
	callQueryMore    = "query_more"
	callCreate       = "create"
	callUpdate       = "update"
	callUpsert       = "upsert"
	callDelete       = "delete"
	callDeletedSince = "deleted_since"
)

// InstrumentedClient wraps a Client and records call latency and error
// counts. It changes no behavior; errors pass through untouched.
type InstrumentedClient struct {
	inner Client
}

// Instrument wraps the client with metrics recording.
func Instrument(inner Client) *InstrumentedClient {
	return &InstrumentedClient{inner: inner}
}

func (c *InstrumentedClient) observe(call string, start time.Time, err error) {
	metrics.RemoteCallDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RemoteCallErrors.WithLabelValues(call, string(KindOf(err))).Inc()
	}
}

func (c *InstrumentedClient) Query(ctx context.Context, query Query) (*QueryResult, error) {
	start := time.Now()
	res, err := c.inner.Query(ctx, query)
	c.observe(callQuery, start, err)
	return res, err
}

func (c *InstrumentedClient) QueryMore(ctx context.Context, pageToken string) (*QueryResult, error) {
	start := time.Now()
	res, err := c.inner.QueryMore(ctx, pageToken)
	c.observe(callQueryMore, start, err)
	return res, err
}

func (c *InstrumentedClient) Create(ctx context.Context, objectType string, fields map[string]any) (string, error) {
	start := time.Now()
	id, err := c.inner.Create(ctx, objectType, fields)
	c.observe(callCreate, start, err)
	return id, err
}

func (c *InstrumentedClient) Update(ctx context.Context, objectType, id string, fields map[string]any) error {
	start := time.Now()
	err := c.inner.Update(ctx, objectType, id, fields)
	c.observe(callUpdate, start, err)
	return err
}

func (c *InstrumentedClient) Upsert(ctx context.Context, objectType, keyField, keyValue string, fields map[string]any) (string, error) {
	start := time.Now()
	id, err := c.inner.Upsert(ctx, objectType, keyField, keyValue, fields)
	c.observe(callUpsert, start, err)
	return id, err
}

func (c *InstrumentedClient) Delete(ctx context.Context, objectType, id string) error {
	start := time.Now()
	err := c.inner.Delete(ctx, objectType, id)
	c.observe(callDelete, start, err)
	return err
}

func (c *InstrumentedClient) GetDeletedSince(ctx context.Context, objectType string, start, end time.Time) ([]string, error) {
	began := time.Now()
	ids, err := c.inner.GetDeletedSince(ctx, objectType, start, end)
	c.observe(callDeletedSince, began, err)
	return ids, err
}
