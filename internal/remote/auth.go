package remote

import (
	"context"
	"time"
)

// AuthClient wraps a Client and resolves a credential before every call.
// When the provider cannot supply a token the call fails with an auth
// error, which the cycle runners treat as an abort signal.
type AuthClient struct {
	inner  Client
	tokens TokenProvider
}

// WithAuth wraps the client with credential resolution.
func WithAuth(inner Client, tokens TokenProvider) *AuthClient {
	return &AuthClient{inner: inner, tokens: tokens}
}

func (c *AuthClient) authorize(ctx context.Context) error {
	_, err := c.tokens.GetValidToken(ctx)
	return err
}

func (c *AuthClient) Query(ctx context.Context, query Query) (*QueryResult, error) {
	if err := c.authorize(ctx); err != nil {
		return nil, err
	}
	return c.inner.Query(ctx, query)
}

func (c *AuthClient) QueryMore(ctx context.Context, pageToken string) (*QueryResult, error) {
	if err := c.authorize(ctx); err != nil {
		return nil, err
	}
	return c.inner.QueryMore(ctx, pageToken)
}

func (c *AuthClient) Create(ctx context.Context, objectType string, fields map[string]any) (string, error) {
	if err := c.authorize(ctx); err != nil {
		return "", err
	}
	return c.inner.Create(ctx, objectType, fields)
}

func (c *AuthClient) Update(ctx context.Context, objectType, id string, fields map[string]any) error {
	if err := c.authorize(ctx); err != nil {
		return err
	}
	return c.inner.Update(ctx, objectType, id, fields)
}

func (c *AuthClient) Upsert(ctx context.Context, objectType, keyField, keyValue string, fields map[string]any) (string, error) {
	if err := c.authorize(ctx); err != nil {
		return "", err
	}
	return c.inner.Upsert(ctx, objectType, keyField, keyValue, fields)
}

func (c *AuthClient) Delete(ctx context.Context, objectType, id string) error {
	if err := c.authorize(ctx); err != nil {
		return err
	}
	return c.inner.Delete(ctx, objectType, id)
}

func (c *AuthClient) GetDeletedSince(ctx context.Context, objectType string, start, end time.Time) ([]string, error) {
	if err := c.authorize(ctx); err != nil {
		return nil, err
	}
	return c.inner.GetDeletedSince(ctx, objectType, start, end)
}
