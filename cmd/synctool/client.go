package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const (
	DefaultAPIURL  = "http://localhost:8080"
	RequestTimeout = 30 * time.Second
)

// apiClient talks to the service's trigger/admin API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newAPIClient() *apiClient {
	baseURL := os.Getenv("API_URL")
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &apiClient{
		baseURL: baseURL,
		apiKey:  os.Getenv("API_KEY"),
		http:    &http.Client{Timeout: RequestTimeout},
	}
}

func (c *apiClient) runCycle(cycle, mappingID string) error {
	path := "/api/v1/sync/" + cycle
	if mappingID != "" {
		path += "?mapping=" + url.QueryEscape(mappingID)
	}
	return c.do(http.MethodPost, path, nil)
}

func (c *apiClient) runPull(mappingID string, force bool) error {
	q := url.Values{}
	if mappingID != "" {
		q.Set("mapping", mappingID)
	}
	if force {
		q.Set("force", "true")
	}
	path := "/api/v1/sync/pull"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return c.do(http.MethodPost, path, nil)
}

func (c *apiClient) purgeOrphans(mappingID string) error {
	return c.do(http.MethodPost, "/api/v1/sync/orphans?mapping="+url.QueryEscape(mappingID), nil)
}

func (c *apiClient) queueDepth() error {
	return c.do(http.MethodGet, "/api/v1/queue/depth", nil)
}

func (c *apiClient) listQuarantine() error {
	return c.do(http.MethodGet, "/api/v1/queue/quarantine", nil)
}

func (c *apiClient) queueItem(action, itemID string) error {
	body := map[string]string{"item_id": itemID}
	return c.do(http.MethodPost, "/api/v1/queue/quarantine/"+action, body)
}

func (c *apiClient) listMappings() error {
	return c.do(http.MethodGet, "/api/v1/mappings/", nil)
}

func (c *apiClient) invalidateMapping(mappingID string) error {
	body := map[string]string{"mapping_id": mappingID}
	return c.do(http.MethodPost, "/api/v1/mappings/invalidate", body)
}

func (c *apiClient) forcePull(mappingID, localID string) error {
	body := map[string]string{"mapping_id": mappingID, "local_id": localID}
	return c.do(http.MethodPost, "/api/v1/links/force-pull", body)
}

// do sends the request and prints the response body. Non-2xx responses
// become errors so the process exits non-zero.
func (c *apiClient) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(data))
	}

	fmt.Println(string(bytes.TrimSpace(data)))
	return nil
}
