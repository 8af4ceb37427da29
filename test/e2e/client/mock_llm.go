// Package client provides HTTP access to the mock LLM server's test
// endpoints for e2e verification.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// MockLLMClient reads the mock LLM server's verification endpoints.
// The engine under test talks to the same server over the OpenAI chat
// completions route; this client only touches /health, /stats and
// /requests.
type MockLLMClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewMockLLMClient creates a new client for the mock LLM server.
func NewMockLLMClient(baseURL string) *MockLLMClient {
	return &MockLLMClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// MockStats contains call statistics from the mock LLM server.
type MockStats struct {
	TotalCalls  int64            `json:"total_calls"`
	CallsByKind map[string]int64 `json:"calls_by_kind"`
}

// CapturedMessage is one chat message from a captured request.
type CapturedMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CapturedRequest is one request the mock server recorded.
type CapturedRequest struct {
	Kind      string            `json:"kind"`
	Model     string            `json:"model"`
	Messages  []CapturedMessage `json:"messages"`
	CallIndex int               `json:"call_index"`
}

// Health verifies the mock server is reachable.
func (c *MockLLMClient) Health(ctx context.Context) error {
	body, err := c.get(ctx, "/health", nil)
	if err != nil {
		return err
	}
	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return fmt.Errorf("unmarshal health response: %w", err)
	}
	if status.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", status.Status)
	}
	return nil
}

// GetStats retrieves call statistics from the mock LLM server.
func (c *MockLLMClient) GetStats(ctx context.Context) (*MockStats, error) {
	body, err := c.get(ctx, "/stats", nil)
	if err != nil {
		return nil, err
	}
	var stats MockStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("unmarshal stats response: %w", err)
	}
	return &stats, nil
}

// GetRequests retrieves the captured requests of one call kind.
func (c *MockLLMClient) GetRequests(ctx context.Context, kind string) ([]CapturedRequest, error) {
	body, err := c.get(ctx, "/requests", url.Values{"kind": {kind}})
	if err != nil {
		return nil, err
	}
	var out struct {
		RequestsByKind map[string][]CapturedRequest `json:"requests_by_kind"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unmarshal requests response: %w", err)
	}
	return out.RequestsByKind[kind], nil
}

func (c *MockLLMClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
