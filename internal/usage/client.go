package usage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nghyane/proxypanel/internal/resilience"
)

const (
	usagePath       = "/v0/management/usage"
	usageImportPath = "/v0/management/usage/import"

	managementKeyHeader = "X-Management-Key"
)

// Client talks to the proxy's management endpoint. Fetches run under a
// short timeout, a bounded retry policy, and a circuit breaker so a dead
// proxy fails fast instead of stalling status queries.
type Client struct {
	baseURL       string
	managementKey string
	httpClient    *http.Client
	fetch         *resilience.Executor[[]byte]
}

// NewClient builds a management client for baseURL (scheme://host) and port.
// The management key is optional; when set it is sent on every call.
func NewClient(baseURL string, port int, managementKey string, timeout time.Duration) *Client {
	base := strings.TrimRight(baseURL, "/")
	if port > 0 {
		base = fmt.Sprintf("%s:%d", base, port)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	breakerCfg := resilience.DefaultBreakerConfig("management")
	return &Client{
		baseURL:       base,
		managementKey: managementKey,
		httpClient:    &http.Client{Timeout: timeout},
		fetch:         resilience.NewExecutor[[]byte](resilience.DefaultRetryConfig, &breakerCfg),
	}
}

// FetchUsage retrieves the raw usage snapshot JSON from the proxy.
func (c *Client) FetchUsage(ctx context.Context) ([]byte, error) {
	return c.fetch.Execute(ctx, func() ([]byte, error) {
		resp, err := c.do(ctx, http.MethodGet, usagePath, nil)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			return nil, fmt.Errorf("usage endpoint returned %s", resp.Status)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read usage response: %w", err)
		}
		return body, nil
	})
}

// ImportUsage posts a previously saved snapshot back to the proxy so its
// in-memory counters survive proxy restarts.
func (c *Client) ImportUsage(ctx context.Context, snapshot []byte) error {
	if len(snapshot) == 0 {
		return nil
	}
	resp, err := c.do(ctx, http.MethodPost, usageImportPath, snapshot)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("usage import returned %s", resp.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.managementKey != "" {
		req.Header.Set(managementKeyHeader, c.managementKey)
	}
	return c.httpClient.Do(req)
}
