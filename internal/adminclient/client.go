// Package adminclient is an HTTP client for dnsauthd's admin JSON API,
// the command-line counterpart to internal/admin's server side. It is the
// Go translation of the original daemon's bare curl-based admin workflow,
// built the way the teacher's own internal/api.Client wraps http.Client.
package adminclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cybertemp/dnsauthd/internal/models"
)

// Client wraps http.Client for admin API requests.
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient configures an HTTP client against baseURL, optionally skipping
// TLS certificate verification the way the teacher's own api.NewClient
// does for ad-hoc/self-signed deployments.
func NewClient(baseURL string, timeout time.Duration, insecure bool) *Client {
	tr := &http.Transport{}
	if insecure {
		//nolint:gosec
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout, Transport: tr},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("admin API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Health checks the admin API's health endpoint.
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var out models.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats fetches aggregate registry statistics.
func (c *Client) Stats(ctx context.Context) (*models.StatsResponse, error) {
	var out models.StatsResponse
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDomains fetches every registered domain.
func (c *Client) ListDomains(ctx context.Context) ([]models.DomainView, error) {
	var out []models.DomainView
	if err := c.do(ctx, http.MethodGet, "/domains", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddDomain registers a new domain.
func (c *Client) AddDomain(ctx context.Context, req models.AddDomainRequest) (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := c.do(ctx, http.MethodPost, "/domains", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveDomain deletes a domain by name.
func (c *Client) RemoveDomain(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/domains/"+name, nil, nil)
}

// ForceVerify runs one synchronous verification pass for name and returns
// its resulting status.
func (c *Client) ForceVerify(ctx context.Context, name string) (*models.VerifyResultResponse, error) {
	var out models.VerifyResultResponse
	if err := c.do(ctx, http.MethodPost, "/domains/"+name+"/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
