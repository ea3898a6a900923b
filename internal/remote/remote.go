// Package remote talks to the external record-of-truth: a PostgREST-style
// REST API (the deployment this daemon was built for runs on Supabase)
// that customers and billing systems write domain registrations into.
// internal/syncengine pulls active rows from it into the local registry
// and pushes local verification state back out.
package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Record is one row of the remote domains table, named Record rather than
// Domain to avoid colliding with models.DomainRecord - this is the wire
// shape, not the registry's internal representation.
type Record struct {
	ID             string    `json:"id"`
	Domain         string    `json:"domain"`
	Discord        bool      `json:"discord"`
	PendingNSCheck bool      `json:"pending_ns_check"`
	Active         bool      `json:"active"`
	AddedAt        time.Time `json:"added_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Client wraps a resty client configured against one record-of-truth
// deployment. A zero-value URL/Key means no remote is configured; every
// method is then a no-op, matching the original daemon's is_configured
// guard.
type Client struct {
	http *resty.Client
	url  string
	key  string
}

// New builds a Client against baseURL, authenticating with apiKey the way
// the original PostgREST-fronted deployment expects: both an "apikey"
// header and a bearer Authorization header carrying the same key.
func New(baseURL, apiKey string) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetHeader("apikey", apiKey).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	return &Client{http: r, url: baseURL, key: apiKey}
}

// Configured reports whether a remote endpoint was actually set up.
func (c *Client) Configured() bool {
	return c != nil && c.url != "" && c.key != ""
}

// checkRespForError bubbles up transport errors first, then treats any
// non-2xx status as an error carrying the response body for context.
func checkRespForError(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("remote API error (status %d): %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// ListActive returns every remote row currently marked active.
func (c *Client) ListActive() ([]Record, error) {
	if !c.Configured() {
		return nil, nil
	}

	var records []Record
	resp, err := c.http.R().
		SetResult(&records).
		SetQueryParam("active", "eq.true").
		Get("/rest/v1/domains")
	if err := checkRespForError(resp, err); err != nil {
		return nil, fmt.Errorf("failed to list active domains: %w", err)
	}
	return records, nil
}

// ListPendingNSCheck returns every remote row still awaiting nameserver
// verification, the candidate set for auto-discovery.
func (c *Client) ListPendingNSCheck() ([]Record, error) {
	if !c.Configured() {
		return nil, nil
	}

	var records []Record
	resp, err := c.http.R().
		SetResult(&records).
		SetQueryParam("pending_ns_check", "eq.true").
		Get("/rest/v1/domains")
	if err := checkRespForError(resp, err); err != nil {
		return nil, fmt.Errorf("failed to list pending-ns-check domains: %w", err)
	}
	return records, nil
}

// UpdateDomain patches the remote row identified by id with updates,
// using Prefer: return=minimal since the response body is never needed.
func (c *Client) UpdateDomain(id string, updates map[string]interface{}) error {
	if !c.Configured() {
		return nil
	}

	body, err := json.Marshal(updates)
	if err != nil {
		return fmt.Errorf("failed to marshal update for domain %s: %w", id, err)
	}

	resp, err := c.http.R().
		SetHeader("Prefer", "return=minimal").
		SetBody(body).
		SetQueryParam("id", "eq."+id).
		Patch("/rest/v1/domains")
	if err := checkRespForError(resp, err); err != nil {
		return fmt.Errorf("failed to update domain %s: %w", id, err)
	}
	return nil
}

// DeleteDomain removes the remote row identified by id.
func (c *Client) DeleteDomain(id string) error {
	if !c.Configured() {
		return nil
	}

	resp, err := c.http.R().
		SetHeader("Prefer", "return=minimal").
		SetQueryParam("id", "eq."+id).
		Delete("/rest/v1/domains")
	if err := checkRespForError(resp, err); err != nil {
		return fmt.Errorf("failed to delete domain %s: %w", id, err)
	}
	return nil
}
