package remote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Configured(t *testing.T) {
	var unconfigured *Client
	if unconfigured.Configured() {
		t.Error("nil client should not report configured")
	}

	c := New("", "")
	if c.Configured() {
		t.Error("client with empty url/key should not report configured")
	}

	c = New("https://example.supabase.co", "key")
	if !c.Configured() {
		t.Error("client with url and key should report configured")
	}
}

func TestClient_ListActive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("active") != "eq.true" {
			t.Errorf("expected active=eq.true query param, got %s", r.URL.RawQuery)
		}
		if r.Header.Get("apikey") != "test-key" {
			t.Errorf("expected apikey header, got %s", r.Header.Get("apikey"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]Record{
			{ID: "1", Domain: "example.cybertemp.xyz", Active: true},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key")
	records, err := c.ListActive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Domain != "example.cybertemp.xyz" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestClient_ListActive_Unconfigured(t *testing.T) {
	c := New("", "")
	records, err := c.ListActive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records != nil {
		t.Errorf("expected nil records for unconfigured client, got %v", records)
	}
}

func TestClient_UpdateDomain_PropagatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad request"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key")
	err := c.UpdateDomain("abc", map[string]interface{}{"pending_ns_check": false})
	if err == nil {
		t.Error("expected error for non-2xx response")
	}
}

func TestClient_DeleteDomain_UsesPreferMinimal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Prefer") != "return=minimal" {
			t.Errorf("expected Prefer: return=minimal header, got %s", r.Header.Get("Prefer"))
		}
		if r.URL.Query().Get("id") != "eq.abc" {
			t.Errorf("expected id=eq.abc query param, got %s", r.URL.RawQuery)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key")
	if err := c.DeleteDomain("abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
