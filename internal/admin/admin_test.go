package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cybertemp/dnsauthd/internal/config"
	"github.com/cybertemp/dnsauthd/internal/models"
	"github.com/cybertemp/dnsauthd/internal/registry"
)

type fakeStore struct {
	added   map[string]bool
	removed map[string]bool
	failAdd bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{added: map[string]bool{}, removed: map[string]bool{}}
}

func (f *fakeStore) AddDomain(_ context.Context, domain, _ string, _ bool) error {
	if f.failAdd {
		return fmt.Errorf("insert failed")
	}
	f.added[domain] = true
	return nil
}

func (f *fakeStore) RemoveDomain(_ context.Context, domain string) error {
	f.removed[domain] = true
	return nil
}

type fakeRemote struct{ configured bool }

func (f *fakeRemote) Configured() bool { return f.configured }

type fakeSyncer struct{ pushes int }

func (f *fakeSyncer) Push(_ context.Context) error {
	f.pushes++
	return nil
}

func setupTestServer() (*Server, *registry.Registry, *fakeStore) {
	s, reg, store, _ := setupTestServerWithSyncer()
	return s, reg, store
}

func setupTestServerWithSyncer() (*Server, *registry.Registry, *fakeStore, *fakeSyncer) {
	reg := registry.New()
	store := newFakeStore()
	syncer := &fakeSyncer{}
	verify := func(_ context.Context, domain string) bool {
		reg.UpdateStatus(domain, models.Verified(), []string{"ns1.cybertemp.xyz."})
		return true
	}
	s := New(reg, store, &fakeRemote{configured: true}, verify, syncer, "45.134.39.51", config.AdminConfig{})
	return s, reg, store, syncer
}

func TestHandleHealth(t *testing.T) {
	s, _, _ := setupTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHandleStats_ReportsRemoteConnected(t *testing.T) {
	s, reg, _ := setupTestServer()
	reg.Put(models.DomainRecord{Domain: "example.cybertemp.xyz", Status: models.Verified()})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var stats models.StatsResponse
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.TotalDomains != 1 || stats.VerifiedDomains != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if !stats.RemoteConnected {
		t.Error("expected supabase_connected to be true")
	}
}

func TestHandleListDomains(t *testing.T) {
	s, reg, _ := setupTestServer()
	reg.Put(models.DomainRecord{Domain: "example.cybertemp.xyz", Status: models.Pending()})

	req := httptest.NewRequest(http.MethodGet, "/domains", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var views []models.DomainView
	if err := json.NewDecoder(w.Body).Decode(&views); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(views) != 1 || views[0].Domain != "example.cybertemp.xyz" {
		t.Errorf("unexpected domains: %+v", views)
	}
}

func TestHandleAddDomain_Success(t *testing.T) {
	s, reg, store := setupTestServer()

	body, _ := json.Marshal(models.AddDomainRequest{Domain: "new.cybertemp.xyz", IP: "45.134.39.50"})
	req := httptest.NewRequest(http.MethodPost, "/domains", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "added" {
		t.Errorf("expected status added, got %s", resp.Status)
	}
	if !store.added["new.cybertemp.xyz"] {
		t.Error("expected store.AddDomain to be called")
	}
	if _, ok := reg.Get("new.cybertemp.xyz"); !ok {
		t.Error("expected domain to be added to the registry immediately")
	}
}

func TestHandleAddDomain_DiscordForcesConfiguredIP(t *testing.T) {
	s, reg, _ := setupTestServer()

	body, _ := json.Marshal(models.AddDomainRequest{Domain: "mail.cybertemp.xyz", IP: "1.2.3.4", Discord: true})
	req := httptest.NewRequest(http.MethodPost, "/domains", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	rec, ok := reg.Get("mail.cybertemp.xyz")
	if !ok {
		t.Fatal("expected domain to be added to the registry")
	}
	if rec.IP != "45.134.39.51" {
		t.Errorf("expected discord domain IP to be forced to the configured mail IP, got %s", rec.IP)
	}
}

func TestHandleAddDomain_PushesToRemoteWhenConfigured(t *testing.T) {
	s, _, _, syncer := setupTestServerWithSyncer()

	body, _ := json.Marshal(models.AddDomainRequest{Domain: "new.cybertemp.xyz", IP: "45.134.39.50"})
	req := httptest.NewRequest(http.MethodPost, "/domains", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if syncer.pushes != 1 {
		t.Errorf("expected a sync push to be triggered, got %d pushes", syncer.pushes)
	}
}

func TestHandleAddDomain_InvalidDomainRejected(t *testing.T) {
	s, _, _ := setupTestServer()

	body, _ := json.Marshal(models.AddDomainRequest{Domain: ""})
	req := httptest.NewRequest(http.MethodPost, "/domains", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleRemoveDomain(t *testing.T) {
	s, reg, store := setupTestServer()
	reg.Put(models.DomainRecord{Domain: "gone.cybertemp.xyz"})

	req := httptest.NewRequest(http.MethodDelete, "/domains/gone.cybertemp.xyz", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "removed" {
		t.Errorf("expected status removed, got %s", resp.Status)
	}
	if !store.removed["gone.cybertemp.xyz"] {
		t.Error("expected store.RemoveDomain to be called")
	}
	if _, ok := reg.Get("gone.cybertemp.xyz"); ok {
		t.Error("expected domain to be gone from the registry")
	}
}

func TestHandleRemoveDomain_UnknownDomain404(t *testing.T) {
	s, _, _ := setupTestServer()

	req := httptest.NewRequest(http.MethodDelete, "/domains/nowhere.cybertemp.xyz", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandleForceVerify_Synchronous(t *testing.T) {
	s, reg, _ := setupTestServer()
	reg.Put(models.DomainRecord{Domain: "example.cybertemp.xyz", Status: models.Pending(), Enabled: true})

	req := httptest.NewRequest(http.MethodPost, "/domains/example.cybertemp.xyz/verify", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result models.VerifyResultResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.Verified || result.Status != "verified" {
		t.Errorf("expected the response to already reflect the verification outcome, got %+v", result)
	}

	rec, _ := reg.Get("example.cybertemp.xyz")
	if !rec.Status.IsVerified() {
		t.Error("expected the registry to be updated by the time the handler responds")
	}
}

func TestHandleForceVerify_UnknownDomain404(t *testing.T) {
	s, _, _ := setupTestServer()

	req := httptest.NewRequest(http.MethodPost, "/domains/nowhere.cybertemp.xyz/verify", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandleForceVerify_NoVerifierConfigured503(t *testing.T) {
	reg := registry.New()
	reg.Put(models.DomainRecord{Domain: "example.cybertemp.xyz"})
	s := New(reg, newFakeStore(), &fakeRemote{}, nil, nil, "", config.AdminConfig{})

	req := httptest.NewRequest(http.MethodPost, "/domains/example.cybertemp.xyz/verify", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestHandleMetrics(t *testing.T) {
	s, _, _ := setupTestServer()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
