package redirect

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cybertemp/dnsauthd/internal/models"
	"github.com/cybertemp/dnsauthd/internal/registry"
)

func TestHandle_KnownDomainRedirects(t *testing.T) {
	reg := registry.New()
	reg.Put(models.DomainRecord{Domain: "example.cybertemp.xyz"})
	s := New(reg, "127.0.0.1:0", "https://cybertemp.xyz")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "Example.cybertemp.xyz:80"
	rec := httptest.NewRecorder()

	s.handle(rec, req)

	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("expected 301, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://cybertemp.xyz" {
		t.Errorf("unexpected Location: %s", loc)
	}
}

func TestHandle_UnknownDomainNotFound(t *testing.T) {
	reg := registry.New()
	s := New(reg, "127.0.0.1:0", "https://cybertemp.xyz")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "nowhere.example.com"
	rec := httptest.NewRecorder()

	s.handle(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec.Body.String() != "Not found" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
