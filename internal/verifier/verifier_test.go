package verifier

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cybertemp/dnsauthd/internal/models"
	"github.com/cybertemp/dnsauthd/internal/registry"
)

type fakeStore struct {
	mu       sync.Mutex
	updates  map[string]models.VerificationStatus
	removed  map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{updates: map[string]models.VerificationStatus{}, removed: map[string]bool{}}
}

func (f *fakeStore) UpdateVerification(_ context.Context, domain string, status models.VerificationStatus, _ []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[domain] = status
	return nil
}

func (f *fakeStore) RemoveDomain(_ context.Context, domain string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed[domain] = true
	return nil
}

var ourNS = []string{"ns1.cybertemp.xyz", "ns2.cybertemp.xyz"}

func withLookup(v *Verifier, fn nsLookupFunc) *Verifier {
	v.lookupNS = fn
	return v
}

func TestVerifyDomain_PendingToVerified(t *testing.T) {
	reg := registry.New()
	reg.Put(models.DomainRecord{Domain: "example.cybertemp.xyz", Status: models.Pending(), Enabled: true})
	store := newFakeStore()
	v := withLookup(New(reg, store, ourNS, 48*time.Hour, time.Second, 1), func(context.Context, string, time.Duration, int) ([]string, error) {
		return []string{"ns1.cybertemp.xyz."}, nil
	})

	ok := v.VerifyDomain(context.Background(), "example.cybertemp.xyz")
	if !ok {
		t.Error("expected verification to succeed")
	}

	rec, _ := reg.Get("example.cybertemp.xyz")
	if !rec.Status.IsVerified() {
		t.Errorf("expected Verified status, got %s", rec.Status.String())
	}
	if store.updates["example.cybertemp.xyz"].String() != "verified" {
		t.Errorf("expected store to record verified, got %v", store.updates["example.cybertemp.xyz"])
	}
}

func TestVerifyDomain_VerifiedToGracePeriod(t *testing.T) {
	reg := registry.New()
	reg.Put(models.DomainRecord{Domain: "example.cybertemp.xyz", Status: models.Verified(), Enabled: true})
	v := withLookup(New(reg, nil, ourNS, 48*time.Hour, time.Second, 1), func(context.Context, string, time.Duration, int) ([]string, error) {
		return []string{"ns1.otherhost.example."}, nil
	})

	ok := v.VerifyDomain(context.Background(), "example.cybertemp.xyz")
	if ok {
		t.Error("expected verification to fail")
	}

	rec, _ := reg.Get("example.cybertemp.xyz")
	if !rec.Status.IsGracePeriod() {
		t.Errorf("expected GracePeriod status, got %s", rec.Status.String())
	}
	if _, ok := rec.Status.GracePeriodEnds(); !ok {
		t.Error("expected a grace period deadline to be set")
	}
}

func TestVerifyDomain_GracePeriodExpiredDisables(t *testing.T) {
	reg := registry.New()
	pastDeadline := time.Now().Add(-time.Hour)
	reg.Put(models.DomainRecord{Domain: "example.cybertemp.xyz", Status: models.Grace(pastDeadline), Enabled: true})
	store := newFakeStore()
	v := withLookup(New(reg, store, ourNS, 48*time.Hour, time.Second, 1), func(context.Context, string, time.Duration, int) ([]string, error) {
		return []string{"ns1.otherhost.example."}, nil
	})

	v.VerifyDomain(context.Background(), "example.cybertemp.xyz")

	if _, ok := reg.Get("example.cybertemp.xyz"); ok {
		t.Error("expected domain to be removed from the registry once grace period expired")
	}
	if !store.removed["example.cybertemp.xyz"] {
		t.Error("expected store.RemoveDomain to be called")
	}
}

func TestVerifyDomain_GracePeriodStillActiveKeepsDeadline(t *testing.T) {
	reg := registry.New()
	futureDeadline := time.Now().Add(24 * time.Hour)
	reg.Put(models.DomainRecord{Domain: "example.cybertemp.xyz", Status: models.Grace(futureDeadline), Enabled: true})
	v := withLookup(New(reg, nil, ourNS, 48*time.Hour, time.Second, 1), func(context.Context, string, time.Duration, int) ([]string, error) {
		return []string{"ns1.otherhost.example."}, nil
	})

	v.VerifyDomain(context.Background(), "example.cybertemp.xyz")

	rec, _ := reg.Get("example.cybertemp.xyz")
	if !rec.Status.IsGracePeriod() {
		t.Errorf("expected to remain in GracePeriod, got %s", rec.Status.String())
	}
	end, _ := rec.Status.GracePeriodEnds()
	if !end.Equal(futureDeadline) {
		t.Errorf("expected deadline to be preserved, got %v want %v", end, futureDeadline)
	}
}

func TestVerifyDomain_LookupFailureOnVerifiedMarksPending(t *testing.T) {
	reg := registry.New()
	reg.Put(models.DomainRecord{Domain: "example.cybertemp.xyz", Status: models.Verified(), Enabled: true})
	v := withLookup(New(reg, nil, ourNS, 48*time.Hour, time.Second, 1), func(context.Context, string, time.Duration, int) ([]string, error) {
		return nil, fmt.Errorf("timeout")
	})

	ok := v.VerifyDomain(context.Background(), "example.cybertemp.xyz")
	if ok {
		t.Error("expected verification to report failure")
	}

	rec, _ := reg.Get("example.cybertemp.xyz")
	if rec.Status.String() != "pending_verification" {
		t.Errorf("expected Pending status, got %s", rec.Status.String())
	}
}

func TestVerifyDomain_LookupFailureOnPendingMarksFailed(t *testing.T) {
	reg := registry.New()
	reg.Put(models.DomainRecord{Domain: "example.cybertemp.xyz", Status: models.Pending(), Enabled: true})
	v := withLookup(New(reg, nil, ourNS, 48*time.Hour, time.Second, 1), func(context.Context, string, time.Duration, int) ([]string, error) {
		return nil, fmt.Errorf("timeout")
	})

	ok := v.VerifyDomain(context.Background(), "example.cybertemp.xyz")
	if ok {
		t.Error("expected verification to report failure")
	}

	rec, _ := reg.Get("example.cybertemp.xyz")
	if !rec.Status.IsFailed() {
		t.Errorf("expected Failed status, got %s", rec.Status.String())
	}
}

func TestVerifyDomain_FailedStaysFailedOnMismatch(t *testing.T) {
	reg := registry.New()
	reg.Put(models.DomainRecord{Domain: "example.cybertemp.xyz", Status: models.Failed(), Enabled: false})
	v := withLookup(New(reg, nil, ourNS, 48*time.Hour, time.Second, 1), func(context.Context, string, time.Duration, int) ([]string, error) {
		return []string{"ns1.otherhost.example."}, nil
	})

	ok := v.VerifyDomain(context.Background(), "example.cybertemp.xyz")
	if ok {
		t.Error("expected verification to report failure")
	}

	rec, _ := reg.Get("example.cybertemp.xyz")
	if !rec.Status.IsFailed() {
		t.Errorf("expected domain to remain Failed, got %s", rec.Status.String())
	}
}

func TestVerifyAll_EmptyRegistryIsNoOp(t *testing.T) {
	reg := registry.New()
	v := New(reg, nil, ourNS, 48*time.Hour, time.Second, 1)
	v.VerifyAll(context.Background())
}
