// Package verifier runs the periodic nameserver-verification pass that
// drives the domain registry's Verified/Pending/Grace/Failed state
// machine. It is the Go translation of the original daemon's
// DomainManager::verify_domain / verify_all_domains / start_verification_loop.
package verifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/cybertemp/dnsauthd/internal/lookup"
	"github.com/cybertemp/dnsauthd/internal/metrics"
	"github.com/cybertemp/dnsauthd/internal/models"
	"github.com/cybertemp/dnsauthd/internal/registry"
)

// StatusStore persists the outcome of a verification pass. Satisfied by
// *internal/store.Store; an interface here keeps the verifier testable
// without a live Postgres connection and lets a caller run it against no
// store at all (registry-only mode).
type StatusStore interface {
	UpdateVerification(ctx context.Context, domain string, status models.VerificationStatus, nameservers []string) error
	RemoveDomain(ctx context.Context, domain string) error
}

// nsLookupFunc resolves a domain's live NS records. Swappable in tests;
// production callers get lookup.Nameservers via New.
type nsLookupFunc func(ctx context.Context, domain string, timeout time.Duration, retries int) ([]string, error)

// Verifier checks every registered domain's live NS records against ours
// on a fixed interval, demoting domains that lose their nameservers
// through a grace period before disabling them.
type Verifier struct {
	registry       *registry.Registry
	store          StatusStore
	ourNameservers []string
	gracePeriod    time.Duration
	timeout        time.Duration
	retries        int
	lookupNS       nsLookupFunc
}

// New builds a Verifier. store may be nil, in which case verification
// outcomes only update the in-memory registry.
func New(reg *registry.Registry, store StatusStore, ourNameservers []string, gracePeriod, timeout time.Duration, retries int) *Verifier {
	return &Verifier{
		registry:       reg,
		store:          store,
		ourNameservers: ourNameservers,
		gracePeriod:    gracePeriod,
		timeout:        timeout,
		retries:        retries,
		lookupNS:       lookup.Nameservers,
	}
}

// VerifyDomain runs one verification pass for domain and returns whether
// its live nameservers currently point at ours. This is the exact state
// transition table from the original daemon:
//
//   - NS lookup succeeds, points at ours        -> Verified, clear grace period
//   - NS lookup succeeds, doesn't, was Verified  -> Grace, set deadline
//   - NS lookup succeeds, doesn't, in Grace,
//     deadline passed                           -> Failed, removed and disabled
//   - NS lookup succeeds, doesn't, in Grace,
//     deadline not passed                       -> Grace, deadline kept
//   - NS lookup succeeds, doesn't, was Failed    -> Failed
//   - NS lookup succeeds, doesn't, otherwise     -> Pending
//   - NS lookup fails outright, was Verified     -> Pending
//   - NS lookup fails outright, otherwise        -> Failed
func (v *Verifier) VerifyDomain(ctx context.Context, domain string) bool {
	rec, ok := v.registry.Get(domain)
	if !ok {
		return false
	}

	ns, err := v.lookupNS(ctx, domain, v.timeout, v.retries)
	if err != nil {
		next := models.Failed()
		if rec.Status.IsVerified() {
			next = models.Pending()
		}
		v.transition(ctx, domain, next, rec.Nameservers)
		metrics.VerificationTotal.WithLabelValues(next.String()).Inc()
		slog.Warn("failed to verify domain", "domain", domain, "error", err)
		return false
	}

	hasOurs := (&models.DomainRecord{Nameservers: ns}).HasOurNameserver(v.ourNameservers)

	switch {
	case hasOurs:
		v.transition(ctx, domain, models.Verified(), ns)
		metrics.VerificationTotal.WithLabelValues("verified").Inc()
		slog.Info("domain verified", "domain", domain)
		return true

	case rec.Status.IsVerified():
		deadline := time.Now().Add(v.gracePeriod)
		v.transition(ctx, domain, models.Grace(deadline), ns)
		metrics.VerificationTotal.WithLabelValues("grace_period").Inc()
		slog.Warn("domain lost its nameservers, starting grace period", "domain", domain, "grace_period_ends", deadline)
		return false

	case rec.Status.IsGracePeriod():
		end, _ := rec.Status.GracePeriodEnds()
		if time.Now().After(end) {
			v.expire(ctx, domain)
			metrics.VerificationTotal.WithLabelValues("failed_verification").Inc()
			slog.Warn("domain grace period expired, disabling", "domain", domain)
			return false
		}
		// still within grace period - keep the deadline, just refresh NS.
		v.transition(ctx, domain, rec.Status, ns)
		return false

	case rec.Status.IsFailed():
		v.transition(ctx, domain, models.Failed(), ns)
		metrics.VerificationTotal.WithLabelValues("failed_verification").Inc()
		return false

	default:
		v.transition(ctx, domain, models.Pending(), ns)
		metrics.VerificationTotal.WithLabelValues("pending_verification").Inc()
		return false
	}
}

func (v *Verifier) transition(ctx context.Context, domain string, status models.VerificationStatus, ns []string) {
	v.registry.UpdateStatus(domain, status, ns)
	if v.store != nil {
		if err := v.store.UpdateVerification(ctx, domain, status, ns); err != nil {
			slog.Error("failed to persist verification outcome", "domain", domain, "error", err)
		}
	}
}

// expire removes a domain whose grace period has elapsed from the
// registry entirely, so the DNS responder's gate stops finding it and
// falls through to a plain empty-answer response instead of REFUSED.
func (v *Verifier) expire(ctx context.Context, domain string) {
	v.registry.Remove(domain)
	if v.store != nil {
		if err := v.store.RemoveDomain(ctx, domain); err != nil {
			slog.Error("failed to disable expired domain", "domain", domain, "error", err)
		}
	}
}

// VerifyAll runs VerifyDomain for every domain currently in the registry.
func (v *Verifier) VerifyAll(ctx context.Context) {
	for _, domain := range v.registry.Names() {
		v.VerifyDomain(ctx, domain)
	}
}

// Run ticks VerifyAll on interval until ctx is cancelled, matching the
// original daemon's start_verification_loop.
func (v *Verifier) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.VerifyAll(ctx)
		}
	}
}
