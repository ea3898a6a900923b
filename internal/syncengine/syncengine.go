// Package syncengine reconciles the local domain registry with the
// external record-of-truth: Pull, run once at boot, brings newly active
// remote domains in; Push, run on a fixed interval, reports local
// verification state back out. It
// is the Go translation of the original daemon's
// SupabaseClient::sync_from_supabase / sync_to_supabase, generalized past
// one vendor's REST API to whatever internal/remote.Client points at.
package syncengine

import (
	"context"
	"log/slog"
	"time"

	"github.com/cybertemp/dnsauthd/internal/lookup"
	"github.com/cybertemp/dnsauthd/internal/metrics"
	"github.com/cybertemp/dnsauthd/internal/models"
	"github.com/cybertemp/dnsauthd/internal/registry"
	"github.com/cybertemp/dnsauthd/internal/remote"
)

// DomainStore is the durable-side subset the sync engine needs. Satisfied
// by *internal/store.Store.
type DomainStore interface {
	AddDomain(ctx context.Context, domain, ip string, discord bool) error
	GetAllDomains(ctx context.Context) ([]models.DomainRecord, error)
}

// RemoteClient is the remote-side subset the sync engine needs. Satisfied
// by *internal/remote.Client.
type RemoteClient interface {
	Configured() bool
	ListActive() ([]remote.Record, error)
	ListPendingNSCheck() ([]remote.Record, error)
	UpdateDomain(id string, updates map[string]interface{}) error
}

// nsLookupFunc resolves a domain's live NS records. Swappable in tests;
// production callers get lookup.Nameservers via New.
type nsLookupFunc func(ctx context.Context, domain string, timeout time.Duration, retries int) ([]string, error)

// Engine reconciles registry state against a remote record-of-truth.
type Engine struct {
	registry *registry.Registry
	store    DomainStore
	remote   RemoteClient

	defaultIP string
	discordIP string

	ourNameservers []string
	lookupTimeout  time.Duration
	lookupRetries  int
	lookupNS       nsLookupFunc

	autoDiscoveryEnabled bool
}

// New builds a sync Engine. defaultIP/discordIP are the mail_server_ips[0]/[1]
// pair; Pull stores a remote row with discordIP when the row's discord
// flag is set and with defaultIP otherwise.
func New(reg *registry.Registry, store DomainStore, remoteClient RemoteClient, defaultIP, discordIP string, ourNameservers []string, lookupTimeout time.Duration, lookupRetries int, autoDiscoveryEnabled bool) *Engine {
	return &Engine{
		registry:             reg,
		store:                store,
		remote:               remoteClient,
		defaultIP:            defaultIP,
		discordIP:            discordIP,
		ourNameservers:       ourNameservers,
		lookupTimeout:        lookupTimeout,
		lookupRetries:        lookupRetries,
		lookupNS:             lookup.Nameservers,
		autoDiscoveryEnabled: autoDiscoveryEnabled,
	}
}

// Pull fetches active remote domains, adds any new ones to the durable
// store, reloads the in-memory registry from it, and reports each
// domain's current verification state back to the remote as
// pending_ns_check. When auto-discovery is enabled, it also processes the
// remote's pending-NS-check backlog as discovery candidates.
func (e *Engine) Pull(ctx context.Context) error {
	if !e.remote.Configured() {
		return nil
	}

	active, err := e.remote.ListActive()
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("pull", "error").Inc()
		return err
	}

	for _, rec := range active {
		ip := e.defaultIP
		if rec.Discord {
			ip = e.discordIP
		}

		if err := e.store.AddDomain(ctx, rec.Domain, ip, rec.Discord); err != nil {
			slog.Error("failed to add domain from remote", "domain", rec.Domain, "error", err)
			continue
		}
	}

	if err := e.reload(ctx); err != nil {
		metrics.SyncRunsTotal.WithLabelValues("pull", "error").Inc()
		return err
	}

	for _, rec := range active {
		current, ok := e.registry.Get(rec.Domain)
		verified := ok && current.Status.IsVerified()

		if err := e.remote.UpdateDomain(rec.ID, map[string]interface{}{
			"pending_ns_check": !verified,
			"updated_at":       time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			slog.Error("failed to report verification state to remote", "domain", rec.Domain, "error", err)
		}
	}

	if e.autoDiscoveryEnabled {
		e.discoverPending(ctx)
	}

	slog.Info("synced domains from remote", "count", len(active))
	metrics.SyncRunsTotal.WithLabelValues("pull", "success").Inc()
	return nil
}

// discoverPending treats the remote's pending_ns_check backlog as
// auto-discovery candidates: if a candidate's live NS records already
// point at ours, it is promoted straight to Verified rather than waiting
// for the next scheduled verification tick. Only candidates already in the
// registry are promoted; others are left alone, and the promotion is made
// in the registry only, not written to the store. The original daemon's
// auto_discover_domains was an unimplemented stub; this is the concrete
// behavior chosen to fill that gap; see DESIGN.md.
func (e *Engine) discoverPending(ctx context.Context) {
	candidates, err := e.remote.ListPendingNSCheck()
	if err != nil {
		slog.Warn("failed to list auto-discovery candidates", "error", err)
		return
	}

	for _, rec := range candidates {
		ns, err := e.lookupNS(ctx, rec.Domain, e.lookupTimeout, e.lookupRetries)
		if err != nil {
			continue
		}

		if (&models.DomainRecord{Nameservers: ns}).HasOurNameserver(e.ourNameservers) {
			e.registry.UpdateStatus(rec.Domain, models.Verified(), ns)
			slog.Info("auto-discovered domain verified", "domain", rec.Domain)
		}
	}
}

// Push reports every locally-known domain's verification and discord
// state back to the remote record-of-truth. A local domain with no
// matching remote row is logged and left alone - the original daemon
// never creates rows from a push, only updates existing ones.
func (e *Engine) Push(ctx context.Context) error {
	if !e.remote.Configured() {
		return nil
	}

	active, err := e.remote.ListActive()
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("push", "error").Inc()
		return err
	}

	remoteByDomain := make(map[string]remote.Record, len(active))
	for _, rec := range active {
		remoteByDomain[rec.Domain] = rec
	}

	local, err := e.store.GetAllDomains(ctx)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("push", "error").Inc()
		return err
	}

	for _, rec := range local {
		remoteRec, ok := remoteByDomain[rec.Domain]
		if !ok {
			slog.Warn("domain exists locally but not in remote record-of-truth", "domain", rec.Domain)
			continue
		}

		if err := e.remote.UpdateDomain(remoteRec.ID, map[string]interface{}{
			"pending_ns_check": !rec.Status.IsVerified(),
			"discord":          rec.Discord,
			"updated_at":       time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			slog.Error("failed to push domain state to remote", "domain", rec.Domain, "error", err)
		}
	}

	if err := e.reload(ctx); err != nil {
		metrics.SyncRunsTotal.WithLabelValues("push", "error").Inc()
		return err
	}

	slog.Info("synced local domain state to remote")
	metrics.SyncRunsTotal.WithLabelValues("push", "success").Inc()
	return nil
}

func (e *Engine) reload(ctx context.Context) error {
	records, err := e.store.GetAllDomains(ctx)
	if err != nil {
		return err
	}
	e.registry.Load(records)
	metrics.RegistrySize.Set(float64(len(records)))
	return nil
}

// Run ticks Push on interval until ctx is cancelled. Pull is a one-shot
// boot-time reconciliation (see internal/app), run once before Run starts;
// only the outbound direction repeats on its own schedule, matching the
// original daemon's periodic Supabase push with its pull folded into
// daemon startup instead of every tick.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Push(ctx); err != nil {
				slog.Error("sync push failed", "error", err)
			}
		}
	}
}
