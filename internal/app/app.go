// Package app composes every long-lived component of the authoritative
// DNS daemon - durable store, remote record-of-truth, in-memory registry,
// verifier, sync engine, DNS responder, redirect server, and admin API -
// behind one context.Context, and runs them as a set of goroutines that
// all stop together on shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/cybertemp/dnsauthd/internal/admin"
	"github.com/cybertemp/dnsauthd/internal/config"
	"github.com/cybertemp/dnsauthd/internal/dnsserver"
	"github.com/cybertemp/dnsauthd/internal/redirect"
	"github.com/cybertemp/dnsauthd/internal/registry"
	"github.com/cybertemp/dnsauthd/internal/remote"
	"github.com/cybertemp/dnsauthd/internal/store"
	"github.com/cybertemp/dnsauthd/internal/syncengine"
	"github.com/cybertemp/dnsauthd/internal/tasks"
	"github.com/cybertemp/dnsauthd/internal/verifier"
)

// App wires and runs every component of the daemon.
type App struct {
	cfg *config.Config

	store    *store.Store
	registry *registry.Registry
	remote   *remote.Client
	verifier *verifier.Verifier
	syncer   *syncengine.Engine
	dns      *dnsserver.Server
	redir    *redirect.Server
	admin    *admin.Server
	sched    tasks.Scheduler
}

// New opens the durable store and wires every component against it.
// redisAddr selects the tick scheduler backend: empty means an in-memory
// ticker, non-empty means an Asynq periodic-task-manager backed one.
func New(ctx context.Context, cfg *config.Config, redisAddr string) (*App, error) {
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	reg := registry.New()
	remoteClient := remote.New(cfg.Remote.URL, cfg.Remote.Key)

	records, err := st.GetAllDomains(ctx)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load initial registry state: %w", err)
	}
	reg.Load(records)

	v := verifier.New(reg, st, cfg.Nameservers, cfg.GracePeriodDuration(), lookupTimeout, lookupRetries)

	defaultIP, discordIP := mailServerIPs(cfg.MailServerIPs)
	syncer := syncengine.New(reg, st, remoteClient, defaultIP, discordIP, cfg.Nameservers, lookupTimeout, lookupRetries, cfg.AutoDiscoveryEnabled)

	dnsSrv := dnsserver.New(reg, dnsserver.Config{
		BindAddress: cfg.BindAddress,
		Port:        cfg.Port,
		DefaultTTL:  uint32(cfg.DefaultTTL),
		MXPriority:  uint16(cfg.MXPriority),
		MailServer:  cfg.MailServer,
		Nameservers: cfg.Nameservers,
		DefaultIP:   defaultIP,
		DiscordIP:   discordIP,
	})

	var redirSrv *redirect.Server
	if cfg.HTTPRedirect.Enabled {
		redirSrv = redirect.New(reg, net.JoinHostPort(cfg.BindAddress, fmt.Sprintf("%d", cfg.HTTPRedirect.Port)), cfg.HTTPRedirect.Target)
	}

	adminSrv := admin.New(reg, st, remoteClient, v.VerifyDomain, syncer, discordIP, cfg.Admin)

	var sched tasks.Scheduler
	if redisAddr != "" {
		sched = tasks.NewAsynqScheduler(redisAddr)
	} else {
		sched = tasks.NewMemoryScheduler()
	}
	sched.RegisterPeriodic(tasks.Job{Name: "verify", Interval: cfg.VerificationInterval(), Run: func(ctx context.Context) error {
		v.VerifyAll(ctx)
		return nil
	}})
	sched.RegisterPeriodic(tasks.Job{Name: "sync-push", Interval: cfg.SyncPushInterval(), Run: syncer.Push})

	return &App{
		cfg:      cfg,
		store:    st,
		registry: reg,
		remote:   remoteClient,
		verifier: v,
		syncer:   syncer,
		dns:      dnsSrv,
		redir:    redirSrv,
		admin:    adminSrv,
		sched:    sched,
	}, nil
}

const (
	lookupTimeout = 5 * time.Second
	lookupRetries = 3
)

// mailServerIPs splits the configured mail_server_ips pair into
// default/discord IPs, matching the original daemon's
// mail_server_ips[0]/[1] convention.
func mailServerIPs(ips []string) (defaultIP, discordIP string) {
	if len(ips) > 0 {
		defaultIP = ips[0]
	}
	if len(ips) > 1 {
		discordIP = ips[1]
	}
	return defaultIP, discordIP
}

// Run starts every component and blocks until ctx is cancelled or any
// component returns an error, at which point every other component is
// stopped too.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 5)
	var wg sync.WaitGroup

	runGoroutine := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("component panicked", "component", name, "panic", r)
					errCh <- fmt.Errorf("%s panicked: %v", name, r)
					cancel()
				}
			}()
			if err := fn(runCtx); err != nil && runCtx.Err() == nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}

	if err := a.syncer.Pull(runCtx); err != nil {
		slog.Error("boot-time sync pull failed", "error", err)
	}

	runGoroutine("dns", a.dns.Run)
	runGoroutine("scheduler", a.sched.Run)
	if a.redir != nil {
		runGoroutine("redirect", a.redir.Run)
	}
	runGoroutine("admin", func(ctx context.Context) error {
		addr := net.JoinHostPort(a.cfg.Admin.Host, a.cfg.Admin.Port)
		return a.admin.Run(ctx, addr)
	})

	wg.Wait()
	close(errCh)

	var firstErr error
	for err := range errCh {
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Shutdown releases the durable store's connection pool.
func (a *App) Shutdown(_ context.Context) error {
	return a.store.Close()
}

// RedisAddr extracts the host:port portion of a redis:// URL, the shape
// internal/tasks.NewAsynqScheduler and the teacher's own tasks.NewClient
// both expect. Empty input means no Redis configured.
func RedisAddr(redisURL string) string {
	if redisURL == "" {
		return ""
	}
	u, err := url.Parse(redisURL)
	if err != nil {
		return redisURL
	}
	return u.Host
}
