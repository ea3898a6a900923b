// Package admin exposes the JSON control-plane API operators use to manage
// the domain registry: list/add/remove domains, force an out-of-band
// verification pass, and read aggregate stats and Prometheus metrics. It
// is the Go translation of the original daemon's DnsApiServer, built on
// the teacher's own chi + tollbooth + swaggo stack rather than the
// DNS-lookup-task endpoints that stack originally fronted.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/cybertemp/dnsauthd/internal/config"
	"github.com/cybertemp/dnsauthd/internal/metrics"
	"github.com/cybertemp/dnsauthd/internal/models"
	"github.com/cybertemp/dnsauthd/internal/registry"

	_ "github.com/cybertemp/dnsauthd/internal/admin/docs" // swagger docs
)

// Store is the durable-side subset the admin API needs: adding and
// removing domains from the record of truth that backs the registry.
// Satisfied by *internal/store.Store.
type Store interface {
	AddDomain(ctx context.Context, domain, ip string, discord bool) error
	RemoveDomain(ctx context.Context, domain string) error
}

// Remote reports whether an external record-of-truth is wired up, for the
// stats endpoint's supabase_connected field. Satisfied by
// *internal/remote.Client.
type Remote interface {
	Configured() bool
}

// VerifyFunc runs one synchronous verification pass for domain and reports
// whether it now verifies, matching internal/verifier.Verifier's
// VerifyDomain method without a direct import - admin only needs the
// outcome, not the verifier's lookup/store wiring.
type VerifyFunc func(ctx context.Context, domain string) bool

// Syncer pushes the current registry state to the external record-of-truth
// on demand. Satisfied by *internal/syncengine.Engine; an interface here
// keeps admin from importing syncengine's remote/store wiring.
type Syncer interface {
	Push(ctx context.Context) error
}

// Server is a chi router carrying the same middleware stack (tollbooth,
// request logging, panic recovery, request ID, real IP) as the teacher's
// DNS-lookup API, fronting domain-registry endpoints instead.
type Server struct {
	router    *chi.Mux
	registry  *registry.Registry
	store     Store
	remote    Remote
	verify    VerifyFunc
	syncer    Syncer
	discordIP string
	cfg       config.AdminConfig
}

// New builds a Server. verify may be nil, in which case force-verify
// requests return 503 rather than panicking. syncer may be nil, in which
// case adding a domain never triggers a push. discordIP is the mail server
// IP forced onto every domain added with discord=true.
func New(reg *registry.Registry, store Store, remoteClient Remote, verify VerifyFunc, syncer Syncer, discordIP string, cfg config.AdminConfig) *Server {
	s := &Server{router: chi.NewRouter(), registry: reg, store: store, remote: remoteClient, verify: verify, syncer: syncer, discordIP: discordIP, cfg: cfg}
	s.routes()
	return s
}

func (s *Server) routes() {
	if s.cfg.RequestsPerSecond > 0 {
		lmt := tollbooth.NewLimiter(
			float64(s.cfg.RequestsPerSecond),
			&limiter.ExpirableOptions{DefaultExpirationTTL: 10 * time.Minute},
		)
		lmt.SetBurst(s.cfg.BurstSize)

		ipSource := os.Getenv("RATE_LIMIT_IP_SOURCE")
		if ipSource == "" {
			ipSource = "RemoteAddr"
		}
		lmt.SetIPLookup(limiter.IPLookup{Name: ipSource, IndexFromRight: 0})
		lmt.SetMessage(`{"error":"rate limit exceeded"}`)
		lmt.SetMessageContentType("application/json")

		s.router.Use(func(next http.Handler) http.Handler {
			return tollbooth.HTTPMiddleware(lmt)(next)
		})
	}

	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/stats", s.handleStats)
	s.router.Get("/domains", s.handleListDomains)
	s.router.Post("/domains", s.handleAddDomain)
	s.router.Delete("/domains/{name}", s.handleRemoveDomain)
	s.router.Post("/domains/{name}/verify", s.handleForceVerify)
	s.router.Get("/metrics", s.handleMetrics)

	s.router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
	})
	s.router.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))
}

// Router exposes the chi.Mux for testing.
func (s *Server) Router() http.Handler { return s.router }

// Run starts the admin HTTP server on addr with config-driven timeouts and
// serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// handleHealth always reports healthy. It does not probe the store or the
// remote record-of-truth and never sets the response's warning field.
// @Summary Health check
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	metrics.AdminRequestsTotal.WithLabelValues("health").Inc()
	respondJSON(w, http.StatusOK, models.HealthResponse{Status: "healthy"})
}

// handleStats reports aggregate registry counts.
// @Summary Registry statistics
// @Produce json
// @Success 200 {object} models.StatsResponse
// @Router /stats [get]
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	metrics.AdminRequestsTotal.WithLabelValues("stats").Inc()
	stats := s.registry.Stats()
	stats.RemoteConnected = s.remote != nil && s.remote.Configured()
	respondJSON(w, http.StatusOK, stats)
}

// handleListDomains lists every registered domain.
// @Summary List domains
// @Produce json
// @Success 200 {array} models.DomainView
// @Router /domains [get]
func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	metrics.AdminRequestsTotal.WithLabelValues("list_domains").Inc()
	records := s.registry.All()
	views := make([]models.DomainView, 0, len(records))
	for _, rec := range records {
		views = append(views, rec.ToView())
	}
	respondJSON(w, http.StatusOK, views)
}

// handleAddDomain registers a new domain against the durable store; the
// registry is also updated immediately so the new domain answers right
// away instead of waiting for the next sync reload. A discord=true request
// always gets the configured Discord mail IP, never the client-supplied
// one, keeping every discord domain pointed at the same mail server. If a
// remote record-of-truth is configured, a sync push is triggered afterward
// so the remote side picks up the addition without waiting for its own
// periodic tick.
// @Summary Add a domain
// @Accept json
// @Produce json
// @Param request body models.AddDomainRequest true "Domain to register"
// @Success 200 {object} models.StatusResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /domains [post]
func (s *Server) handleAddDomain(w http.ResponseWriter, r *http.Request) {
	metrics.AdminRequestsTotal.WithLabelValues("add_domain").Inc()

	var req models.AddDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Discord {
		req.IP = s.discordIP
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "durable store not configured")
		return
	}
	if err := s.store.AddDomain(r.Context(), req.Domain, req.IP, req.Discord); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.registry.Put(models.DomainRecord{
		Domain:  req.Domain,
		IP:      req.IP,
		Discord: req.Discord,
		Enabled: true,
		Status:  models.Pending(),
	})

	if s.syncer != nil && s.remote != nil && s.remote.Configured() {
		if err := s.syncer.Push(r.Context()); err != nil {
			slog.Error("failed to push registry after domain add", "domain", req.Domain, "error", err)
		}
	}

	respondJSON(w, http.StatusOK, models.StatusResponse{Status: "added"})
}

// handleRemoveDomain disables a domain in the durable store and drops it
// from the in-memory registry immediately, so DNS queries stop being
// answered for it without waiting for the next sync tick.
// @Summary Remove a domain
// @Param name path string true "Domain name"
// @Success 200 {object} models.StatusResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /domains/{name} [delete]
func (s *Server) handleRemoveDomain(w http.ResponseWriter, r *http.Request) {
	metrics.AdminRequestsTotal.WithLabelValues("remove_domain").Inc()

	name := chi.URLParam(r, "name")
	if _, ok := s.registry.Get(name); !ok {
		respondError(w, http.StatusNotFound, "domain not found")
		return
	}

	if s.store != nil {
		if err := s.store.RemoveDomain(r.Context(), name); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.registry.Remove(name)
	respondJSON(w, http.StatusOK, models.StatusResponse{Status: "removed"})
}

// handleForceVerify runs a single verification pass for a domain
// immediately and returns its resulting status - synchronous by design,
// unlike the dns-lookup task queue this server's ancestor fronted, since a
// single NS lookup is cheap and operators calling this endpoint want the
// answer in the response, not a task ID to poll.
// @Summary Force domain verification
// @Produce json
// @Param name path string true "Domain name"
// @Success 200 {object} models.VerifyResultResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /domains/{name}/verify [post]
func (s *Server) handleForceVerify(w http.ResponseWriter, r *http.Request) {
	metrics.AdminRequestsTotal.WithLabelValues("force_verify").Inc()

	name := chi.URLParam(r, "name")
	if _, ok := s.registry.Get(name); !ok {
		respondError(w, http.StatusNotFound, "domain not found")
		return
	}

	if s.verify == nil {
		respondError(w, http.StatusServiceUnavailable, "verifier not configured")
		return
	}

	verified := s.verify(r.Context(), name)
	rec, _ := s.registry.Get(name)

	respondJSON(w, http.StatusOK, models.VerifyResultResponse{
		Domain:      name,
		Verified:    verified,
		Status:      rec.Status.String(),
		Nameservers: rec.Nameservers,
	})
}

// handleMetrics exposes Prometheus metrics.
// @Summary Prometheus metrics
// @Produce text/plain
// @Success 200 {string} string
// @Router /metrics [get]
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, models.ErrorResponse{Error: msg})
}
