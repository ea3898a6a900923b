// Package redirect runs the plain HTTP listener that sends browsers
// hitting one of our registered domains over to the marketing site,
// mirroring the original daemon's start_http_redirect_server.
package redirect

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cybertemp/dnsauthd/internal/registry"
)

// Server is a bare net/http.Server, matching the teacher's own use of
// http.Server for small internal listeners rather than a router library -
// this handler only ever has one route, so chi would add nothing.
type Server struct {
	registry *registry.Registry
	target   string
	http     *http.Server
}

// New builds a Server bound to addr, redirecting matched hosts to target.
func New(reg *registry.Registry, addr, target string) *Server {
	s := &Server{registry: reg, target: target}
	s.http = &http.Server{Addr: addr, Handler: http.HandlerFunc(s.handle)}
	return s
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	host := strings.ToLower(r.Host)
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	if _, ok := s.registry.Get(host); ok {
		w.Header().Set("Location", s.target)
		w.WriteHeader(http.StatusMovedPermanently)
		slog.Info("redirecting domain", "host", host, "target", s.target)
		return
	}

	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Not found"))
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("starting HTTP redirect server", "addr", s.http.Addr)

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return s.http.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
