// Package dnsserver is the authoritative UDP DNS responder: it answers
// A/MX/TXT/NS queries for every verified domain in the registry and
// REFUSED for known-but-unverified or disabled ones. It is the Go
// translation of the original daemon's CybertempHandler, using miekg/dns
// server-side instead of the teacher's client-side use of the same
// library.
package dnsserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/miekg/dns"

	"github.com/cybertemp/dnsauthd/internal/metrics"
	"github.com/cybertemp/dnsauthd/internal/models"
	"github.com/cybertemp/dnsauthd/internal/registry"
)

// Config carries the zone-synthesis parameters the original daemon reads
// from DnsConfig: TTL, MX priority, mail server naming, nameservers, and
// the default/discord mail IPs used for the mail-subdomain overlay.
type Config struct {
	BindAddress   string
	Port          int
	DefaultTTL    uint32
	MXPriority    uint16
	MailServer    string // "{domain}" is substituted with the queried domain
	Nameservers   []string
	DefaultIP     string
	DiscordIP     string
}

// Server wraps a *dns.Server bound to UDP, synthesizing records from the
// registry rather than serving a static zone file.
type Server struct {
	registry *registry.Registry
	cfg      Config
	srv      *dns.Server
}

// New builds a Server. It does not bind a socket until Run is called.
func New(reg *registry.Registry, cfg Config) *Server {
	return &Server{registry: reg, cfg: cfg}
}

// Run binds the UDP listener and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.BindAddress, fmt.Sprintf("%d", s.cfg.Port))
	s.srv = &dns.Server{Addr: addr, Net: "udp", Handler: dns.HandlerFunc(s.handleRequest)}

	slog.Info("starting authoritative DNS server", "addr", addr)

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return s.srv.ShutdownContext(context.Background())
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleRequest(w dns.ResponseWriter, r *dns.Msg) {
	resp := new(dns.Msg)
	resp.SetReply(r)
	resp.Authoritative = true

	if r.Opcode != dns.OpcodeQuery {
		resp.Rcode = dns.RcodeNotImplemented
		_ = w.WriteMsg(resp)
		return
	}

	for _, q := range r.Question {
		s.answerQuestion(q, resp)
		metrics.DNSQueriesTotal.WithLabelValues(dns.TypeToString[q.Qtype], dns.RcodeToString[resp.Rcode]).Inc()
	}

	_ = w.WriteMsg(resp)
}

// gate looks up domain and reports whether answers may be synthesized for
// it: a domain absent from the registry gets an empty NOERROR response (no
// such zone is delegated to us, so we stay silent rather than refuse); a
// domain present but disabled or not yet Verified is REFUSED; a present,
// enabled, Verified domain gets its records synthesized.
func (s *Server) gate(domain string) (rec models.DomainRecord, proceed, refused bool) {
	rec, ok := s.registry.Get(domain)
	if !ok {
		return models.DomainRecord{}, false, false
	}
	if !rec.Enabled || !rec.Status.IsVerified() {
		return rec, false, true
	}
	return rec, true, false
}

func (s *Server) answerQuestion(q dns.Question, resp *dns.Msg) {
	domain := strings.TrimSuffix(q.Name, ".")

	switch q.Qtype {
	case dns.TypeA:
		s.answerA(domain, q.Name, resp)
	case dns.TypeMX:
		s.answerMX(domain, q.Name, resp)
	case dns.TypeTXT:
		s.answerTXT(domain, q.Name, resp)
	case dns.TypeNS:
		s.answerNS(domain, q.Name, resp)
	case dns.TypeAAAA:
		// the original daemon never synthesizes AAAA records; NOERROR, no answers.
	default:
		// unsupported type: NOERROR, no answers - matches the original's catch-all.
	}
}

func (s *Server) answerA(domain, qname string, resp *dns.Msg) {
	rec, proceed, refused := s.gate(domain)
	if refused {
		resp.Rcode = dns.RcodeRefused
		return
	}
	if !proceed {
		return
	}

	if ip := net.ParseIP(rec.IP).To4(); ip != nil {
		resp.Answer = append(resp.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: qname, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: s.cfg.DefaultTTL},
			A:   ip,
		})
	}

	if strings.HasPrefix(domain, "mail.") || domain == "mail" {
		base := domain
		if domain == "mail" {
			base = "cybertemp.xyz"
		} else {
			base = strings.TrimPrefix(domain, "mail.")
		}

		if parent, ok := s.registry.Get(base); ok {
			mailIP := s.cfg.DefaultIP
			if parent.Discord {
				mailIP = s.cfg.DiscordIP
			}
			if ip := net.ParseIP(mailIP).To4(); ip != nil {
				resp.Answer = append(resp.Answer, &dns.A{
					Hdr: dns.RR_Header{Name: qname, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: s.cfg.DefaultTTL},
					A:   ip,
				})
			}
		}
	}
}

func (s *Server) answerMX(domain, qname string, resp *dns.Msg) {
	rec, proceed, refused := s.gate(domain)
	if refused {
		resp.Rcode = dns.RcodeRefused
		return
	}
	if !proceed {
		return
	}

	var mailServer string
	if rec.Discord {
		mailServer = fmt.Sprintf("mail.%s.discord.cybertemp.xyz", domain)
	} else {
		mailServer = strings.ReplaceAll(s.cfg.MailServer, "{domain}", domain)
	}
	mxTarget := dns.Fqdn(mailServer)

	resp.Answer = append(resp.Answer, &dns.MX{
		Hdr:        dns.RR_Header{Name: qname, Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: s.cfg.DefaultTTL},
		Preference: s.cfg.MXPriority,
		Mx:         mxTarget,
	})

	resp.Answer = append(resp.Answer, &dns.MX{
		Hdr:        dns.RR_Header{Name: dns.Fqdn("*." + domain), Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: s.cfg.DefaultTTL},
		Preference: s.cfg.MXPriority,
		Mx:         mxTarget,
	})
}

func (s *Server) answerTXT(domain, qname string, resp *dns.Msg) {
	_, proceed, refused := s.gate(domain)
	if refused {
		resp.Rcode = dns.RcodeRefused
		return
	}
	if !proceed {
		return
	}

	resp.Answer = append(resp.Answer, &dns.TXT{
		Hdr: dns.RR_Header{Name: qname, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: s.cfg.DefaultTTL},
		Txt: []string{"v=spf1 a mx include:_spf.google.com -all"},
	})

	resp.Answer = append(resp.Answer, &dns.TXT{
		Hdr: dns.RR_Header{Name: dns.Fqdn("_dmarc." + domain), Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: s.cfg.DefaultTTL},
		Txt: []string{"v=DMARC1; p=none;"},
	})
}

func (s *Server) answerNS(domain, qname string, resp *dns.Msg) {
	_, proceed, refused := s.gate(domain)
	if refused {
		resp.Rcode = dns.RcodeRefused
		return
	}
	if !proceed {
		return
	}

	for _, ns := range s.cfg.Nameservers {
		resp.Answer = append(resp.Answer, &dns.NS{
			Hdr: dns.RR_Header{Name: qname, Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: s.cfg.DefaultTTL},
			Ns:  dns.Fqdn(ns),
		})
	}
}
