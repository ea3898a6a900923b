// Package lookup performs outbound DNS queries against the public
// resolver chain on behalf of internal/verifier, so it can compare a
// domain's live NS records against our own; internal/syncengine's
// auto-discovery runs the same NS check.
//
// Query execution is delegated to AdGuard's dnsproxy upstream library,
// which already knows how to speak Do53/DoT/DoH/DoQ - exactly the
// multi-protocol surface the original daemon's DNS verification needed
// from trust-dns-resolver, just reached through a different library.
package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/AdguardTeam/dnsproxy/upstream"
	"github.com/miekg/dns"

	"github.com/cybertemp/dnsauthd/internal/metrics"
	"github.com/cybertemp/dnsauthd/internal/models"
	"github.com/cybertemp/dnsauthd/internal/normalize"
)

const (
	// CommandStatusOK indicates a successful DNS query.
	CommandStatusOK = "ok"
	// CommandStatusError indicates a failed DNS query.
	CommandStatusError = "error"

	// DefaultTimeout is the default timeout for a single query attempt.
	DefaultTimeout = 5 * time.Second
	// RetryDelay is the brief delay between retries.
	RetryDelay = 100 * time.Millisecond

	// defaultPublicResolver is queried when the caller does not name a
	// specific upstream - used for NS verification, where any recursive
	// resolver gives the same publicly-visible answer.
	defaultPublicResolver = "udp://1.1.1.1:53"
)

// RCodeMapping uses miekg/dns constants for response codes.
var RCodeMapping = map[int]string{
	dns.RcodeSuccess:        "NOERROR",
	dns.RcodeFormatError:    "FORMERR",
	dns.RcodeServerFailure:  "SERVFAIL",
	dns.RcodeNameError:      "NXDOMAIN",
	dns.RcodeNotImplemented: "NOTIMP",
	dns.RcodeRefused:        "REFUSED",
}

// ProtocolOf extracts the display name (Do53/DoT/DoH/DoQ) of a target URL.
func ProtocolOf(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" {
		return "Unknown"
	}
	if cfg, ok := normalize.ProtocolConfigs[u.Scheme]; ok {
		return cfg.DisplayName
	}
	return "Unknown"
}

func stringToQType(qtype string) (uint16, error) {
	if dnsType, ok := dns.StringToType[strings.ToUpper(qtype)]; ok {
		return dnsType, nil
	}
	return 0, fmt.Errorf("unsupported query type: %s", qtype)
}

func qtypeToString(qtype uint16) string {
	if s, ok := dns.TypeToString[qtype]; ok {
		return s
	}
	return fmt.Sprintf("TYPE%d", qtype)
}

// Query performs one DNS query against target, making at most retries
// attempts in total with a short delay between them - a pragmatic default for
// transient network issues on public resolvers.
func Query(ctx context.Context, domain, qtype, target string, retries int, timeout time.Duration) models.LookupResult {
	result := models.LookupResult{Domain: domain, QType: strings.ToUpper(qtype)}

	dnsType, err := stringToQType(qtype)
	if err != nil {
		result.Error = err.Error()
		metrics.DNSLookupErrors.WithLabelValues(target, "invalid_qtype").Inc()
		return result
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dnsType)
	msg.RecursionDesired = true

	var response *dns.Msg
	var rtt time.Duration

	for attempt := 0; attempt < retries; attempt++ {
		select {
		case <-ctx.Done():
			result.Error = fmt.Sprintf("context cancelled: %v", ctx.Err())
			metrics.DNSLookupErrors.WithLabelValues(target, "context_cancelled").Inc()
			return result
		default:
		}

		response, rtt, err = performQuery(ctx, msg, target, timeout)
		if err == nil && response != nil {
			break
		}

		if ctx.Err() != nil {
			result.Error = fmt.Sprintf("context cancelled: %v", ctx.Err())
			metrics.DNSLookupErrors.WithLabelValues(target, "context_cancelled").Inc()
			return result
		}

		if attempt < retries-1 {
			time.Sleep(RetryDelay)
		}
	}

	if err != nil {
		result.Error = fmt.Sprintf("query failed: %v", err)
		metrics.DNSLookupErrors.WithLabelValues(target, "query_failed").Inc()
		return result
	}
	if response == nil {
		result.Error = "no response received"
		metrics.DNSLookupErrors.WithLabelValues(target, "no_response").Inc()
		return result
	}

	result.TimeMs = float64(rtt.Microseconds()) / 1000.0
	rcode := RCodeMapping[response.Rcode]
	if rcode == "" {
		rcode = fmt.Sprintf("UNKNOWN(%d)", response.Rcode)
	}
	metrics.RecordQueryMetrics(target, result.TimeMs/1000.0, rcode, result.QType)

	result.Answers = answersFrom(response)
	return result
}

func answersFrom(response *dns.Msg) []models.DNSAnswer {
	answers := make([]models.DNSAnswer, 0, len(response.Answer))
	for _, rr := range response.Answer {
		answer := models.DNSAnswer{
			Name: strings.TrimSuffix(rr.Header().Name, "."),
			Type: qtypeToString(rr.Header().Rrtype),
			TTL:  rr.Header().Ttl,
		}

		switch v := rr.(type) {
		case *dns.A:
			answer.Value = v.A.String()
		case *dns.AAAA:
			answer.Value = v.AAAA.String()
		case *dns.CNAME:
			answer.Value = strings.TrimSuffix(v.Target, ".")
		case *dns.MX:
			answer.Value = fmt.Sprintf("%d %s", v.Preference, strings.TrimSuffix(v.Mx, "."))
		case *dns.NS:
			answer.Value = strings.TrimSuffix(v.Ns, ".")
		case *dns.TXT:
			answer.Value = strings.Join(v.Txt, " ")
		default:
			answer.Value = rr.String()
		}

		answers = append(answers, answer)
	}
	return answers
}

// performQuery delegates DNS query execution to AdGuard's upstream
// library, running the exchange in a goroutine so ctx cancellation is
// observed even mid-query.
func performQuery(ctx context.Context, msg *dns.Msg, target string, timeout time.Duration) (*dns.Msg, time.Duration, error) {
	start := time.Now()

	up, err := upstream.AddressToUpstream(target, &upstream.Options{Timeout: timeout})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create upstream: %w", err)
	}
	defer func() { _ = up.Close() }()

	type result struct {
		resp *dns.Msg
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		resp, err := up.Exchange(msg)
		resultCh <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("query cancelled: %w", ctx.Err())
	case res := <-resultCh:
		if res.err != nil {
			return nil, 0, fmt.Errorf("DNS query failed: %w", res.err)
		}
		return res.resp, time.Since(start), nil
	}
}

// Nameservers queries the live NS records for domain against the public
// resolver chain, the check internal/verifier runs every tick. It returns
// the NS hostnames observed, stripped of their trailing dot.
func Nameservers(ctx context.Context, domain string, timeout time.Duration, retries int) ([]string, error) {
	result := Query(ctx, domain, "NS", defaultPublicResolver, retries, timeout)
	if result.Error != "" {
		err := fmt.Errorf("NS lookup for %s failed: %s", domain, result.Error)
		logUnreachable(domain, err)
		return nil, err
	}

	ns := make([]string, 0, len(result.Answers))
	for _, answer := range result.Answers {
		if answer.Type == "NS" {
			ns = append(ns, answer.Value)
		}
	}
	return ns, nil
}

// RunMany fans out the same query to multiple targets concurrently,
// bounded by maxConcurrent, and returns each target's result keyed by target.
func RunMany(ctx context.Context, domain, qtype string, targets []string, maxConcurrent, retries int, timeout time.Duration) map[string]models.LookupResult {
	results := make(map[string]models.LookupResult, len(targets))
	var mu sync.Mutex
	var wg sync.WaitGroup
	pool := make(chan struct{}, maxConcurrent)

	for _, target := range targets {
		wg.Add(1)
		pool <- struct{}{}

		go func(target string) {
			defer wg.Done()
			defer func() { <-pool }()

			res := Query(ctx, domain, qtype, target, retries, timeout)
			mu.Lock()
			results[target] = res
			mu.Unlock()
		}(target)
	}

	wg.Wait()
	return results
}

// logUnreachable is a small helper kept distinct from Query's own error
// propagation so callers that only care about "is it working" (the
// verifier's periodic sweep) can log without constructing a full result.
func logUnreachable(domain string, err error) {
	slog.Warn("nameserver lookup failed", "domain", domain, "error", err)
}
