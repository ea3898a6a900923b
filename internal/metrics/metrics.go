// Package metrics defines the Prometheus collectors dnsauthd exposes on
// the admin API's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DNSQueriesTotal counts queries answered by the authoritative
	// responder, labeled by record type and response code.
	DNSQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dnsauthd_dns_queries_total",
		Help: "Total DNS queries answered by the authoritative responder.",
	}, []string{"qtype", "rcode"})

	// DNSLookupTotal counts outbound verification lookups, labeled by
	// upstream target, query type, and outcome.
	DNSLookupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dnsauthd_lookup_total",
		Help: "Total outbound verification lookups performed.",
	}, []string{"target", "qtype", "outcome"})

	// DNSLookupErrors counts outbound lookup failures, labeled by target
	// and a short error reason.
	DNSLookupErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dnsauthd_lookup_errors_total",
		Help: "Total outbound verification lookup errors.",
	}, []string{"target", "reason"})

	// DNSLookupDuration observes outbound lookup latency in seconds.
	DNSLookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dnsauthd_lookup_duration_seconds",
		Help:    "Outbound verification lookup latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"target", "qtype"})

	// VerificationTotal counts verification passes, labeled by the
	// resulting status.
	VerificationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dnsauthd_verification_total",
		Help: "Total domain verification passes, labeled by resulting status.",
	}, []string{"status"})

	// SyncRunsTotal counts sync engine runs, labeled by direction
	// (pull/push) and outcome.
	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dnsauthd_sync_runs_total",
		Help: "Total sync engine runs, labeled by direction and outcome.",
	}, []string{"direction", "outcome"})

	// RegistrySize reports the current number of domains in the registry.
	RegistrySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dnsauthd_registry_size",
		Help: "Current number of domains held in the in-memory registry.",
	})

	// AdminRequestsTotal counts admin API requests, labeled by route.
	AdminRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dnsauthd_admin_requests_total",
		Help: "Total admin API requests, labeled by route.",
	}, []string{"route"})
)

// RecordQueryMetrics records a single outbound lookup's outcome, mirroring
// the teacher's on-demand metrics update: one call site after the lookup
// completes, not threaded through every call in the chain.
func RecordQueryMetrics(target string, seconds float64, rcode, qtype string) {
	DNSLookupDuration.WithLabelValues(target, qtype).Observe(seconds)
	outcome := "success"
	if rcode != "NOERROR" {
		outcome = "error"
	}
	DNSLookupTotal.WithLabelValues(target, qtype, outcome).Inc()
}
