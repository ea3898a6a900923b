// Package models defines the domain registry's data model and the admin
// API's request/response structures.
package models

import (
	"fmt"
	"time"

	"github.com/cybertemp/dnsauthd/internal/normalize"
)

// VerificationKind is the closed set of states a domain's nameserver
// verification can be in.
type VerificationKind string

const (
	kindVerified VerificationKind = "verified"
	kindPending  VerificationKind = "pending_verification"
	kindGrace    VerificationKind = "grace_period"
	kindFailed   VerificationKind = "failed_verification"
)

// VerificationStatus carries the current verification state together with
// the grace period deadline, which is only meaningful in the grace-period
// state. The zero value is an invalid status; always build one through
// Verified, Pending, Grace, or Failed so GracePeriodEnds can never be set
// outside the one state that uses it.
type VerificationStatus struct {
	kind           VerificationKind
	gracePeriodEnd time.Time
}

// Verified reports a domain whose nameservers currently match ours.
func Verified() VerificationStatus { return VerificationStatus{kind: kindVerified} }

// Pending reports a domain that has never completed a verification pass.
func Pending() VerificationStatus { return VerificationStatus{kind: kindPending} }

// Grace reports a domain that lost its correct nameservers and has until
// endsAt before it is disabled.
func Grace(endsAt time.Time) VerificationStatus {
	return VerificationStatus{kind: kindGrace, gracePeriodEnd: endsAt}
}

// Failed reports a domain whose grace period expired, or whose lookup
// failed outright.
func Failed() VerificationStatus { return VerificationStatus{kind: kindFailed} }

// IsVerified reports whether the status is Verified.
func (s VerificationStatus) IsVerified() bool { return s.kind == kindVerified }

// IsGracePeriod reports whether the status is Grace.
func (s VerificationStatus) IsGracePeriod() bool { return s.kind == kindGrace }

// IsFailed reports whether the status is Failed.
func (s VerificationStatus) IsFailed() bool { return s.kind == kindFailed }

// GracePeriodEnds returns the grace period deadline and whether one is set.
// Only true when the status is Grace.
func (s VerificationStatus) GracePeriodEnds() (time.Time, bool) {
	if s.kind != kindGrace {
		return time.Time{}, false
	}
	return s.gracePeriodEnd, true
}

// String renders the status the way it is persisted and reported over the
// admin API, matching the original daemon's enum variant names.
func (s VerificationStatus) String() string {
	if s.kind == "" {
		return string(kindPending)
	}
	return string(s.kind)
}

// ParseVerificationStatus reconstructs a VerificationStatus from its
// persisted string form and, for the grace-period case, its deadline.
func ParseVerificationStatus(kind string, graceEnd *time.Time) (VerificationStatus, error) {
	switch VerificationKind(kind) {
	case kindVerified:
		return Verified(), nil
	case kindPending:
		return Pending(), nil
	case kindFailed:
		return Failed(), nil
	case kindGrace:
		if graceEnd == nil {
			return VerificationStatus{}, fmt.Errorf("grace_period status requires a grace period end time")
		}
		return Grace(*graceEnd), nil
	default:
		return VerificationStatus{}, fmt.Errorf("unknown verification status: %q", kind)
	}
}

// DomainRecord is one entry in the domain registry: everything needed to
// answer DNS queries for a domain and to track its verification lifecycle.
type DomainRecord struct {
	Domain        string             `json:"domain" example:"example.cybertemp.xyz"`
	IP            string             `json:"ip" example:"45.134.39.50"`
	Enabled       bool               `json:"enabled"`
	CreatedAt     time.Time          `json:"created_at"`
	LastVerified  *time.Time         `json:"last_verified,omitempty"`
	Nameservers   []string           `json:"nameservers,omitempty"`
	Status        VerificationStatus `json:"-"`
	Discord       bool               `json:"discord"`
	PendingNSCheck bool              `json:"pending_ns_check,omitempty"`
}

// Our nameservers is what a domain's live NS records are compared against
// during verification; see internal/verifier.

// HasOurNameserver reports whether any of the domain's current NS records
// matches one of ours by substring, mirroring the original daemon's
// containment check rather than an exact match (some registrars append
// trailing glue or provider suffixes to the NS hostname).
func (d *DomainRecord) HasOurNameserver(ours []string) bool {
	for _, current := range d.Nameservers {
		for _, our := range ours {
			if containsFold(current, our) {
				return true
			}
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	h, n := []rune(haystack), []rune(needle)
	if len(n) == 0 || len(n) > len(h) {
		return len(n) == 0
	}
	for i := 0; i+len(n) <= len(h); i++ {
		match := true
		for j := range n {
			if toLower(h[i+j]) != toLower(n[j]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// DNSAnswer represents a single DNS resource record observed by an outbound
// query in internal/lookup. internal/dnsserver builds miekg/dns records
// directly and does not use this type.
// @Description DNS resource record with name, type, TTL, and value
type DNSAnswer struct {
	Name  string `json:"name" example:"example.cybertemp.xyz."`
	Type  string `json:"type" example:"A"`
	TTL   uint32 `json:"ttl" example:"300"`
	Value string `json:"value" example:"45.134.39.50"`
}

// LookupResult is the outcome of one outbound NS/verification query run by
// internal/lookup against the public resolver chain.
// @Description Result of a single outbound verification lookup
type LookupResult struct {
	Domain  string      `json:"domain" example:"example.cybertemp.xyz"`
	QType   string      `json:"qtype" example:"NS"`
	Answers []DNSAnswer `json:"answers,omitempty"`
	Error   string      `json:"error,omitempty" example:"timeout"`
	TimeMs  float64     `json:"time_ms,omitempty" example:"23.45"`
}

// DomainView is the admin API's JSON projection of a DomainRecord, with the
// unexported VerificationStatus rendered as a string and its grace period
// deadline surfaced only when relevant.
// @Description Domain registry entry as exposed by the admin API
type DomainView struct {
	Domain          string     `json:"domain" example:"example.cybertemp.xyz"`
	IP              string     `json:"ip" example:"45.134.39.50"`
	Enabled         bool       `json:"enabled" example:"true"`
	CreatedAt       time.Time  `json:"created_at"`
	LastVerified    *time.Time `json:"last_verified,omitempty"`
	Nameservers     []string   `json:"nameservers,omitempty"`
	VerificationStatus string  `json:"verification_status" example:"verified"`
	GracePeriodEnds *time.Time `json:"grace_period_ends,omitempty"`
	Discord         bool       `json:"discord" example:"false"`
}

// ToView projects a DomainRecord into its admin API representation.
func (d *DomainRecord) ToView() DomainView {
	view := DomainView{
		Domain:             d.Domain,
		IP:                 d.IP,
		Enabled:            d.Enabled,
		CreatedAt:          d.CreatedAt,
		LastVerified:       d.LastVerified,
		Nameservers:        d.Nameservers,
		VerificationStatus: d.Status.String(),
		Discord:            d.Discord,
	}
	if end, ok := d.Status.GracePeriodEnds(); ok {
		view.GracePeriodEnds = &end
	}
	return view
}

// AddDomainRequest is the admin API's request body for registering a new
// domain.
// @Description Request to add a new domain to the registry
type AddDomainRequest struct {
	Domain  string `json:"domain" binding:"required" example:"example.cybertemp.xyz"`
	IP      string `json:"ip,omitempty" example:"45.134.39.50"`
	Discord bool   `json:"discord,omitempty" example:"false"`
}

// Validate normalizes and checks an AddDomainRequest.
func (r *AddDomainRequest) Validate() error {
	normalized, err := normalize.Domain(r.Domain)
	if err != nil {
		return fmt.Errorf("invalid domain: %w", err)
	}
	r.Domain = normalized

	if r.IP != "" && !normalize.IsValidIP(r.IP) {
		return fmt.Errorf("invalid IP address: %s", r.IP)
	}

	return nil
}

// StatsResponse reports aggregate registry counts, mirroring the original
// daemon's get_stats().
// @Description Aggregate domain registry statistics
type StatsResponse struct {
	TotalDomains        int  `json:"total_domains" example:"42"`
	VerifiedDomains     int  `json:"verified_domains" example:"38"`
	PendingVerification int  `json:"pending_verification" example:"2"`
	GracePeriod         int  `json:"grace_period" example:"1"`
	DiscordDomains      int  `json:"discord_domains" example:"5"`
	RemoteConnected     bool `json:"supabase_connected" example:"true"`
}

// HealthResponse indicates admin API health status.
// @Description Health check response
type HealthResponse struct {
	Status  string `json:"status" example:"healthy"`
	Warning string `json:"warning,omitempty" example:"remote record-of-truth unreachable"`
}

// StatusResponse is the admin API's terse confirmation body for write
// operations that don't echo a resource back, mirroring the original
// daemon's {"status": "..."} acknowledgements.
// @Description Write-operation acknowledgement
type StatusResponse struct {
	Status string `json:"status" example:"added"`
}

// ErrorResponse represents an admin API error response.
// @Description Error response returned for failed requests
type ErrorResponse struct {
	Error string `json:"error" example:"domain not found"`
}

// VerifyResultResponse is the admin API's response to a force-verify
// request: the domain's status immediately after running one verification
// pass.
// @Description Result of an immediate, synchronous forced verification
type VerifyResultResponse struct {
	Domain      string   `json:"domain" example:"example.cybertemp.xyz"`
	Verified    bool     `json:"verified" example:"true"`
	Status      string   `json:"status" example:"verified"`
	Nameservers []string `json:"nameservers,omitempty"`
}
