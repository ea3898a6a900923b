// Package normalize validates and canonicalizes the handful of
// user-supplied strings that flow through dnsauthd and its admin client:
// domain names, query types, and protocol://host:port targets.
package normalize

import (
	"fmt"
	"net"
	"strings"
)

// Scheme constants used by ProtocolConfigs and Target.
const (
	SchemeUDP   = "udp"
	SchemeTCP   = "tcp"
	SchemeTLS   = "tls"
	SchemeHTTPS = "https"
	SchemeQUIC  = "quic"
)

// ProtocolConfig describes the defaults for one DNS transport scheme.
type ProtocolConfig struct {
	Scheme       string
	DefaultPort  int
	UsesHostname bool
	DisplayName  string
}

// ProtocolConfigs is the single source of truth mapping a scheme to its
// default port and whether it addresses servers by hostname (DoT/DoH/DoQ)
// or requires a bare IP (do53 UDP/TCP).
var ProtocolConfigs = map[string]ProtocolConfig{
	SchemeUDP:   {Scheme: SchemeUDP, DefaultPort: 53, UsesHostname: false, DisplayName: "Do53"},
	SchemeTCP:   {Scheme: SchemeTCP, DefaultPort: 53, UsesHostname: false, DisplayName: "Do53"},
	SchemeTLS:   {Scheme: SchemeTLS, DefaultPort: 853, UsesHostname: true, DisplayName: "DoT"},
	SchemeHTTPS: {Scheme: SchemeHTTPS, DefaultPort: 443, UsesHostname: true, DisplayName: "DoH"},
	SchemeQUIC:  {Scheme: SchemeQUIC, DefaultPort: 853, UsesHostname: true, DisplayName: "DoQ"},
}

var validQTypes = map[string]bool{
	"A": true, "AAAA": true, "MX": true, "TXT": true,
	"NS": true, "CNAME": true, "PTR": true, "SOA": true, "SRV": true, "CAA": true,
}

// IsValidIP reports whether s parses as an IPv4 or IPv6 address.
func IsValidIP(s string) bool {
	return net.ParseIP(s) != nil
}

// Domain trims whitespace and a trailing dot, and lowercases a domain name.
// Returns an error if the result is empty.
func Domain(s string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(s))
	d = strings.TrimSuffix(d, ".")
	if d == "" {
		return "", fmt.Errorf("domain must not be empty")
	}
	return d, nil
}

// QType uppercases and validates a DNS query type string.
func QType(s string) (string, error) {
	q := strings.ToUpper(strings.TrimSpace(s))
	if !validQTypes[q] {
		return "", fmt.Errorf("unsupported query type: %s", s)
	}
	return q, nil
}

// Target validates a scheme://host:port DNS server target and returns it
// unchanged on success.
func Target(s string) (string, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return "", fmt.Errorf("target missing scheme: %s", s)
	}
	if _, ok := ProtocolConfigs[scheme]; !ok {
		return "", fmt.Errorf("unsupported scheme %q in target %s", scheme, s)
	}
	if rest == "" {
		return "", fmt.Errorf("target missing host: %s", s)
	}
	return s, nil
}

// IPToReverseDNS builds the in-addr.arpa (IPv4) or ip6.arpa (IPv6) query
// name for a reverse lookup of ip.
func IPToReverseDNS(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("invalid IP address: %s", ip)
	}

	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.%d.in-addr.arpa.", v4[3], v4[2], v4[1], v4[0]), nil
	}

	v6 := parsed.To16()
	var nibbles []string
	for i := len(v6) - 1; i >= 0; i-- {
		nibbles = append(nibbles, fmt.Sprintf("%x", v6[i]&0x0f), fmt.Sprintf("%x", v6[i]>>4))
	}
	return strings.Join(nibbles, ".") + ".ip6.arpa.", nil
}
