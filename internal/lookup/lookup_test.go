package lookup

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
)

func TestProtocolOf(t *testing.T) {
	tests := []struct {
		target   string
		expected string
	}{
		{"udp://9.9.9.9:53", "Do53"},
		{"tcp://94.140.14.14:53", "Do53"},
		{"tls://dns.quad9.net:853", "DoT"},
		{"https://dns.quad9.net:443", "DoH"},
		{"quic://dns.adguard.com", "DoQ"},
		{"invalid", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := ProtocolOf(tt.target); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestStringToQType(t *testing.T) {
	if _, err := stringToQType("A"); err != nil {
		t.Errorf("unexpected error for A: %v", err)
	}
	if _, err := stringToQType("ns"); err != nil {
		t.Errorf("unexpected error for lowercase ns: %v", err)
	}
	if _, err := stringToQType("BOGUS"); err == nil {
		t.Error("expected error for unsupported query type")
	}
}

func TestAnswersFrom(t *testing.T) {
	msg := new(dns.Msg)
	msg.Answer = []dns.RR{
		&dns.NS{Hdr: dns.RR_Header{Name: "example.cybertemp.xyz.", Rrtype: dns.TypeNS, Ttl: 300}, Ns: "ns1.cybertemp.xyz."},
		&dns.A{Hdr: dns.RR_Header{Name: "example.cybertemp.xyz.", Rrtype: dns.TypeA, Ttl: 300}, A: net.ParseIP("45.134.39.50")},
	}

	answers := answersFrom(msg)
	if len(answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(answers))
	}
	if answers[0].Type != "NS" || answers[0].Value != "ns1.cybertemp.xyz" {
		t.Errorf("unexpected NS answer: %+v", answers[0])
	}
	if answers[1].Type != "A" || answers[1].Value != "45.134.39.50" {
		t.Errorf("unexpected A answer: %+v", answers[1])
	}
}

func TestQuery_InvalidQType(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	result := Query(ctx, "example.cybertemp.xyz", "BOGUS", defaultPublicResolver, 1, DefaultTimeout)
	if result.Error == "" {
		t.Error("expected error for unsupported query type")
	}
}

func TestQuery_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := Query(ctx, "example.cybertemp.xyz", "NS", defaultPublicResolver, 3, DefaultTimeout)
	if result.Error == "" {
		t.Error("expected error for cancelled context")
	}
}
