package takeover

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// CNAMEResolver resolves the canonical alias of a fully-qualified name.
// The second return value reports whether a CNAME exists; absence covers
// NXDOMAIN, missing record type, SERVFAIL, timeouts and any other
// resolution failure. Absence is a normal outcome, never an error; most
// probed candidates will not exist for a given domain.
type CNAMEResolver interface {
	LookupCNAME(ctx context.Context, fqdn string) (string, bool)
}

// DNSResolver is the production CNAMEResolver, issuing one CNAME query per
// call against the system resolver.
type DNSResolver struct {
	Timeout time.Duration
	// Server overrides the nameserver from /etc/resolv.conf ("host:port").
	Server string
}

func (r *DNSResolver) server() string {
	if r.Server != "" {
		return r.Server
	}
	config, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(config.Servers) == 0 {
		return net.JoinHostPort("8.8.8.8", "53")
	}
	return net.JoinHostPort(config.Servers[0], config.Port)
}

// LookupCNAME resolves the CNAME record for fqdn. The returned target is
// lower-cased with the trailing root-label dot stripped so it can be
// compared directly against signature markers.
func (r *DNSResolver) LookupCNAME(ctx context.Context, fqdn string) (string, bool) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	c := &dns.Client{Timeout: timeout}
	m := &dns.Msg{}
	m.SetQuestion(dns.Fqdn(fqdn), dns.TypeCNAME)
	m.RecursionDesired = true

	resp, _, err := c.ExchangeContext(ctx, m, r.server())
	if err != nil || resp == nil || resp.Rcode != dns.RcodeSuccess {
		return "", false
	}

	for _, rr := range resp.Answer {
		if cname, ok := rr.(*dns.CNAME); ok {
			return NormalizeTarget(cname.Target), true
		}
	}
	return "", false
}

// NormalizeTarget strips the trailing root-label dot and lower-cases a
// CNAME target for signature comparison.
func NormalizeTarget(target string) string {
	return strings.ToLower(strings.TrimSuffix(target, "."))
}
