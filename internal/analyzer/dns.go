package analyzer

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// DNSQuerier issues one DNS query and returns the answer section.
type DNSQuerier interface {
	Query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error)
}

// ClientQuerier is the production DNSQuerier on the system resolver.
type ClientQuerier struct {
	Timeout time.Duration
	Server  string // optional "host:port" override
}

func (q *ClientQuerier) server() string {
	if q.Server != "" {
		return q.Server
	}
	config, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(config.Servers) == 0 {
		return net.JoinHostPort("8.8.8.8", "53")
	}
	return net.JoinHostPort(config.Servers[0], config.Port)
}

func (q *ClientQuerier) Query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	timeout := q.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &dns.Client{Timeout: timeout}
	m := &dns.Msg{}
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true

	resp, _, err := c.ExchangeContext(ctx, m, q.server())
	if err != nil {
		return nil, err
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("dns query %s/%d: rcode %s", name, qtype, dns.RcodeToString[resp.Rcode])
	}
	return resp.Answer, nil
}

// DNSAnalyzer scores a domain's mail and resolver hygiene: SPF, DMARC,
// DNSSEC and MX presence.
type DNSAnalyzer struct {
	Querier DNSQuerier
	Logger  *zap.Logger
}

// Scoring weights for each DNS hygiene control.
const (
	spfPoints    = 25
	dmarcPoints  = 30
	dnssecPoints = 20
	mxPoints     = 25
)

// Analyze runs the DNS hygiene checks. A total resolver failure (every
// query erroring) yields a zero-score error result rather than an error.
func (a *DNSAnalyzer) Analyze(ctx context.Context, domain string) ModuleResult {
	if a.Querier == nil {
		a.Querier = &ClientQuerier{Timeout: 5 * time.Second}
	}
	if a.Logger == nil {
		a.Logger = zap.NewNop()
	}

	score := 0
	details := map[string]interface{}{}
	recommendations := []string{}
	failures := 0

	// SPF: a TXT record on the apex starting with v=spf1.
	spf, err := a.lookupTXTPrefix(ctx, domain, "v=spf1")
	if err != nil {
		failures++
	}
	if spf != "" {
		score += spfPoints
		details["spf"] = "valid"
	} else {
		details["spf"] = "missing or invalid"
		recommendations = append(recommendations, "Publish an SPF record restricting which hosts may send mail for this domain")
	}

	// DMARC: a TXT record on _dmarc.<domain> starting with v=DMARC1.
	dmarc, err := a.lookupTXTPrefix(ctx, "_dmarc."+domain, "v=DMARC1")
	if err != nil {
		failures++
	}
	if dmarc != "" {
		score += dmarcPoints
		details["dmarc"] = dmarc
	} else {
		details["dmarc"] = "missing"
		recommendations = append(recommendations, "Publish a DMARC record with at least p=quarantine")
	}

	// DNSSEC: presence of a DS record at the parent.
	dsAnswers, err := a.Querier.Query(ctx, domain, dns.TypeDS)
	if err != nil {
		failures++
	}
	if hasRecordOfType(dsAnswers, dns.TypeDS) {
		score += dnssecPoints
		details["dnssec"] = "enabled"
	} else {
		details["dnssec"] = "disabled"
		recommendations = append(recommendations, "Enable DNSSEC to protect against cache poisoning")
	}

	// MX presence.
	mxAnswers, err := a.Querier.Query(ctx, domain, dns.TypeMX)
	if err != nil {
		failures++
	}
	mxCount := countRecordsOfType(mxAnswers, dns.TypeMX)
	if mxCount > 0 {
		score += mxPoints
		details["mx"] = fmt.Sprintf("%d server(s) configured", mxCount)
	} else {
		details["mx"] = "not configured"
		recommendations = append(recommendations, "Configure MX records if this domain receives mail")
	}

	if failures == 4 {
		a.Logger.Warn("dns analysis failed entirely", zap.String("domain", domain))
		return errorResult("DNS Security", SeverityHigh,
			fmt.Errorf("all DNS queries failed for %s", domain),
			"Verify the domain's DNS configuration and resolver reachability")
	}

	status, severity := scoreTier(score)
	return ModuleResult{
		ModuleName:      "DNS Security",
		Status:          status,
		Severity:        severity,
		Score:           score,
		Details:         details,
		Recommendations: recommendations,
	}
}

// lookupTXTPrefix returns the first TXT string at name starting with the
// given prefix, with quoted chunks joined the way resolvers present them.
func (a *DNSAnalyzer) lookupTXTPrefix(ctx context.Context, name, prefix string) (string, error) {
	answers, err := a.Querier.Query(ctx, name, dns.TypeTXT)
	if err != nil {
		return "", err
	}
	for _, rr := range answers {
		txt, ok := rr.(*dns.TXT)
		if !ok {
			continue
		}
		joined := strings.Join(txt.Txt, "")
		if strings.HasPrefix(joined, prefix) {
			return joined, nil
		}
	}
	return "", nil
}

func hasRecordOfType(answers []dns.RR, qtype uint16) bool {
	return countRecordsOfType(answers, qtype) > 0
}

func countRecordsOfType(answers []dns.RR, qtype uint16) int {
	n := 0
	for _, rr := range answers {
		if rr.Header().Rrtype == qtype {
			n++
		}
	}
	return n
}
