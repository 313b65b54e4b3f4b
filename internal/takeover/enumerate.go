package takeover

import (
	"fmt"
	"strings"
)

// commonLabels is the fixed list of subdomain labels probed for every scan.
// A bounded list keeps worst-case scan cost predictable; this deliberately
// trades completeness (wordlist brute force, zone transfers) for latency.
var commonLabels = []string{
	"www", "mail", "remote", "blog", "webmail", "server", "ns1", "ns2",
	"smtp", "secure", "vpn", "m", "shop", "ftp", "api", "dev", "staging",
	"test", "portal", "admin", "support", "docs", "cdn", "app", "beta",
	"status", "help", "connect", "git", "ci", "assets", "static", "media",
}

// Candidate is one subdomain probe: the label plus the fully-qualified name
// built from it. CNAME is filled in by the resolver stage; empty means the
// candidate is not provisioned.
type Candidate struct {
	Label string
	FQDN  string
	CNAME string
}

// Candidates builds the ordered probe list for an apex domain. Pure data
// transform, no network access; report ordering follows this slice.
func Candidates(domain string) []Candidate {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	out := make([]Candidate, 0, len(commonLabels))
	for _, label := range commonLabels {
		out = append(out, Candidate{
			Label: label,
			FQDN:  fmt.Sprintf("%s.%s", label, domain),
		})
	}
	return out
}
