// Package takeover implements the subdomain-takeover detection engine:
// enumeration of common subdomain candidates, CNAME resolution, signature
// matching against known vulnerable hosting services, and HTTP-body
// verification that distinguishes "hosted on a third party" from "points
// at a claimable orphaned resource".
package takeover

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jackalstv/eon-security-audit/internal/analyzer"
)

// ModuleName is how this engine identifies itself in scan reports.
const ModuleName = "Subdomain Takeover"

// Classification of a finding.
const (
	ClassVulnerableOrphan = "vulnerable_orphan"
	ClassAtRiskThirdParty = "at_risk_third_party"
)

// Score deductions per finding class. Deductions are fixed and only the
// zero clamp bounds them; there is deliberately no per-scan cap.
const (
	deductVulnerable = 40
	deductAtRisk     = 10
)

// Finding is one confirmed or suspected dangling CNAME.
type Finding struct {
	FQDN           string `json:"subdomain"`
	CNAME          string `json:"cname"`
	Service        string `json:"service"`
	Classification string `json:"classification"`
}

// Report is the aggregate outcome of one takeover scan.
type Report struct {
	Score           int               `json:"score"`
	Status          string            `json:"status"`
	Severity        analyzer.Severity `json:"severity"`
	CheckedCount    int               `json:"subdomains_checked"`
	Vulnerable      []Finding         `json:"vulnerable"`
	AtRisk          []Finding         `json:"at_risk"`
	Recommendations []string          `json:"recommendations"`
	Error           string            `json:"error,omitempty"`
}

// ModuleResult converts the report into the shared analyzer result shape
// consumed by the scan orchestrator.
func (r Report) ModuleResult() analyzer.ModuleResult {
	details := map[string]interface{}{
		"subdomains_checked": r.CheckedCount,
		"vulnerable":         r.Vulnerable,
		"at_risk":            r.AtRisk,
	}
	if r.Error != "" {
		details["error"] = r.Error
	}
	return analyzer.ModuleResult{
		ModuleName:      ModuleName,
		Status:          r.Status,
		Severity:        r.Severity,
		Score:           r.Score,
		Details:         details,
		Recommendations: r.Recommendations,
	}
}

// candidateOutcome is the terminal state of one candidate's pipeline.
type candidateOutcome struct {
	finding *Finding
	checked bool
}

// Detector runs the takeover pipeline. Zero values get production
// defaults, so `(&Detector{}).Detect(ctx, domain)` works out of the box.
type Detector struct {
	Resolver    CNAMEResolver
	Fetcher     BodyFetcher
	Signatures  []ServiceSignature
	Concurrency int
	RateLimit   int // DNS queries per second, 0 = unlimited
	Logger      *zap.Logger
}

func (d *Detector) defaults() {
	if d.Resolver == nil {
		d.Resolver = &DNSResolver{Timeout: 5 * time.Second}
	}
	if d.Fetcher == nil {
		d.Fetcher = NewHTTPFetcher(5 * time.Second)
	}
	if d.Signatures == nil {
		d.Signatures = Signatures()
	}
	if d.Concurrency <= 0 {
		d.Concurrency = 8
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
}

// Detect probes the common subdomains of an apex domain and aggregates the
// outcomes into a scored report. It never returns an error: expected
// absences are skipped, transient network failures demote the affected
// candidate to "no evidence", and anything unexpected is recovered into a
// zero-score error report.
func (d *Detector) Detect(ctx context.Context, domain string) (report Report) {
	defer func() {
		if rec := recover(); rec != nil {
			d.Logger.Error("takeover scan panicked",
				zap.String("domain", domain),
				zap.Any("panic", rec),
			)
			report = Report{
				Score:           0,
				Status:          analyzer.StatusError,
				Severity:        analyzer.SeverityHigh,
				Vulnerable:      []Finding{},
				AtRisk:          []Finding{},
				Recommendations: []string{"Check DNS resolution and network connectivity"},
				Error:           fmt.Sprint(rec),
			}
		}
	}()

	d.defaults()

	candidates := Candidates(domain)
	outcomes := make([]candidateOutcome, len(candidates))

	var limiter *rate.Limiter
	if d.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(d.RateLimit), d.RateLimit)
	}

	// Candidates are independent: fan out over a bounded worker pool and
	// collect by index so report order matches enumeration order. Worker
	// panics cannot cross goroutine boundaries, so each worker hands its
	// panic back through panicCh for the deferred recover above to rethrow.
	panicCh := make(chan interface{}, len(candidates))
	sem := make(chan struct{}, d.Concurrency)
	var wg sync.WaitGroup
	for i := range candidates {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					panicCh <- rec
				}
			}()

			sem <- struct{}{}
			defer func() { <-sem }()

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					// Deadline hit while queued: same as an unresolvable candidate.
					return
				}
			}

			outcomes[idx] = d.probe(ctx, &candidates[idx])
		}(i)
	}
	wg.Wait()

	select {
	case rec := <-panicCh:
		panic(rec)
	default:
	}

	return d.aggregate(domain, candidates, outcomes)
}

// probe runs the resolve → match → verify pipeline for one candidate.
func (d *Detector) probe(ctx context.Context, c *Candidate) candidateOutcome {
	cname, ok := d.Resolver.LookupCNAME(ctx, c.FQDN)
	if !ok {
		// Not provisioned, or resolution failed: either way there is no
		// evidence, and that is not a finding.
		return candidateOutcome{}
	}
	c.CNAME = cname

	sig, matched := matchSignature(cname, d.Signatures)
	if !matched {
		return candidateOutcome{checked: true}
	}

	d.Logger.Debug("candidate matched takeover signature",
		zap.String("fqdn", c.FQDN),
		zap.String("cname", cname),
		zap.String("service", sig.Service),
	)

	finding := &Finding{
		FQDN:           c.FQDN,
		CNAME:          cname,
		Service:        sig.Service,
		Classification: ClassAtRiskThirdParty,
	}
	if verifyOrphan(ctx, d.Fetcher, c.FQDN, sig.BodyMarkers) {
		finding.Classification = ClassVulnerableOrphan
	}
	return candidateOutcome{finding: finding, checked: true}
}

// aggregate folds the per-candidate outcomes into the final report.
func (d *Detector) aggregate(domain string, candidates []Candidate, outcomes []candidateOutcome) Report {
	report := Report{
		Score:           100,
		Vulnerable:      []Finding{},
		AtRisk:          []Finding{},
		Recommendations: []string{},
	}

	for i, out := range outcomes {
		if out.checked {
			report.CheckedCount++
		}
		if out.finding == nil {
			continue
		}
		f := *out.finding
		switch f.Classification {
		case ClassVulnerableOrphan:
			report.Vulnerable = append(report.Vulnerable, f)
			report.Score -= deductVulnerable
			report.Recommendations = append(report.Recommendations, fmt.Sprintf(
				"CRITICAL: %s points to %s through an orphaned CNAME (%s); remove the DNS record or reclaim the resource",
				f.FQDN, f.Service, f.CNAME,
			))
			d.Logger.Warn("orphaned CNAME confirmed",
				zap.String("fqdn", candidates[i].FQDN),
				zap.String("cname", f.CNAME),
				zap.String("service", f.Service),
			)
		case ClassAtRiskThirdParty:
			report.AtRisk = append(report.AtRisk, f)
			report.Score -= deductAtRisk
			report.Recommendations = append(report.Recommendations, fmt.Sprintf(
				"Monitor %s -> %s (%s): remove this CNAME if the service is no longer in use",
				f.FQDN, f.CNAME, f.Service,
			))
		}
	}

	if report.Score < 0 {
		report.Score = 0
	}

	if len(report.Recommendations) == 0 {
		report.Recommendations = append(report.Recommendations,
			"No dangling CNAME detected on common subdomains")
	}
	report.Recommendations = append(report.Recommendations,
		"Remove any DNS record pointing at third-party resources that are no longer in use")

	// Severity is classification-driven before it is score-driven: a single
	// confirmed orphan forces critical even though its numeric score (60)
	// would read as medium under the score-only tiers.
	switch {
	case len(report.Vulnerable) > 0:
		report.Status = analyzer.StatusError
		report.Severity = analyzer.SeverityCritical
	case len(report.AtRisk) > 0:
		report.Status = analyzer.StatusWarning
		report.Severity = analyzer.SeverityHigh
	case report.Score >= 80:
		report.Status = analyzer.StatusSuccess
		report.Severity = analyzer.SeverityLow
	default:
		report.Status = analyzer.StatusWarning
		report.Severity = analyzer.SeverityMedium
	}

	d.Logger.Info("takeover scan complete",
		zap.String("domain", domain),
		zap.Int("score", report.Score),
		zap.Int("checked", report.CheckedCount),
		zap.Int("vulnerable", len(report.Vulnerable)),
		zap.Int("at_risk", len(report.AtRisk)),
	)

	return report
}
