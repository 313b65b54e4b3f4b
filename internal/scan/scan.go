// Package scan orchestrates the individual analyzers into one scored
// domain scan and keeps finished scans in memory for the API layer.
package scan

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jackalstv/eon-security-audit/internal/analyzer"
	sharederrors "github.com/jackalstv/eon-security-audit/internal/shared/errors"
	"github.com/jackalstv/eon-security-audit/internal/takeover"
)

// Result is one finished domain scan.
type Result struct {
	ScanID         string                  `json:"scan_id"`
	Domain         string                  `json:"domain"`
	Platform       analyzer.Platform       `json:"platform"`
	Timestamp      time.Time               `json:"timestamp"`
	OverallScore   int                     `json:"overall_score"`
	Modules        []analyzer.ModuleResult `json:"modules"`
	Summary        string                  `json:"summary"`
	CriticalIssues int                     `json:"critical_issues"`
	HighIssues     int                     `json:"high_issues"`
	MediumIssues   int                     `json:"medium_issues"`
	LowIssues      int                     `json:"low_issues"`
}

// ModuleAnalyzer is the common shape of the scoring analyzers.
type ModuleAnalyzer interface {
	Analyze(ctx context.Context, domain string) analyzer.ModuleResult
}

// TakeoverDetector runs the subdomain-takeover engine.
type TakeoverDetector interface {
	Detect(ctx context.Context, domain string) takeover.Report
}

// PlatformSniffer identifies the hosting platform.
type PlatformSniffer interface {
	Detect(ctx context.Context, domain string) analyzer.Platform
}

// Runner executes all analyzers for one domain. Nil fields get production
// defaults on first use.
type Runner struct {
	DNS          ModuleAnalyzer
	TLS          ModuleAnalyzer
	Headers      ModuleAnalyzer
	Takeover     TakeoverDetector
	Platform     PlatformSniffer
	SkipTakeover bool
	Logger       *zap.Logger
}

func (r *Runner) defaults() {
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}
	if r.DNS == nil {
		r.DNS = &analyzer.DNSAnalyzer{Logger: r.Logger}
	}
	if r.TLS == nil {
		r.TLS = &analyzer.TLSAnalyzer{Logger: r.Logger}
	}
	if r.Headers == nil {
		r.Headers = &analyzer.HeadersAnalyzer{Logger: r.Logger}
	}
	if r.Takeover == nil {
		r.Takeover = &takeover.Detector{Logger: r.Logger}
	}
	if r.Platform == nil {
		r.Platform = &analyzer.PlatformDetector{}
	}
}

// Run scans one domain. The only error path is an invalid domain; every
// analyzer failure is already folded into its module result.
func (r *Runner) Run(ctx context.Context, rawDomain string) (*Result, error) {
	r.defaults()

	domain, err := NormalizeDomain(rawDomain)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	r.Logger.Info("scan started", zap.String("domain", domain))

	var (
		wg       sync.WaitGroup
		platform analyzer.Platform
		modules  = make([]analyzer.ModuleResult, 0, 4)
		slots    [4]*analyzer.ModuleResult
	)

	run := func(idx int, fn func() analyzer.ModuleResult) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := fn()
			slots[idx] = &result
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		platform = r.Platform.Detect(ctx, domain)
	}()

	run(0, func() analyzer.ModuleResult { return r.DNS.Analyze(ctx, domain) })
	run(1, func() analyzer.ModuleResult { return r.TLS.Analyze(ctx, domain) })
	run(2, func() analyzer.ModuleResult { return r.Headers.Analyze(ctx, domain) })
	if !r.SkipTakeover {
		run(3, func() analyzer.ModuleResult { return r.Takeover.Detect(ctx, domain).ModuleResult() })
	}
	wg.Wait()

	for _, slot := range slots {
		if slot != nil {
			modules = append(modules, *slot)
		}
	}

	result := &Result{
		ScanID:       uuid.NewString(),
		Domain:       domain,
		Platform:     platform,
		Timestamp:    time.Now().UTC(),
		OverallScore: overallScore(modules),
		Modules:      modules,
	}
	for _, m := range modules {
		switch m.Severity {
		case analyzer.SeverityCritical:
			result.CriticalIssues++
		case analyzer.SeverityHigh:
			result.HighIssues++
		case analyzer.SeverityMedium:
			result.MediumIssues++
		case analyzer.SeverityLow:
			result.LowIssues++
		}
	}
	result.Summary = summarize(result)

	r.Logger.Info("scan finished",
		zap.String("domain", domain),
		zap.String("scan_id", result.ScanID),
		zap.Int("overall_score", result.OverallScore),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func overallScore(modules []analyzer.ModuleResult) int {
	if len(modules) == 0 {
		return 0
	}
	total := 0
	for _, m := range modules {
		total += m.Score
	}
	return total / len(modules)
}

func summarize(r *Result) string {
	if r.CriticalIssues > 0 {
		return fmt.Sprintf("Scan of %s: %d/100 - %d module(s) with critical findings, fix them first",
			r.Domain, r.OverallScore, r.CriticalIssues)
	}
	if r.HighIssues > 0 {
		return fmt.Sprintf("Scan of %s: %d/100 - %d module(s) with high-severity findings",
			r.Domain, r.OverallScore, r.HighIssues)
	}
	return fmt.Sprintf("Scan of %s: %d/100 - no high-severity findings", r.Domain, r.OverallScore)
}

var domainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

// NormalizeDomain strips scheme, leading www, path and trailing dots from
// user input and validates the remainder as a bare domain name. It is
// idempotent: normalizing a normalized domain is a no-op.
func NormalizeDomain(raw string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(raw))
	if d == "" {
		return "", sharederrors.ErrEmptyDomain
	}
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if idx := strings.IndexAny(d, "/?#"); idx >= 0 {
		d = d[:idx]
	}
	d = strings.TrimSuffix(d, ".")
	if !domainPattern.MatchString(d) {
		return "", fmt.Errorf("%w: %q", sharederrors.ErrInvalidDomain, raw)
	}
	return d, nil
}
