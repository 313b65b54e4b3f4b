package takeover

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jackalstv/eon-security-audit/internal/analyzer"
)

// fakeResolver serves CNAME targets from a fixed map; every other name is
// absent, the way most probed candidates are in the wild.
type fakeResolver struct {
	cnames map[string]string
}

func (f *fakeResolver) LookupCNAME(_ context.Context, fqdn string) (string, bool) {
	cname, ok := f.cnames[fqdn]
	return cname, ok
}

// fakeFetcher serves bodies keyed by URL and counts calls.
type fakeFetcher struct {
	bodies map[string]string
	calls  int64
}

func (f *fakeFetcher) FetchBody(_ context.Context, url string) (string, bool) {
	atomic.AddInt64(&f.calls, 1)
	body, ok := f.bodies[url]
	return body, ok
}

func newDetector(t *testing.T, resolver CNAMEResolver, fetcher BodyFetcher) *Detector {
	t.Helper()
	return &Detector{
		Resolver: resolver,
		Fetcher:  fetcher,
		Logger:   zaptest.NewLogger(t),
	}
}

func TestDetectCleanDomain(t *testing.T) {
	d := newDetector(t, &fakeResolver{}, &fakeFetcher{})
	report := d.Detect(context.Background(), "example.com")

	assert.Equal(t, 100, report.Score)
	assert.Equal(t, analyzer.StatusSuccess, report.Status)
	assert.Equal(t, analyzer.SeverityLow, report.Severity)
	assert.Equal(t, 0, report.CheckedCount)
	assert.Empty(t, report.Vulnerable)
	assert.Empty(t, report.AtRisk)
	require.Len(t, report.Recommendations, 2)
	assert.Contains(t, report.Recommendations[0], "No dangling CNAME detected")
}

func TestDetectConfirmedOrphan(t *testing.T) {
	resolver := &fakeResolver{cnames: map[string]string{
		"staging.example.com": "foo.herokuapp.com",
	}}
	fetcher := &fakeFetcher{bodies: map[string]string{
		"https://staging.example.com": "<html>No such app</html>",
	}}

	d := newDetector(t, resolver, fetcher)
	report := d.Detect(context.Background(), "example.com")

	assert.Equal(t, 60, report.Score)
	assert.Equal(t, analyzer.StatusError, report.Status)
	assert.Equal(t, analyzer.SeverityCritical, report.Severity)
	assert.Equal(t, 1, report.CheckedCount)
	require.Len(t, report.Vulnerable, 1)
	assert.Empty(t, report.AtRisk)

	f := report.Vulnerable[0]
	assert.Equal(t, "staging.example.com", f.FQDN)
	assert.Equal(t, "foo.herokuapp.com", f.CNAME)
	assert.Equal(t, "Heroku", f.Service)
	assert.Equal(t, ClassVulnerableOrphan, f.Classification)

	assert.Contains(t, report.Recommendations[0], "CRITICAL: staging.example.com")
	assert.Contains(t, report.Recommendations[0], "Heroku")
}

func TestDetectAtRiskWithoutOrphanMarker(t *testing.T) {
	resolver := &fakeResolver{cnames: map[string]string{
		"cdn.example.com": "bar.fastly.net",
	}}
	fetcher := &fakeFetcher{bodies: map[string]string{
		"https://cdn.example.com": "<html>all good here</html>",
		"http://cdn.example.com":  "<html>all good here</html>",
	}}

	d := newDetector(t, resolver, fetcher)
	report := d.Detect(context.Background(), "example.com")

	// Classification precedence: one at-risk finding forces warning/high
	// even though the numeric score alone would read as success/low.
	assert.Equal(t, 90, report.Score)
	assert.Equal(t, analyzer.StatusWarning, report.Status)
	assert.Equal(t, analyzer.SeverityHigh, report.Severity)
	assert.Empty(t, report.Vulnerable)
	require.Len(t, report.AtRisk, 1)
	assert.Equal(t, ClassAtRiskThirdParty, report.AtRisk[0].Classification)
	assert.Contains(t, report.Recommendations[0], "Monitor cdn.example.com")
}

func TestDetectEmptyBodyMarkersNeverVulnerable(t *testing.T) {
	resolver := &fakeResolver{cnames: map[string]string{
		"mail.example.com": "u1234.wl.sendgrid.net",
	}}
	// Even a body full of error text cannot confirm a service with no
	// known markers.
	fetcher := &fakeFetcher{bodies: map[string]string{
		"https://mail.example.com": "No such app NoSuchBucket project not found",
	}}

	d := newDetector(t, resolver, fetcher)
	report := d.Detect(context.Background(), "example.com")

	assert.Empty(t, report.Vulnerable)
	require.Len(t, report.AtRisk, 1)
	assert.Equal(t, "SendGrid", report.AtRisk[0].Service)
	assert.Equal(t, int64(0), atomic.LoadInt64(&fetcher.calls), "verifier must not fetch when no markers exist")
}

func TestDetectUnmatchedCNAMEIsNotAFinding(t *testing.T) {
	resolver := &fakeResolver{cnames: map[string]string{
		"www.example.com": "lb-3.hosting.example.org",
	}}
	d := newDetector(t, resolver, &fakeFetcher{})
	report := d.Detect(context.Background(), "example.com")

	assert.Equal(t, 100, report.Score)
	assert.Equal(t, 1, report.CheckedCount)
	assert.Empty(t, report.Vulnerable)
	assert.Empty(t, report.AtRisk)
}

func TestDetectMixedFindingsAndOrdering(t *testing.T) {
	resolver := &fakeResolver{cnames: map[string]string{
		"blog.example.com":    "old.github.io",
		"staging.example.com": "gone.herokuapp.com",
		"cdn.example.com":     "edge.fastly.net",
	}}
	fetcher := &fakeFetcher{bodies: map[string]string{
		"https://blog.example.com":    "There isn't a GitHub Pages site here",
		"https://staging.example.com": "No such app",
		"https://cdn.example.com":     "healthy",
		"http://cdn.example.com":      "healthy",
	}}

	d := newDetector(t, resolver, fetcher)
	report := d.Detect(context.Background(), "example.com")

	// 100 - 2*40 - 1*10
	assert.Equal(t, 10, report.Score)
	assert.Equal(t, analyzer.StatusError, report.Status)
	assert.Equal(t, analyzer.SeverityCritical, report.Severity)
	assert.Equal(t, 3, report.CheckedCount)

	// Findings follow enumeration order regardless of which worker
	// finished first: blog before staging, per the candidate list.
	require.Len(t, report.Vulnerable, 2)
	assert.Equal(t, "blog.example.com", report.Vulnerable[0].FQDN)
	assert.Equal(t, "staging.example.com", report.Vulnerable[1].FQDN)
	require.Len(t, report.AtRisk, 1)
	assert.Equal(t, "cdn.example.com", report.AtRisk[0].FQDN)
}

func TestDetectScoreClampsAtZero(t *testing.T) {
	cnames := map[string]string{}
	bodies := map[string]string{}
	for _, label := range []string{"www", "mail", "blog", "api", "dev", "staging"} {
		fqdn := label + ".example.com"
		cnames[fqdn] = label + ".herokuapp.com"
		bodies["https://"+fqdn] = "No such app"
	}

	d := newDetector(t, &fakeResolver{cnames: cnames}, &fakeFetcher{bodies: bodies})
	report := d.Detect(context.Background(), "example.com")

	assert.Equal(t, 0, report.Score)
	assert.Len(t, report.Vulnerable, 6)
	assert.Equal(t, analyzer.SeverityCritical, report.Severity)
}

func TestDetectIsIdempotent(t *testing.T) {
	resolver := &fakeResolver{cnames: map[string]string{
		"staging.example.com": "foo.herokuapp.com",
		"cdn.example.com":     "bar.fastly.net",
	}}
	fetcher := &fakeFetcher{bodies: map[string]string{
		"https://staging.example.com": "No such app",
		"https://cdn.example.com":     "fine",
		"http://cdn.example.com":      "fine",
	}}

	d := newDetector(t, resolver, fetcher)
	first := d.Detect(context.Background(), "example.com")
	second := d.Detect(context.Background(), "example.com")
	assert.Equal(t, first, second)
}

type panicResolver struct{}

func (panicResolver) LookupCNAME(context.Context, string) (string, bool) {
	panic("resolver blew up")
}

func TestDetectRecoversFromPanic(t *testing.T) {
	d := newDetector(t, panicResolver{}, &fakeFetcher{})
	report := d.Detect(context.Background(), "example.com")

	assert.Equal(t, 0, report.Score)
	assert.Equal(t, analyzer.StatusError, report.Status)
	assert.Equal(t, analyzer.SeverityHigh, report.Severity)
	assert.Contains(t, report.Error, "resolver blew up")
	require.Len(t, report.Recommendations, 1)
	assert.Contains(t, report.Recommendations[0], "connectivity")
}

func TestDetectHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := &fakeResolver{cnames: map[string]string{
		"staging.example.com": "foo.herokuapp.com",
	}}
	d := newDetector(t, resolver, &fakeFetcher{})
	d.RateLimit = 1 // force limiter.Wait to observe the dead context

	report := d.Detect(ctx, "example.com")

	// Candidates cut off by the deadline count as absent, not as failures.
	assert.Equal(t, analyzer.StatusSuccess, report.Status)
	assert.Equal(t, 100, report.Score)
	assert.Empty(t, report.Vulnerable)
	assert.Empty(t, report.AtRisk)
}

func TestReportModuleResult(t *testing.T) {
	resolver := &fakeResolver{cnames: map[string]string{
		"staging.example.com": "foo.herokuapp.com",
	}}
	fetcher := &fakeFetcher{bodies: map[string]string{
		"https://staging.example.com": "No such app",
	}}
	d := newDetector(t, resolver, fetcher)
	result := d.Detect(context.Background(), "example.com").ModuleResult()

	assert.Equal(t, ModuleName, result.ModuleName)
	assert.Equal(t, 60, result.Score)
	assert.Equal(t, analyzer.SeverityCritical, result.Severity)
	assert.Equal(t, 1, result.Details["subdomains_checked"])
}
