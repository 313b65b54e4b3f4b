package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// headerSpec describes one security header check: its weight and the
// remediation advice given when it is absent.
type headerSpec struct {
	Name           string
	Points         int
	DetailKey      string
	Recommendation string
	// Valid rejects present-but-wrong values; nil means presence suffices.
	Valid func(value string) bool
}

// headerSpecs is evaluated in order so details and recommendations come
// out stable between runs.
var headerSpecs = []headerSpec{
	{
		Name:           "Content-Security-Policy",
		Points:         25,
		DetailKey:      "csp",
		Recommendation: "Configure a Content-Security-Policy (CSP) to mitigate XSS attacks",
	},
	{
		Name:           "X-Frame-Options",
		Points:         20,
		DetailKey:      "x_frame_options",
		Recommendation: "Add X-Frame-Options (DENY or SAMEORIGIN) to prevent clickjacking",
	},
	{
		Name:           "X-Content-Type-Options",
		Points:         15,
		DetailKey:      "x_content_type_options",
		Recommendation: "Add 'X-Content-Type-Options: nosniff' to prevent MIME sniffing",
		Valid:          func(v string) bool { return v == "nosniff" },
	},
	{
		Name:           "Strict-Transport-Security",
		Points:         25,
		DetailKey:      "hsts",
		Recommendation: "Enable HSTS to force HTTPS",
	},
	{
		Name:           "Referrer-Policy",
		Points:         15,
		DetailKey:      "referrer_policy",
		Recommendation: "Configure Referrer-Policy to limit information leakage",
	},
}

// HeadersAnalyzer scores the security-relevant HTTP response headers of a
// domain's landing page.
type HeadersAnalyzer struct {
	Timeout time.Duration
	Client  *http.Client
	Logger  *zap.Logger
	// BaseURL overrides the probed scheme://host pair (tests point it at
	// an httptest server); empty means https://<domain> then http fallback.
	BaseURL string
}

// Analyze fetches the landing page (HTTPS, falling back to HTTP) and
// scores its response headers.
func (a *HeadersAnalyzer) Analyze(ctx context.Context, domain string) ModuleResult {
	if a.Timeout <= 0 {
		a.Timeout = 10 * time.Second
	}
	if a.Client == nil {
		a.Client = &http.Client{Timeout: a.Timeout}
	}
	if a.Logger == nil {
		a.Logger = zap.NewNop()
	}

	headers, err := a.fetchHeaders(ctx, domain)
	if err != nil {
		a.Logger.Warn("header analysis failed", zap.String("domain", domain), zap.Error(err))
		return errorResult("Security Headers", SeverityHigh, err,
			"Could not analyze the domain's HTTP response headers")
	}

	score := 0
	details := map[string]interface{}{}
	recommendations := []string{}

	for _, spec := range headerSpecs {
		value := headers.Get(spec.Name)
		if value == "" || (spec.Valid != nil && !spec.Valid(value)) {
			if value == "" {
				details[spec.DetailKey] = "absent"
			} else {
				details[spec.DetailKey] = "absent or incorrect"
			}
			recommendations = append(recommendations, spec.Recommendation)
			continue
		}
		score += spec.Points
		details[spec.DetailKey] = value
	}

	status, severity := scoreTier(score)
	return ModuleResult{
		ModuleName:      "Security Headers",
		Status:          status,
		Severity:        severity,
		Score:           score,
		Details:         details,
		Recommendations: recommendations,
	}
}

func (a *HeadersAnalyzer) fetchHeaders(ctx context.Context, domain string) (http.Header, error) {
	urls := []string{fmt.Sprintf("https://%s", domain), fmt.Sprintf("http://%s", domain)}
	if a.BaseURL != "" {
		urls = []string{a.BaseURL}
	}

	var lastErr error
	for _, url := range urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			lastErr = err
			continue
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; eon-audit/1.0)")
		resp, err := a.Client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		return resp.Header, nil
	}
	return nil, lastErr
}
