package takeover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// bodyReadLimit caps how much of a probed page is inspected for markers.
// Error pages that matter fit well within this; the cap keeps a hostile
// endpoint from streaming an unbounded body at the scanner.
const bodyReadLimit = 120 * 1024

const verifierUserAgent = "Mozilla/5.0 (compatible; eon-audit/1.0)"

// BodyFetcher retrieves the HTTP body behind a single URL. Implementations
// must treat every request failure as "no body" rather than an error; the
// verifier only ever needs a best-effort page.
type BodyFetcher interface {
	FetchBody(ctx context.Context, url string) (string, bool)
}

// HTTPFetcher is the production BodyFetcher: a plain GET following
// redirects with a bounded timeout per request.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds a fetcher with the given per-request timeout
// (5 seconds when zero).
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Client exposes the underlying HTTP client so tests can intercept it.
func (f *HTTPFetcher) Client() *http.Client {
	return f.client
}

func (f *HTTPFetcher) FetchBody(ctx context.Context, url string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", verifierUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", false
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, bodyReadLimit))
	_ = resp.Body.Close()
	if readErr != nil {
		return "", false
	}
	return string(body), true
}

// verifyOrphan confirms whether a signature-matched candidate is a
// provably claimable resource. The candidate's page is fetched over https
// and then http; a failing scheme is skipped, and a scheme that answers
// without any marker does not short-circuit the next one. Markers are
// matched case-insensitively. A signature with no body markers can never
// be confirmed and always yields false, leaving the candidate classified
// as at-risk only.
func verifyOrphan(ctx context.Context, fetcher BodyFetcher, fqdn string, markers []string) bool {
	if len(markers) == 0 {
		return false
	}
	for _, scheme := range []string{"https", "http"} {
		body, ok := fetcher.FetchBody(ctx, fmt.Sprintf("%s://%s", scheme, fqdn))
		if !ok {
			continue
		}
		lower := strings.ToLower(body)
		for _, marker := range markers {
			if strings.Contains(lower, strings.ToLower(marker)) {
				return true
			}
		}
	}
	return false
}
