package analyzer

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

const platformBodyLimit = 512 * 1024

// platformMarkers are checked in order against the landing page body; the
// first hit decides the platform.
var platformMarkers = []struct {
	Platform Platform
	Marker   string
}{
	{PlatformShopify, "shopify"},
	{PlatformWix, "wix"},
	{PlatformWordPress, "wp-content"},
	{PlatformSquarespace, "squarespace"},
}

// PlatformDetector identifies the hosting platform behind a domain from
// markers in its landing page.
type PlatformDetector struct {
	Timeout time.Duration
	Client  *http.Client
	// BaseURL overrides the probed URL (tests); empty means https://<domain>.
	BaseURL string
}

// Detect fetches the landing page and sniffs it for platform markers. Any
// fetch failure means the platform is simply unknown.
func (d *PlatformDetector) Detect(ctx context.Context, domain string) Platform {
	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Second
	}
	if d.Client == nil {
		d.Client = &http.Client{Timeout: d.Timeout}
	}

	url := d.BaseURL
	if url == "" {
		url = "https://" + domain
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return PlatformUnknown
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := d.Client.Do(req)
	if err != nil {
		return PlatformUnknown
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, platformBodyLimit))
	_ = resp.Body.Close()
	if readErr != nil {
		return PlatformUnknown
	}

	lower := strings.ToLower(string(body))
	for _, pm := range platformMarkers {
		if strings.Contains(lower, pm.Marker) {
			return pm.Platform
		}
	}
	return PlatformCustom
}
