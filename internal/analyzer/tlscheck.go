package analyzer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// TLSAnalyzer scores a domain's TLS posture: negotiated protocol version,
// certificate validity window, and HSTS.
type TLSAnalyzer struct {
	Timeout time.Duration
	Port    string       // default "443"
	Client  *http.Client // used for the HSTS probe
	// TLSConfig overrides the handshake config (tests dial self-signed
	// endpoints).
	TLSConfig *tls.Config
	Logger    *zap.Logger
	// Now is injectable so certificate-window tests are deterministic.
	Now func() time.Time
}

// Scoring weights for the TLS posture checks.
const (
	tlsVersionPoints = 30
	certValidPoints  = 40
	certSoonPoints   = 20
	hstsPoints       = 30

	certExpiryWarningDays = 30
)

func (a *TLSAnalyzer) defaults() {
	if a.Timeout <= 0 {
		a.Timeout = 10 * time.Second
	}
	if a.Port == "" {
		a.Port = "443"
	}
	if a.Client == nil {
		a.Client = &http.Client{Timeout: a.Timeout}
	}
	if a.Logger == nil {
		a.Logger = zap.NewNop()
	}
	if a.Now == nil {
		a.Now = time.Now
	}
}

// Analyze performs the TLS handshake and header probe. A failed handshake
// yields a zero-score critical result; a failed HSTS probe only marks that
// control as unverifiable.
func (a *TLSAnalyzer) Analyze(ctx context.Context, domain string) ModuleResult {
	a.defaults()

	score := 0
	details := map[string]interface{}{}
	recommendations := []string{}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: a.Timeout},
		Config:    a.TLSConfig,
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(domain, a.Port))
	if err != nil {
		a.Logger.Warn("tls handshake failed", zap.String("domain", domain), zap.Error(err))
		return errorResult("SSL/TLS Security", SeverityCritical, err,
			"Verify the site serves HTTPS on port 443 with a valid certificate")
	}
	state := conn.(*tls.Conn).ConnectionState()
	_ = conn.Close()

	version := tlsVersionName(state.Version)
	details["tls_version"] = version
	if state.Version >= tls.VersionTLS12 {
		score += tlsVersionPoints
		details["tls_status"] = "secure"
	} else {
		details["tls_status"] = "obsolete version"
		recommendations = append(recommendations, fmt.Sprintf("Upgrade to TLS 1.2 or newer (currently %s)", version))
	}

	if len(state.PeerCertificates) > 0 {
		cert := state.PeerCertificates[0]
		daysRemaining := int(cert.NotAfter.Sub(a.Now()).Hours() / 24)
		switch {
		case daysRemaining > certExpiryWarningDays:
			score += certValidPoints
			details["certificate"] = fmt.Sprintf("valid (expires in %d days)", daysRemaining)
		case daysRemaining > 0:
			score += certSoonPoints
			details["certificate"] = fmt.Sprintf("expires soon (%d days)", daysRemaining)
			recommendations = append(recommendations, fmt.Sprintf("Renew the TLS certificate (expires in %d days)", daysRemaining))
		default:
			details["certificate"] = "EXPIRED"
			recommendations = append(recommendations, "URGENT: renew the TLS certificate immediately")
		}
	}

	// HSTS probe. Unreachable is not a finding, just unverifiable.
	if hsts, ok := a.fetchHSTS(ctx, domain); ok {
		if hsts != "" {
			score += hstsPoints
			details["hsts"] = fmt.Sprintf("enabled (%s)", hsts)
		} else {
			details["hsts"] = "disabled"
			recommendations = append(recommendations, "Enable HSTS to force HTTPS")
		}
	} else {
		details["hsts"] = "not verifiable"
	}

	return ModuleResult{
		ModuleName:      "SSL/TLS Security",
		Status:          StatusSuccess,
		Severity:        SeverityLow,
		Score:           score,
		Details:         details,
		Recommendations: recommendations,
	}
}

func (a *TLSAnalyzer) fetchHSTS(ctx context.Context, domain string) (string, bool) {
	url := fmt.Sprintf("https://%s", net.JoinHostPort(domain, a.Port))
	if a.Port == "443" {
		url = "https://" + domain
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; eon-audit/1.0)")
	resp, err := a.Client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	return resp.Header.Get("Strict-Transport-Security"), true
}

func tlsVersionName(v uint16) string {
	switch v {
	case tls.VersionTLS13:
		return "TLS 1.3"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS10:
		return "TLS 1.0"
	default:
		return fmt.Sprintf("unknown (0x%04x)", v)
	}
}
