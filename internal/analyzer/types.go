// Package analyzer contains the per-module security analyzers that make up
// a domain scan: DNS hygiene, TLS posture, HTTP security headers and
// platform detection. Each analyzer is independent and returns a scored
// ModuleResult; none of them ever returns an error from its public entry
// point; failures are folded into the result itself.
package analyzer

// Severity classifies how urgent a module's findings are.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Module statuses as exposed to API consumers.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
	StatusInfo    = "info"
)

// Platform identifies the hosting platform a domain appears to run on.
type Platform string

const (
	PlatformShopify     Platform = "shopify"
	PlatformWix         Platform = "wix"
	PlatformWordPress   Platform = "wordpress"
	PlatformSquarespace Platform = "squarespace"
	PlatformCustom      Platform = "custom"
	PlatformUnknown     Platform = "unknown"
)

// Platforms lists every platform value the detector can return.
func Platforms() []Platform {
	return []Platform{
		PlatformShopify,
		PlatformWix,
		PlatformWordPress,
		PlatformSquarespace,
		PlatformCustom,
		PlatformUnknown,
	}
}

// ModuleResult is the outcome of one analyzer for one domain.
type ModuleResult struct {
	ModuleName      string                 `json:"module_name"`
	Status          string                 `json:"status"`
	Severity        Severity               `json:"severity"`
	Score           int                    `json:"score"`
	Details         map[string]interface{} `json:"details"`
	Recommendations []string               `json:"recommendations"`
}

// scoreTier maps a 0-100 score to status/severity using the thresholds
// shared by the DNS and security-header analyzers.
func scoreTier(score int) (string, Severity) {
	switch {
	case score >= 80:
		return StatusSuccess, SeverityLow
	case score >= 50:
		return StatusWarning, SeverityMedium
	case score >= 30:
		return StatusWarning, SeverityHigh
	default:
		return StatusError, SeverityCritical
	}
}

// errorResult builds the module result used when an analyzer cannot run at
// all (network unreachable, resolver failure, ...).
func errorResult(module string, severity Severity, err error, recommendation string) ModuleResult {
	return ModuleResult{
		ModuleName:      module,
		Status:          StatusError,
		Severity:        severity,
		Score:           0,
		Details:         map[string]interface{}{"error": err.Error()},
		Recommendations: []string{recommendation},
	}
}
