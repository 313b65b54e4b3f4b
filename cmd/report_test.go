package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jackalstv/eon-security-audit/internal/analyzer"
	"github.com/jackalstv/eon-security-audit/internal/scan"
	"github.com/jackalstv/eon-security-audit/internal/takeover"
)

func sampleResult() *scan.Result {
	return &scan.Result{
		ScanID:       "scan-42",
		Domain:       "example.com",
		Platform:     analyzer.PlatformShopify,
		Timestamp:    time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		OverallScore: 65,
		Summary:      "Scan of example.com: 65/100 - 1 module(s) with critical findings, fix them first",
		Modules: []analyzer.ModuleResult{
			{
				ModuleName:      "DNS Security",
				Status:          analyzer.StatusWarning,
				Severity:        analyzer.SeverityMedium,
				Score:           55,
				Recommendations: []string{"Publish a DMARC policy"},
			},
			{
				ModuleName: takeover.ModuleName,
				Status:     analyzer.StatusError,
				Severity:   analyzer.SeverityCritical,
				Score:      60,
				Details: map[string]interface{}{
					"vulnerable": []takeover.Finding{
						{FQDN: "blog.example.com", CNAME: "gone.herokuapp.com", Service: "Heroku", Classification: takeover.ClassVulnerableOrphan},
					},
					"at_risk": []takeover.Finding{},
				},
				Recommendations: []string{"Remove the dangling blog CNAME"},
			},
		},
		CriticalIssues: 1,
		MediumIssues:   1,
	}
}

func TestRenderMarkdownReport(t *testing.T) {
	content, err := renderMarkdownReport(sampleResult())
	if err != nil {
		t.Fatalf("renderMarkdownReport: %v", err)
	}

	md := string(content)
	for _, want := range []string{
		"# Security Audit Report: example.com",
		"Scan ID: scan-42",
		"**65/100**",
		"### DNS Security (55/100, medium)",
		"- Publish a DMARC policy",
		"| Critical | 1 |",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown report missing %q:\n%s", want, md)
		}
	}
}

func TestRenderPDFReport(t *testing.T) {
	content, err := renderPDFReport(sampleResult())
	if err != nil {
		t.Fatalf("renderPDFReport: %v", err)
	}
	if !bytes.HasPrefix(content, []byte("%PDF")) {
		t.Fatalf("expected a PDF document, got %q", content[:min(len(content), 8)])
	}
}

func TestTakeoverFindingsAfterJSONRoundTrip(t *testing.T) {
	// Reading a result file yields generic JSON values in Details, not
	// the typed findings.
	data, err := json.Marshal(sampleResult())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var result scan.Result
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	vulnerable, atRisk := takeoverFindings(result.Modules[1])
	if len(vulnerable) != 1 || len(atRisk) != 0 {
		t.Fatalf("expected 1 vulnerable and 0 at risk, got %d/%d", len(vulnerable), len(atRisk))
	}
	if vulnerable[0].FQDN != "blog.example.com" || vulnerable[0].Service != "Heroku" {
		t.Fatalf("unexpected finding: %+v", vulnerable[0])
	}
}
