package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/spf13/cobra"

	"github.com/jackalstv/eon-security-audit/internal/analyzer"
	"github.com/jackalstv/eon-security-audit/internal/scan"
	"github.com/jackalstv/eon-security-audit/internal/takeover"
)

const markdownReportTemplate = `# Security Audit Report: {{ .Domain }}

- Scan ID: {{ .ScanID }}
- Date: {{ formatTime .Timestamp }}
- Platform: {{ .Platform }}
- Overall score: **{{ .OverallScore }}/100**

{{ .Summary }}

## Modules
{{ range .Modules }}
### {{ .ModuleName }} ({{ .Score }}/100, {{ .Severity }})
{{ range .Recommendations }}- {{ . }}
{{ end }}{{ end }}
## Issue Counts

| Severity | Count |
| -------- | ----- |
| Critical | {{ .CriticalIssues }} |
| High     | {{ .HighIssues }} |
| Medium   | {{ .MediumIssues }} |
| Low      | {{ .LowIssues }} |
`

var markdownReport = template.Must(
	template.New("report.md").Funcs(template.FuncMap{
		"formatTime": func(t time.Time) string { return t.Format("2006-01-02 15:04 UTC") },
	}).Parse(markdownReportTemplate),
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a stored scan result as markdown or PDF",
	RunE: func(cmd *cobra.Command, args []string) error {
		inputPath, _ := cmd.Flags().GetString("input")
		outputPath, _ := cmd.Flags().GetString("output")
		format, _ := cmd.Flags().GetString("format")

		if inputPath == "" {
			return fmt.Errorf("--input is required (a result file from 'scan --output')")
		}
		format = strings.ToLower(format)
		if format != "md" && format != "pdf" {
			return fmt.Errorf("invalid format: %s (must be md or pdf)", format)
		}

		data, err := os.ReadFile(inputPath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", inputPath, err)
		}
		var result scan.Result
		if err := json.Unmarshal(data, &result); err != nil {
			return fmt.Errorf("failed to parse %s: %w", inputPath, err)
		}

		var content []byte
		switch format {
		case "md":
			content, err = renderMarkdownReport(&result)
		case "pdf":
			content, err = renderPDFReport(&result)
		}
		if err != nil {
			return err
		}

		if outputPath == "" {
			outputPath = fmt.Sprintf("%s-report.%s", result.Domain, format)
		}
		if err := os.WriteFile(outputPath, content, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
		fmt.Printf("%s Report written to %s\n", colorSuccess("✓"), outputPath)
		return nil
	},
}

func renderMarkdownReport(result *scan.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdownReport.Execute(&buf, result); err != nil {
		return nil, fmt.Errorf("failed to render markdown report: %w", err)
	}
	return buf.Bytes(), nil
}

func renderPDFReport(result *scan.Result) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Security Audit Report: %s", result.Domain), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Scan ID: %s", result.ScanID), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Date: %s", result.Timestamp.Format("2006-01-02 15:04 UTC")), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Platform: %s", result.Platform), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Overall score: %d/100", result.OverallScore), "", 1, "", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, result.Summary, "", "", false)
	pdf.CellFormat(0, 6, fmt.Sprintf("Critical: %d | High: %d | Medium: %d | Low: %d",
		result.CriticalIssues, result.HighIssues, result.MediumIssues, result.LowIssues), "", 1, "", false, 0, "")
	pdf.Ln(5)

	for _, m := range result.Modules {
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(0, 7, fmt.Sprintf("%s  (%d/100, %s)", m.ModuleName, m.Score, m.Severity), "", 1, "", true, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, rec := range m.Recommendations {
			pdf.MultiCell(0, 5, "- "+rec, "", "", false)
		}

		if m.ModuleName == takeover.ModuleName {
			vulnerable, atRisk := takeoverFindings(m)
			for _, f := range vulnerable {
				pdf.MultiCell(0, 5, fmt.Sprintf("  VULNERABLE %s -> %s (%s)", f.FQDN, f.CNAME, f.Service), "", "", false)
			}
			for _, f := range atRisk {
				pdf.MultiCell(0, 5, fmt.Sprintf("  at risk    %s -> %s (%s)", f.FQDN, f.CNAME, f.Service), "", "", false)
			}
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF report: %w", err)
	}
	return buf.Bytes(), nil
}

// takeoverFindings recovers the typed findings from the module's detail
// map, which arrives as generic JSON after a round trip through a result
// file.
func takeoverFindings(m analyzer.ModuleResult) (vulnerable, atRisk []takeover.Finding) {
	decode := func(key string) []takeover.Finding {
		raw, ok := m.Details[key]
		if !ok || raw == nil {
			return nil
		}
		data, err := json.Marshal(raw)
		if err != nil {
			return nil
		}
		var findings []takeover.Finding
		if err := json.Unmarshal(data, &findings); err != nil {
			return nil
		}
		return findings
	}
	return decode("vulnerable"), decode("at_risk")
}

func init() {
	reportCmd.Flags().StringP("input", "i", "", "Scan result JSON file")
	reportCmd.Flags().StringP("output", "O", "", "Output file (default <domain>-report.<format>)")
	reportCmd.Flags().StringP("format", "f", "md", "Report format: md or pdf")
	rootCmd.AddCommand(reportCmd)
}
