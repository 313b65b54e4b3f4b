package cmd

import (
	"github.com/fatih/color"

	"github.com/jackalstv/eon-security-audit/internal/analyzer"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func colorSeverity(sev analyzer.Severity) string {
	switch sev {
	case analyzer.SeverityCritical, analyzer.SeverityHigh:
		return colorError(string(sev))
	case analyzer.SeverityMedium:
		return colorWarn(string(sev))
	case analyzer.SeverityLow:
		return colorSuccess(string(sev))
	default:
		return string(sev)
	}
}

func colorScore(score int) string {
	switch {
	case score >= 80:
		return colorSuccess(score)
	case score >= 50:
		return colorWarn(score)
	default:
		return colorError(score)
	}
}
