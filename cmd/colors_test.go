package cmd

import (
	"strconv"
	"testing"

	"github.com/fatih/color"

	"github.com/jackalstv/eon-security-audit/internal/analyzer"
)

func TestColorSeverity(t *testing.T) {
	// Disable ANSI output so assertions see the bare text.
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	cases := []struct {
		severity analyzer.Severity
		want     string
	}{
		{analyzer.SeverityCritical, "critical"},
		{analyzer.SeverityHigh, "high"},
		{analyzer.SeverityMedium, "medium"},
		{analyzer.SeverityLow, "low"},
		{analyzer.SeverityInfo, "info"},
	}
	for _, tc := range cases {
		if got := colorSeverity(tc.severity); got != tc.want {
			t.Errorf("colorSeverity(%s) = %q, want %q", tc.severity, got, tc.want)
		}
	}
}

func TestColorScore(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	for _, score := range []int{0, 49, 50, 79, 80, 100} {
		if got := colorScore(score); got != strconv.Itoa(score) {
			t.Errorf("colorScore(%d) = %q", score, got)
		}
	}
}

func TestFormatStatus(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	for _, status := range []string{analyzer.StatusSuccess, analyzer.StatusWarning, analyzer.StatusError, analyzer.StatusInfo} {
		if got := formatStatus(status); got != status {
			t.Errorf("formatStatus(%s) = %q, want bare status", status, got)
		}
	}
}
