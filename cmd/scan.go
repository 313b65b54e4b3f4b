package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackalstv/eon-security-audit/internal/analyzer"
	"github.com/jackalstv/eon-security-audit/internal/scan"
	"github.com/jackalstv/eon-security-audit/internal/takeover"
)

var scanCmd = &cobra.Command{
	Use:   "scan <domain>",
	Short: "Run a full security scan against one domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")
		outputPath, _ := cmd.Flags().GetString("output")
		skipTakeover, _ := cmd.Flags().GetBool("skip-takeover")
		dnsServer, _ := cmd.Flags().GetString("dns-server")

		timeout, _ := cmd.Flags().GetDuration("timeout")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		applyDurationDefault(cmd.Flags(), "timeout", "timeout", func(v time.Duration) { timeout = v })
		applyIntDefault(cmd.Flags(), "concurrency", "concurrency", func(v int) { concurrency = v })
		applyIntDefault(cmd.Flags(), "rate-limit", "rate_limit", func(v int) { rateLimit = v })

		runner := &scan.Runner{
			DNS:     &analyzer.DNSAnalyzer{Logger: logger},
			TLS:     &analyzer.TLSAnalyzer{Timeout: timeout, Logger: logger},
			Headers: &analyzer.HeadersAnalyzer{Timeout: timeout, Logger: logger},
			Takeover: &takeover.Detector{
				Resolver:    &takeover.DNSResolver{Timeout: timeout, Server: dnsServer},
				Fetcher:     takeover.NewHTTPFetcher(timeout),
				Concurrency: concurrency,
				RateLimit:   rateLimit,
				Logger:      logger,
			},
			SkipTakeover: skipTakeover,
			Logger:       logger,
		}

		result, err := runner.Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if outputPath != "" {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outputPath, err)
			}
			fmt.Printf("%s Result written to %s\n", colorInfo("→"), outputPath)
		}

		if jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		printScanResult(result)
		return nil
	},
}

func printScanResult(result *scan.Result) {
	fmt.Printf("\n%s Scan of %s (platform: %s)\n", colorInfo("→"), result.Domain, result.Platform)
	fmt.Printf("%s Overall score: %s/100\n\n", colorInfo("→"), colorScore(result.OverallScore))

	for _, m := range result.Modules {
		fmt.Printf("  [%s] %-22s score=%s severity=%s\n",
			formatStatus(m.Status), m.ModuleName, colorScore(m.Score), colorSeverity(m.Severity))
		for _, rec := range m.Recommendations {
			fmt.Printf("      - %s\n", rec)
		}
	}

	fmt.Printf("\n%s %s\n", colorInfo("→"), result.Summary)
	if result.CriticalIssues > 0 || result.HighIssues > 0 {
		fmt.Printf("%s critical=%d high=%d medium=%d low=%d\n",
			colorWarn("!"), result.CriticalIssues, result.HighIssues, result.MediumIssues, result.LowIssues)
	}
}

func formatStatus(status string) string {
	switch status {
	case analyzer.StatusSuccess:
		return colorSuccess(status)
	case analyzer.StatusError:
		return colorError(status)
	case analyzer.StatusWarning:
		return colorWarn(status)
	default:
		return status
	}
}

func init() {
	scanCmd.Flags().Bool("json", false, "Print the result as JSON")
	scanCmd.Flags().StringP("output", "O", "", "Write the result JSON to a file")
	scanCmd.Flags().Bool("skip-takeover", false, "Skip the subdomain takeover module")
	scanCmd.Flags().Duration("timeout", 5*time.Second, "Per-probe network timeout")
	scanCmd.Flags().Int("concurrency", 8, "Concurrent subdomain probes")
	scanCmd.Flags().Int("rate-limit", 0, "DNS queries per second (0 = unlimited)")
	scanCmd.Flags().String("dns-server", "", "DNS server for CNAME lookups (host:port, default from /etc/resolv.conf)")
	rootCmd.AddCommand(scanCmd)
}
