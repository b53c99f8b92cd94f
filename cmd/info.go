package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/walletscan/internal/detection"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration sources and effective scan settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		scan := appCtx.Config.Scan
		out := cmd.OutOrStdout()

		configFile := viper.ConfigFileUsed()
		configState := "✓ (loaded)"
		if configFile == "" {
			configState = "✗ (using defaults)"
			if home, err := os.UserHomeDir(); err == nil {
				configFile = filepath.Join(home, configName+".yaml")
			}
		}

		patterns := scan.Patterns
		if len(patterns) == 0 {
			patterns = detection.DefaultPatterns
		}
		nameservers := "system resolver"
		if len(scan.Nameservers) > 0 {
			nameservers = strings.Join(scan.Nameservers, ", ")
		}

		fmt.Fprintln(out, "walletscan System Information")
		fmt.Fprintln(out, "=============================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Platform:             %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Configuration File:   %s %s\n", configFile, configState)
		fmt.Fprintf(out, "Environment Prefix:   %s_ (e.g. %s_SCAN_TIMEOUT_SECS)\n", envPrefix, envPrefix)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Scan Settings:")
		fmt.Fprintf(out, "  Request Timeout:      %ds\n", scan.TimeoutSecs)
		fmt.Fprintf(out, "  Script Concurrency:   %d\n", scan.Concurrency)
		fmt.Fprintf(out, "  Batch Concurrency:    %d\n", scan.BatchConcurrency)
		fmt.Fprintf(out, "  Rate Limit:           %d/s (0 = unlimited)\n", scan.RateLimit)
		fmt.Fprintf(out, "  User-Agent:           %s\n", scan.UserAgent)
		fmt.Fprintf(out, "  Nameservers:          %s\n", nameservers)
		fmt.Fprintf(out, "  Thresholds:           suspicious >= %d, scam >= %d\n", scan.SuspiciousThreshold, scan.ScamThreshold)
		fmt.Fprintf(out, "  Patterns:             %d\n", len(patterns))

		return nil
	},
}
