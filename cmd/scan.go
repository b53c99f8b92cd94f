package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/walletscan/internal/application"
	scanapp "github.com/khanhnv2901/walletscan/internal/application/scan"
	model "github.com/khanhnv2901/walletscan/internal/domain/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan [target...]",
	Short: "Scan websites for wallet-drainer script patterns",
	Long: `Fetch each target's HTML and scripts and report suspicious patterns.

Targets may be URLs (https://example.com/path) or bare domains (example.com);
bare domains are scanned over https. A target that fails DNS or the HEAD
probe is reported as inactive and not fetched.`,
	Example: `  walletscan scan example.com
  walletscan scan --json https://example.com other.example
  walletscan scan --targets-file sites.txt --batch-concurrency 8`,
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringVar(&cliConfig.Scan.TargetsFile, "targets-file", "", "File with one target per line (# starts a comment)")
	f.BoolVar(&cliConfig.Scan.JSON, "json", false, "Print results as JSON")
	f.IntVar(&cliConfig.Scan.TimeoutSecs, "timeout", cliConfig.Scan.TimeoutSecs, "Per-request timeout in seconds")
	f.IntVar(&cliConfig.Scan.Concurrency, "concurrency", cliConfig.Scan.Concurrency, "Concurrent script downloads per target")
	f.IntVar(&cliConfig.Scan.BatchConcurrency, "batch-concurrency", cliConfig.Scan.BatchConcurrency, "Targets scanned concurrently")
	f.IntVar(&cliConfig.Scan.RateLimit, "rate-limit", cliConfig.Scan.RateLimit, "Script requests per second (0 = unlimited)")
	f.StringSliceVar(&cliConfig.Scan.Nameservers, "nameserver", cliConfig.Scan.Nameservers, "Custom DNS server (host:port)")
	f.StringVar(&cliConfig.Scan.UserAgent, "user-agent", cliConfig.Scan.UserAgent, "User-Agent header for outbound requests")
	f.StringSliceVar(&cliConfig.Scan.Patterns, "patterns", nil, "Replace the suspicious pattern list")
	f.BoolVar(&cliConfig.Scan.ProgressEnabled, "progress", false, "Show download progress on stderr")
}

func runScan(cmd *cobra.Command, args []string) error {
	appCtx := getAppContext(cmd)
	cfg := appCtx.Config.Scan

	targets, err := collectTargets(args, cfg.TargetsFile)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errors.New("at least one target is required (argument or --targets-file)")
	}

	services, err := application.NewContainer(cfg.settings(appCtx.Logger))
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if len(targets) == 1 {
		result, err := scanSingle(ctx, cmd.ErrOrStderr(), services.Pipeline, targets[0], cfg.ProgressEnabled)
		if err != nil {
			return err
		}
		if cfg.JSON {
			return writeJSONOutput(out, result)
		}
		printResult(out, result)
		return nil
	}

	outcomes := scanBatch(ctx, cmd.ErrOrStderr(), services, targets, cfg.ProgressEnabled)
	appCtx.Logger.Debug("batch complete", zap.Int("targets", len(targets)))

	if cfg.JSON {
		if err := writeJSONOutput(out, outcomes); err != nil {
			return err
		}
	} else {
		printOutcomes(out, outcomes)
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return &BatchError{Failed: failed, Total: len(outcomes)}
	}
	return nil
}

func scanSingle(ctx context.Context, progressOut io.Writer, pipeline *scanapp.Pipeline, target string, showProgress bool) (*model.Result, error) {
	if !showProgress {
		return pipeline.Run(ctx, target)
	}

	printer := newProgressPrinter(progressOut, 0, "scripts")
	printer.Start()
	defer printer.Stop()

	return pipeline.RunWithHooks(ctx, target, scanapp.Hooks{
		OnScripts: func(inline, external int) {
			printer.SetTotal(external)
		},
		OnScript: func(ref model.ScriptReference, ok bool) {
			printer.Increment(ok, 0)
		},
	})
}

func scanBatch(ctx context.Context, progressOut io.Writer, services *application.Container, targets []string, showProgress bool) []scanapp.Outcome {
	var audit scanapp.AuditFunc
	if showProgress {
		printer := newProgressPrinter(progressOut, len(targets), "targets")
		printer.Start()
		defer printer.Stop()
		audit = func(o scanapp.Outcome) {
			printer.Increment(o.Err == nil, o.Duration)
		}
	}
	return services.Runner.Run(ctx, targets, services.Pipeline, audit)
}

// collectTargets merges positional targets with those from path, skipping
// blank lines and comments.
func collectTargets(args []string, path string) ([]string, error) {
	targets := make([]string, 0, len(args))
	for _, arg := range args {
		if arg = strings.TrimSpace(arg); arg != "" {
			targets = append(targets, arg)
		}
	}
	if path == "" {
		return targets, nil
	}

	f, err := os.Open(path) // #nosec G304 -- operator-supplied input file.
	if err != nil {
		return nil, fmt.Errorf("failed to open targets file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}
	return targets, nil
}

func writeJSONOutput(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

func printResult(w io.Writer, result *model.Result) {
	fmt.Fprintf(w, "%s %s\n", colorInfo("Target:"), result.Target)
	fmt.Fprintf(w, "%s %s (%d%% scam likelihood)\n",
		formatTierWithColor(result.Tier),
		formatLabelWithColor(result.Tier, result.Label),
		result.Percentage,
	)
	fmt.Fprintln(w, result.Summary)
	fmt.Fprintf(w, "Scripts: %d inline, %d external (%d fetched, %d failed)\n",
		result.InlineScripts, result.ExternalScripts, result.FetchedScripts, result.FailedScripts)

	if rows := result.Rows(); len(rows) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			strings.ToUpper(model.RowHeader[0]), strings.ToUpper(model.RowHeader[1]), strings.ToUpper(model.RowHeader[2]))
		for _, row := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", row[0], row[1], row[2])
		}
		_ = tw.Flush()
	}

	if len(result.Reasons) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Reasons:")
		for _, reason := range result.Reasons {
			fmt.Fprintf(w, "  - %s\n", reason)
		}
	}
}

func printOutcomes(w io.Writer, outcomes []scanapp.Outcome) {
	for i, o := range outcomes {
		if i > 0 {
			fmt.Fprintln(w, strings.Repeat("-", 60))
		}
		if o.Err != nil {
			fmt.Fprintf(w, "%s %s\n", colorInfo("Target:"), o.Target)
			fmt.Fprintf(w, "%s %s\n", colorError("Error:"), userMessage(o.Err))
			continue
		}
		printResult(w, o.Result)
	}
}
