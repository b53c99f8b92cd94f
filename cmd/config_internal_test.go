package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/walletscan/internal/detection"
)

func TestApplyIntDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("timeout", 0, "")

	var applied int
	applyIntDefault(flags, "timeout", 15, func(v int) {
		applied = v
	})
	if applied != 15 {
		t.Fatalf("expected setter to receive 15, got %d", applied)
	}

	// When flag already set, setter should not run.
	if err := flags.Set("timeout", "7"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	applied = 0
	applyIntDefault(flags, "timeout", 20, func(v int) {
		applied = v
	})
	if applied != 0 {
		t.Fatalf("setter should not run when flag overridden, got %d", applied)
	}
}

func TestApplyBoolDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("progress", false, "")

	applied := false
	applyBoolDefault(flags, "progress", true, func(v bool) {
		applied = v
	})
	if !applied {
		t.Fatal("expected setter to run with true")
	}

	if err := flags.Set("progress", "false"); err != nil {
		t.Fatalf("failed to set bool flag: %v", err)
	}
	applied = true
	applyBoolDefault(flags, "progress", false, func(v bool) {
		applied = v
	})
	if !applied {
		t.Fatalf("setter should not change value when flag already set")
	}
}

func TestApplyStringSliceDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSlice("nameserver", nil, "")

	source := []string{"1.1.1.1:53"}
	var applied []string
	applyStringSliceDefault(flags, "nameserver", source, func(v []string) {
		applied = v
	})
	if len(applied) != 1 || applied[0] != "1.1.1.1:53" {
		t.Fatalf("unexpected applied value %v", applied)
	}
	applied[0] = "mutated"
	if source[0] != "1.1.1.1:53" {
		t.Fatal("setter must receive a copy")
	}
}

func TestSetStringFlagIfUnset(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("user-agent", "", "")

	setStringFlagIfUnset(flags, "user-agent", "config-agent")
	if got := flags.Lookup("user-agent").Value.String(); got != "config-agent" {
		t.Fatalf("expected config default, got %s", got)
	}

	if err := flags.Set("user-agent", "user-provided"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	setStringFlagIfUnset(flags, "user-agent", "new-default")
	if got := flags.Lookup("user-agent").Value.String(); got != "user-provided" {
		t.Fatalf("expected flag to remain user-provided, got %s", got)
	}
}

func TestNewCLIConfigDefaults(t *testing.T) {
	cfg := newCLIConfig()
	if cfg.Scan.TimeoutSecs != 5 {
		t.Fatalf("unexpected timeout default: %d", cfg.Scan.TimeoutSecs)
	}
	if cfg.Scan.Concurrency != 10 {
		t.Fatalf("unexpected concurrency default: %d", cfg.Scan.Concurrency)
	}
	if cfg.Scan.SuspiciousThreshold != 5 || cfg.Scan.ScamThreshold != 10 {
		t.Fatalf("unexpected thresholds: %d/%d", cfg.Scan.SuspiciousThreshold, cfg.Scan.ScamThreshold)
	}
	if cfg.Serve.Addr != defaultServeAddr || cfg.Serve.ShutdownTimeout != 30*time.Second {
		t.Fatalf("unexpected serve defaults: %+v", cfg.Serve)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("scan.timeout_secs", 30)
	viper.Set("scan.progress", true)
	viper.Set("scan.patterns", []string{"drain"})
	viper.Set("serve.addr", "0.0.0.0:9000")

	overrides := loadConfigOverrides()

	if overrides.TimeoutSecs == nil || *overrides.TimeoutSecs != 30 {
		t.Fatalf("expected timeout override 30, got %+v", overrides.TimeoutSecs)
	}
	if overrides.Progress == nil || !*overrides.Progress {
		t.Fatalf("expected progress override, got %+v", overrides.Progress)
	}
	if len(overrides.Patterns) != 1 || overrides.Patterns[0] != "drain" {
		t.Fatalf("unexpected patterns override %v", overrides.Patterns)
	}
	if overrides.ServeAddr != "0.0.0.0:9000" {
		t.Fatalf("unexpected addr override %q", overrides.ServeAddr)
	}
	if overrides.Concurrency != nil || overrides.ScamThreshold != nil {
		t.Fatal("unset keys must stay nil")
	}
}

func TestLoadConfigOverridesFromEnv(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("WALLETSCAN_SCAN_CONCURRENCY", "3")

	if err := initConfig(); err != nil {
		t.Fatalf("initConfig: %v", err)
	}
	overrides := loadConfigOverrides()
	if overrides.Concurrency == nil || *overrides.Concurrency != 3 {
		t.Fatalf("expected concurrency 3 from env, got %+v", overrides.Concurrency)
	}
}

func resetFlag(flags *pflag.FlagSet, name string) {
	if flag := flags.Lookup(name); flag != nil {
		flag.Changed = false
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	t.Cleanup(func() {
		viper.Reset()
		*cliConfig = *newCLIConfig()
	})
	*cliConfig = *newCLIConfig()

	viper.Set("scan.timeout_secs", 20)
	viper.Set("scan.concurrency", 4)
	viper.Set("scan.scam_threshold", 15)
	viper.Set("scan.user_agent", "cfg-agent")
	viper.Set("serve.rate_limit", 50)
	viper.Set("serve.job_timeout_secs", 45)

	resetFlag(scanCmd.Flags(), "timeout")
	resetFlag(scanCmd.Flags(), "user-agent")
	resetFlag(serveCmd.Flags(), "rate-limit")
	resetFlag(serveCmd.Flags(), "job-timeout")
	// Simulate an explicit --concurrency on the command line.
	scanCmd.Flags().Lookup("concurrency").Changed = true
	t.Cleanup(func() { resetFlag(scanCmd.Flags(), "concurrency") })

	applyConfigDefaults(&cobra.Command{Use: "root"})

	if cliConfig.Scan.TimeoutSecs != 20 {
		t.Fatalf("expected timeout 20, got %d", cliConfig.Scan.TimeoutSecs)
	}
	if cliConfig.Scan.Concurrency != 10 {
		t.Fatalf("explicit flag must win over config, got %d", cliConfig.Scan.Concurrency)
	}
	if cliConfig.Scan.ScamThreshold != 15 {
		t.Fatalf("expected scam threshold 15, got %d", cliConfig.Scan.ScamThreshold)
	}
	if got := scanCmd.Flags().Lookup("user-agent").Value.String(); got != "cfg-agent" {
		t.Fatalf("expected user-agent flag set from config, got %s", got)
	}
	if cliConfig.Serve.RateLimit != 50 {
		t.Fatalf("expected serve rate limit 50, got %d", cliConfig.Serve.RateLimit)
	}
	if cliConfig.Serve.JobTimeoutSecs != 45 {
		t.Fatalf("expected job timeout 45, got %d", cliConfig.Serve.JobTimeoutSecs)
	}
}

func TestScanSettingsDefaultsPatterns(t *testing.T) {
	settings := newCLIConfig().Scan.settings(nil)
	if len(settings.Patterns) != len(detection.DefaultPatterns) {
		t.Fatalf("expected default patterns, got %v", settings.Patterns)
	}
	if settings.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout %s", settings.Timeout)
	}
}
