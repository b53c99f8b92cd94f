package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/khanhnv2901/walletscan/internal/application"
	"github.com/khanhnv2901/walletscan/internal/detection"
	consts "github.com/khanhnv2901/walletscan/internal/shared/constants"
)

const (
	defaultTimeoutSeconds     = int(consts.DefaultRequestTimeout / time.Second)
	defaultBatchConcurrency   = 4
	defaultServeAddr          = "127.0.0.1:8080"
	defaultServeRateLimit     = 10
	defaultServeRateBurst     = 20
	defaultJobTimeoutSeconds  = 90
	defaultShutdownTimeoutSec = 30
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Scan  ScanRuntimeConfig
	Serve ServeConfig
}

// ScanRuntimeConfig consolidates flag-driven settings for scans.
type ScanRuntimeConfig struct {
	TimeoutSecs         int
	Concurrency         int // Concurrent script downloads per target
	RateLimit           int // Script requests per second (0 = unlimited)
	BatchConcurrency    int // Concurrent targets
	UserAgent           string
	Nameservers         []string
	Patterns            []string
	SuspiciousThreshold int
	ScamThreshold       int
	ProgressEnabled     bool
	JSON                bool
	TargetsFile         string
}

// ServeConfig holds the API server settings.
type ServeConfig struct {
	Addr            string
	AuthToken       string
	CORSOrigins     []string
	RateLimit       int
	RateBurst       int
	JobTimeoutSecs  int
	ShutdownTimeout time.Duration
}

type configOverrides struct {
	TimeoutSecs         *int
	Concurrency         *int
	RateLimit           *int
	BatchConcurrency    *int
	UserAgent           string
	Nameservers         []string
	Patterns            []string
	SuspiciousThreshold *int
	ScamThreshold       *int
	Progress            *bool

	ServeAddr       string
	ServeAuthToken  string
	ServeRateLimit  *int
	ServeRateBurst  *int
	ServeJobTimeout *int
	ServeCORS       []string
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Scan: ScanRuntimeConfig{
			TimeoutSecs:         defaultTimeoutSeconds,
			Concurrency:         consts.DefaultScriptConcurrency,
			RateLimit:           0,
			BatchConcurrency:    defaultBatchConcurrency,
			UserAgent:           consts.DefaultUserAgent,
			Nameservers:         []string{},
			SuspiciousThreshold: consts.DefaultSuspiciousThreshold,
			ScamThreshold:       consts.DefaultScamThreshold,
		},
		Serve: ServeConfig{
			Addr:            defaultServeAddr,
			RateLimit:       defaultServeRateLimit,
			RateBurst:       defaultServeRateBurst,
			JobTimeoutSecs:  defaultJobTimeoutSeconds,
			ShutdownTimeout: defaultShutdownTimeoutSec * time.Second,
		},
	}
}

func optionalInt(key string) *int {
	if !viper.IsSet(key) {
		return nil
	}
	val := viper.GetInt(key)
	return &val
}

func loadConfigOverrides() configOverrides {
	overrides := configOverrides{
		TimeoutSecs:         optionalInt("scan.timeout_secs"),
		Concurrency:         optionalInt("scan.concurrency"),
		RateLimit:           optionalInt("scan.rate_limit"),
		BatchConcurrency:    optionalInt("scan.batch_concurrency"),
		SuspiciousThreshold: optionalInt("scan.suspicious_threshold"),
		ScamThreshold:       optionalInt("scan.scam_threshold"),
		ServeRateLimit:      optionalInt("serve.rate_limit"),
		ServeRateBurst:      optionalInt("serve.rate_burst"),
		ServeJobTimeout:     optionalInt("serve.job_timeout_secs"),
	}

	if viper.IsSet("scan.progress") {
		val := viper.GetBool("scan.progress")
		overrides.Progress = &val
	}
	if viper.IsSet("scan.user_agent") {
		overrides.UserAgent = viper.GetString("scan.user_agent")
	}
	if viper.IsSet("scan.nameservers") {
		overrides.Nameservers = viper.GetStringSlice("scan.nameservers")
	}
	if viper.IsSet("scan.patterns") {
		overrides.Patterns = viper.GetStringSlice("scan.patterns")
	}
	if viper.IsSet("serve.addr") {
		overrides.ServeAddr = viper.GetString("serve.addr")
	}
	if viper.IsSet("serve.auth_token") {
		overrides.ServeAuthToken = viper.GetString("serve.auth_token")
	}
	if viper.IsSet("serve.cors_origins") {
		overrides.ServeCORS = viper.GetStringSlice("serve.cors_origins")
	}

	return overrides
}

// applyConfigDefaults merges config file and environment values into the
// runtime config when the user did not explicitly set the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	overrides := loadConfigOverrides()
	scanFlags := scanCmd.Flags()
	serveFlags := serveCmd.Flags()

	if overrides.TimeoutSecs != nil {
		applyIntDefault(scanFlags, "timeout", *overrides.TimeoutSecs, func(v int) { cliConfig.Scan.TimeoutSecs = v })
	}
	if overrides.Concurrency != nil {
		applyIntDefault(scanFlags, "concurrency", *overrides.Concurrency, func(v int) { cliConfig.Scan.Concurrency = v })
	}
	if overrides.RateLimit != nil {
		applyIntDefault(scanFlags, "rate-limit", *overrides.RateLimit, func(v int) { cliConfig.Scan.RateLimit = v })
	}
	if overrides.BatchConcurrency != nil {
		applyIntDefault(scanFlags, "batch-concurrency", *overrides.BatchConcurrency, func(v int) { cliConfig.Scan.BatchConcurrency = v })
	}
	if overrides.UserAgent != "" {
		setStringFlagIfUnset(scanFlags, "user-agent", overrides.UserAgent)
	}
	if len(overrides.Nameservers) > 0 {
		applyStringSliceDefault(scanFlags, "nameserver", overrides.Nameservers, func(v []string) { cliConfig.Scan.Nameservers = v })
	}
	if len(overrides.Patterns) > 0 {
		applyStringSliceDefault(scanFlags, "patterns", overrides.Patterns, func(v []string) { cliConfig.Scan.Patterns = v })
	}
	if overrides.Progress != nil {
		applyBoolDefault(scanFlags, "progress", *overrides.Progress, func(v bool) { cliConfig.Scan.ProgressEnabled = v })
	}
	// Thresholds have no flags.
	if overrides.SuspiciousThreshold != nil {
		cliConfig.Scan.SuspiciousThreshold = *overrides.SuspiciousThreshold
	}
	if overrides.ScamThreshold != nil {
		cliConfig.Scan.ScamThreshold = *overrides.ScamThreshold
	}

	if overrides.ServeAddr != "" {
		setStringFlagIfUnset(serveFlags, "addr", overrides.ServeAddr)
	}
	if overrides.ServeAuthToken != "" {
		setStringFlagIfUnset(serveFlags, "auth-token", overrides.ServeAuthToken)
	}
	if overrides.ServeRateLimit != nil {
		applyIntDefault(serveFlags, "rate-limit", *overrides.ServeRateLimit, func(v int) { cliConfig.Serve.RateLimit = v })
	}
	if overrides.ServeRateBurst != nil {
		applyIntDefault(serveFlags, "rate-burst", *overrides.ServeRateBurst, func(v int) { cliConfig.Serve.RateBurst = v })
	}
	if overrides.ServeJobTimeout != nil {
		applyIntDefault(serveFlags, "job-timeout", *overrides.ServeJobTimeout, func(v int) { cliConfig.Serve.JobTimeoutSecs = v })
	}
	if len(overrides.ServeCORS) > 0 {
		applyStringSliceDefault(serveFlags, "cors-origins", overrides.ServeCORS, func(v []string) { cliConfig.Serve.CORSOrigins = v })
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringSliceDefault(flags *pflag.FlagSet, name string, value []string, setter func([]string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(append([]string(nil), value...))
}

func setStringFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}

// settings converts the scan config into container settings.
func (c ScanRuntimeConfig) settings(logger *zap.Logger) application.Settings {
	patterns := c.Patterns
	if len(patterns) == 0 {
		patterns = detection.DefaultPatterns
	}
	return application.Settings{
		Timeout:             time.Duration(c.TimeoutSecs) * time.Second,
		UserAgent:           c.UserAgent,
		Nameservers:         c.Nameservers,
		Concurrency:         c.Concurrency,
		RateLimit:           c.RateLimit,
		Patterns:            patterns,
		SuspiciousThreshold: c.SuspiciousThreshold,
		ScamThreshold:       c.ScamThreshold,
		BatchConcurrency:    c.BatchConcurrency,
		Logger:              logger,
	}
}
