package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	configName = ".walletscan"
	envPrefix  = "WALLETSCAN"
)

var cfgFile string
var verbose bool

// AppContext carries what every command needs once configuration is loaded.
type AppContext struct {
	Logger *zap.Logger
	Config *CLIConfig
}

type appContextKey struct{}

var globalAppContext *AppContext

var rootCmd = &cobra.Command{
	Use:   "walletscan",
	Short: "Heuristic scanner for wallet-drainer scripts on websites",
	Long: `walletscan fetches a website and its scripts and flags code patterns
commonly used by cryptocurrency wallet drainers. It is a quick triage
heuristic, not a security verdict.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError("Error:"), userMessage(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.walletscan.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable development logging")
	rootCmd.PersistentPreRunE = initApp

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
}

func initApp(cmd *cobra.Command, args []string) error {
	if err := initConfig(); err != nil {
		return err
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	applyConfigDefaults(cmd)
	storeAppContext(cmd, &AppContext{Logger: logger, Config: cliConfig})

	if viper.ConfigFileUsed() != "" {
		logger.Debug("config loaded", zap.String("file", viper.ConfigFileUsed()))
	}
	return nil
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing default config file is fine; an explicit one must load.
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}
		if cfgFile == "" && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// newLogger returns a development logger when verbose is set, otherwise a
// production logger that only reports warnings so CLI output stays readable.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return cfg.Build()
}

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if cmd != nil && cmd.Context() != nil {
		if appCtx, ok := cmd.Context().Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	if globalAppContext != nil {
		return globalAppContext
	}
	return &AppContext{Logger: zap.NewNop(), Config: cliConfig}
}
