package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/hashicorp/go-multierror"
	uplinectx "github.com/owenthereal/upline/internal/context"
	"github.com/owenthereal/upline/internal/logging"
	"github.com/owenthereal/upline/internal/version"
	"github.com/owenthereal/upline/metrics"
	consts "github.com/owenthereal/upline/upline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	appName   = "upline"
	envPrefix = "UPLINE"
)

// Config holds the settings shared by all commands. Values come from flags,
// UPLINE_ environment variables and the config file, in that order.
type Config struct {
	Version       string `mapstructure:"version" yaml:"version,omitempty"`
	Name          string `mapstructure:"name" yaml:"name"`
	HistoryFile   string `mapstructure:"history-file" yaml:"history-file,omitempty"`
	HistorySize   int    `mapstructure:"history-size" yaml:"history-size"`
	Inputrc       string `mapstructure:"inputrc" yaml:"inputrc,omitempty"`
	ExpandHistory bool   `mapstructure:"expand-history" yaml:"expand-history"`
	Debug         bool   `mapstructure:"debug" yaml:"debug"`
	LogFile       string `mapstructure:"log-file" yaml:"log-file,omitempty"`
	SentryDSN     string `mapstructure:"sentry-dsn" yaml:"sentry-dsn,omitempty"`
	MetricsFile   string `mapstructure:"metrics-file" yaml:"metrics-file,omitempty"`

	Prompt        string `mapstructure:"prompt" yaml:"prompt,omitempty"`
	Words         string `mapstructure:"words" yaml:"words,omitempty"`
	Command       string `mapstructure:"command" yaml:"command,omitempty"`
	Transcript    string `mapstructure:"transcript" yaml:"transcript,omitempty"`
	TranscriptRaw bool   `mapstructure:"transcript-raw" yaml:"transcript-raw,omitempty"`
}

// ConfigFilePath returns the default config file location.
func ConfigFilePath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

func defaultLogFile() string {
	return filepath.Join(xdg.StateHome, appName, appName+".log")
}

// Root returns the upline command tree.
func Root() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "upline",
		Short: "Interrupt-safe line editing",
		Long: `Upline reads lines from the terminal with emacs-style editing, history and
completion. Ctrl-C discards the line being edited instead of killing the
program.`,
		Example: `  # Start an interactive echo loop with history and completion:
  upline repl

  # Add line editing to a program that reads stdin:
  upline wrap -- python3 -i

  # List the saved history:
  upline history list`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  setupRunE,
		PersistentPostRunE: teardownRunE,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", ConfigFilePath(), "Config file.")
	pf.String("name", appName, "Application name used for the default history file and messages.")
	pf.String("history-file", "", "History file (default ~/.NAME_history).")
	pf.Int("history-size", consts.DefaultHistoryMax, "Maximum number of history entries kept.")
	pf.String("inputrc", os.Getenv(consts.InitFileEnvVar), "Init file with key bindings.")
	pf.Bool("expand-history", true, "Expand history references such as !! and !prefix.")
	pf.Bool("debug", os.Getenv("DEBUG") != "", "Log at debug level.")
	pf.String("log-file", "", fmt.Sprintf("Log file (default %s when --debug is set).", defaultLogFile()))
	pf.String("sentry-dsn", "", "Report errors to Sentry.")
	pf.String("metrics-file", "", "Write Prometheus metrics to this file on exit.")

	rootCmd.AddCommand(replCmd())
	rootCmd.AddCommand(wrapCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

type configKey struct{}

func withConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(c *cobra.Command) (*Config, error) {
	if c.Context() != nil {
		if cfg, ok := c.Context().Value(configKey{}).(*Config); ok {
			return cfg, nil
		}
	}

	var cfg Config
	if err := unmarshalFlags(c, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setupRunE(c *cobra.Command, args []string) error {
	cfg, err := configFrom(c)
	if err != nil {
		return err
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	var opts []logging.Option
	if cfg.Debug {
		opts = append(opts, logging.Debug())
		if cfg.LogFile == "" {
			cfg.LogFile = defaultLogFile()
		}
	}
	if cfg.LogFile != "" {
		opts = append(opts, logging.File(cfg.LogFile))
	}
	opts = append(opts, logging.Sentry(cfg.SentryDSN))

	logger, err := logging.New(opts...)
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}
	logger = logger.With("cmd", c.Name())

	if res := version.CheckConfig(cfg.Version); !res.Compatible {
		logger.Warn("config file may not be compatible", "message", res.Message)
		fmt.Fprintf(c.ErrOrStderr(), "Warning: %s\n", res.Message)
	}

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = withConfig(ctx, cfg)
	ctx = uplinectx.WithLogger(ctx, logger)
	ctx = uplinectx.WithMetricsProvider(ctx, metrics.NewProvider(cfg.MetricsFile != "", strings.ReplaceAll(c.Name(), "-", "_")))
	if cfg.MetricsFile != "" {
		metrics.BuildInfo.WithLabelValues(version.String(), c.Name()).Set(1)
	}
	c.SetContext(ctx)

	logger.Debug("starting", "version", version.String(), "config", cfg.Version)

	return nil
}

func teardownRunE(c *cobra.Command, args []string) error {
	cfg, err := configFrom(c)
	if err != nil {
		return err
	}
	logger := uplinectx.Logger(c.Context())

	var result error
	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			result = multierror.Append(result, fmt.Errorf("error writing metrics: %w", err))
		}
	}
	if err := logger.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}

func validateConfig(cfg *Config) error {
	var result error

	if cfg.HistorySize < 0 {
		result = multierror.Append(result, fmt.Errorf("invalid --history-size %d", cfg.HistorySize))
	}
	if cfg.Name == "" && cfg.HistoryFile == "" {
		result = multierror.Append(result, fmt.Errorf("missing flag --name or --history-file"))
	}
	if cfg.Inputrc != "" {
		if _, err := os.Stat(cfg.Inputrc); err != nil {
			result = multierror.Append(result, fmt.Errorf("error reading init file: %w", err))
		}
	}

	return result
}

func unmarshalFlags(cmd *cobra.Command, opts any) error {
	v := viper.New()

	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		flagName := flag.Name
		if flagName != "config" && flagName != "help" {
			if err := v.BindPFlag(flagName, flag); err != nil {
				panic(fmt.Errorf("error binding flag '%s': %w", flagName, err).Error())
			}
		}
	})

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(envPrefix)

	cfgFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgFile); err == nil {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error loading config file %s: %w", cfgFile, err)
		}
	}

	return v.Unmarshal(opts)
}

func loggerFrom(c *cobra.Command) *slog.Logger {
	return uplinectx.Logger(c.Context()).Logger
}
