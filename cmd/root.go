// Package cmd contains command execution logic.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kalverra/tracker-client/config"
	"github.com/kalverra/tracker-client/tracker"
)

var (
	cfg    *config.Config
	logger zerolog.Logger
	client *tracker.Client
)

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Command line client for the issue tracker API",
	Long: `A CLI tool that reads and changes issues, transitions ` +
		`and priorities through the issue tracker REST API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(config.WithFlags(cmd.Flags()))
		if err != nil {
			return err
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		lvl, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			lvl = zerolog.InfoLevel
			cfg.LogLevel = "info"
		}
		zerolog.SetGlobalLevel(lvl)
		logger = zerolog.New(
			zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: time.RFC3339,
			},
		).Level(lvl).With().Timestamp().Logger()

		logger.Debug().
			Str("component", "cli").
			Str("host", cfg.Host).
			Str("schema", cfg.Schema).
			Str("api_version", cfg.Version).
			Str("org_id", cfg.OrgID).
			Int("retries", cfg.Retries).
			Str("retry_interval", cfg.RetryInterval.String()).
			Str("timeout", cfg.Timeout.String()).
			Str("output", cfg.Output).
			Msg("config")

		client, err = tracker.NewClient(cfg.SessionOptions(), logger)
		return err
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String(config.KeyConfig, "", "Path to a yaml, json or toml config file (env: TRACKER_CONFIG)")
	flags.String(config.KeyToken, "", "OAuth token (env: TRACKER_TOKEN)")
	flags.String(config.KeyOrgID, "", "Organization id (env: TRACKER_ORG_ID)")
	flags.String(config.KeyHost, config.DefaultHost, "API host (env: TRACKER_HOST)")
	flags.String(config.KeySchema, config.DefaultSchema, "URL scheme: http or https (env: TRACKER_SCHEMA)")
	flags.String(config.KeyVersion, config.DefaultVersion, "API version path segment (env: TRACKER_API_VERSION)")
	flags.StringToString(config.KeyHeaders, nil, "Extra headers sent with every request, e.g. X-Team=core")
	flags.String(config.KeyEncoding, config.DefaultEncoding, "Response text encoding (env: TRACKER_ENCODING)")
	flags.Int(config.KeyRetries, 0, "Retries for 429 and 5xx responses (env: TRACKER_RETRIES)")
	flags.Duration(
		config.KeyRetryInterval,
		config.DefaultRetryInterval,
		"Wait between retries (env: TRACKER_RETRY_INTERVAL)",
	)
	flags.Duration(config.KeyTimeout, config.DefaultTimeout, "Timeout of a single HTTP attempt (env: TRACKER_TIMEOUT)")
	flags.String(config.KeyLogLevel, config.DefaultLogLevel, "Log level: trace, debug, info, warn, error (env: TRACKER_LOG_LEVEL)")
	flags.StringP(config.KeyOutput, "o", config.DefaultOutput, "Output format: yaml or json (env: TRACKER_OUTPUT)")
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := fang.Execute(ctx, rootCmd)
	stop()
	if client != nil {
		_ = client.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}
