package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/buildinfo"
	"github.com/cleared-dev/recon/internal/config"
)

// globalOptions are shared by every subcommand and filled in before RunE.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "recon",
		Short:   "Reconcile med-spa loyalty exports against POS transactions",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := setupLogging(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat); err != nil {
				return err
			}
			return opts.loadConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ./"+config.FileName+" if present)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "console", "log format (console, json)")

	rootCmd.AddCommand(
		newInitCommand(),
		newInspectCommand(opts),
		newPairsCommand(opts),
		newReconcileCommand(opts),
		newHistoryCommand(),
	)

	return rootCmd
}

func (o *globalOptions) loadConfig() error {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.LoadOptional(config.FileName)
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	o.cfg = cfg
	slog.Debug("config loaded", "path", o.configPath, "workers", cfg.Pipeline.Workers,
		"auto_accept", cfg.Thresholds.AutoAccept, "review", cfg.Thresholds.Review)
	return nil
}

func setupLogging(w io.Writer, level, format string) error {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	handlerOpts := &slog.HandlerOptions{Level: slogLevel}
	var handler slog.Handler
	switch format {
	case "console":
		handler = slog.NewTextHandler(w, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
