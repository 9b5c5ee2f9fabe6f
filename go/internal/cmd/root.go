package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mcdev12/countdown/go/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	// Config is loaded before any subcommand runs.
	Config config.Config
}

// NewRootCommand creates the root command for the countdown CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "countdown",
		Short: "Countdown timers for web pages and terminals",
		Long: `Countdown renders live countdowns to a target date.

serve runs the WebSocket and widget gateway, watch shows a countdown in the
terminal, and render expands [react_countdown] shortcodes into markup.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			if opts.LogLevel != "" {
				cfg.LogLevel = opts.LogLevel
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			opts.Config = cfg
			zerolog.SetGlobalLevel(cfg.Level())
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file overlaying the environment")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))

	return cmd
}
