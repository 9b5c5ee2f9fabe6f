package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcdev12/countdown/go/internal/config"
	"github.com/mcdev12/countdown/go/internal/countdown"
	"github.com/mcdev12/countdown/go/internal/countdown/notify"
	"github.com/mcdev12/countdown/go/internal/countdown/targetfile"
	"github.com/mcdev12/countdown/go/internal/countdown/tui"
	"github.com/mcdev12/countdown/go/internal/shortcode"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	Date        string
	ShowSeconds bool
	Class       string
	TargetFile  string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show a live countdown in the terminal",
		Long: `Show a live countdown in the terminal.

With --target-file the date is read from the file and the countdown is
reconfigured every time the file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), rootOpts.Config, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "target date, e.g. 2025-12-31T23:59:59Z")
	cmd.Flags().BoolVar(&opts.ShowSeconds, "show-seconds", true, "show the seconds field")
	cmd.Flags().StringVar(&opts.Class, "class", "", "style tag recorded with completion events")
	cmd.Flags().StringVar(&opts.TargetFile, "target-file", "", "file holding the target date, watched for changes")

	return cmd
}

func runWatch(ctx context.Context, cfg config.Config, opts *WatchOptions) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	date := opts.Date
	if date == "" && opts.TargetFile != "" {
		if date, err = targetfile.Read(opts.TargetFile); err != nil {
			return err
		}
	}
	if date == "" {
		return fmt.Errorf("--date or --target-file: %w", shortcode.ErrMissingDate)
	}

	target, err := countdown.ParseTarget(date, loc)
	if err != nil {
		return err
	}

	display := shortcode.Attributes{Date: date, ShowSeconds: opts.ShowSeconds, Class: opts.Class}.DisplayConfig()
	notifier := notify.NewLogNotifier()
	feed := tui.NewFeed()
	defer feed.Close()

	var engine *countdown.Engine
	display.OnComplete = func(countdown.RemainingTime) error {
		return notifier.NotifyCompleted(context.Background(), notify.CountdownCompletedPayload{
			CountdownID: engine.ID(),
			Target:      engine.Target().Time(),
			CompletedAt: time.Now(),
			StyleTag:    opts.Class,
		})
	}

	engine, err = countdown.New(target, display, feed.Publish,
		countdown.WithInterval(cfg.TickInterval),
		countdown.WithLocation(loc),
	)
	if err != nil {
		return err
	}
	defer engine.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(tui.New(engine, feed, cfg.CompleteText), tea.WithContext(ctx))

	if opts.TargetFile != "" {
		go func() {
			err := targetfile.Watch(ctx, opts.TargetFile, func(raw string) {
				err := engine.Reconfigure(raw)
				if err == nil || errors.Is(err, countdown.ErrEngineStopped) {
					return
				}
				program.Send(tui.InvalidMsg{Raw: raw, Err: err})
			})
			if err != nil {
				log.Error().Err(err).Str("path", opts.TargetFile).Msg("target file watcher stopped")
			}
		}()
	}

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run countdown view: %w", err)
	}
	return nil
}
