package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcdev12/countdown/go/internal/config"
	"github.com/mcdev12/countdown/go/internal/countdown/gateway"
	"github.com/mcdev12/countdown/go/internal/countdown/notify"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the countdown gateway",
		Long: `Serve live countdowns over WebSocket (/ws/countdown), widget markup
(/countdown, /countdown/expand, /countdown/block), the widget stylesheet and
/health. Completions are published to NATS when NATS_URL is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts.Config)
		},
	}
}

func gatewayConfig(cfg config.Config) (gateway.Config, error) {
	loc, err := cfg.Location()
	if err != nil {
		return gateway.Config{}, err
	}

	gc := gateway.DefaultConfig()
	gc.ConnectionConfig.TickInterval = cfg.TickInterval
	gc.ConnectionConfig.Location = loc
	gc.CompleteText = cfg.CompleteText
	return gc, nil
}

func runServe(ctx context.Context, cfg config.Config) error {
	gc, err := gatewayConfig(cfg)
	if err != nil {
		return err
	}

	var (
		notifier notify.Notifier = notify.NewLogNotifier()
		broker   gateway.ConnectionStatus
	)
	if cfg.NATSURL != "" {
		natsConfig := notify.DefaultConnectConfig()
		natsConfig.URL = cfg.NATSURL
		nc, err := notify.Connect(natsConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Close()

		notifier = notify.NewNATSNotifier(nc, cfg.NATSSubject)
		broker = nc
	}

	log.Info().
		Str("port", cfg.Port).
		Str("nats_url", cfg.NATSURL).
		Dur("tick_interval", cfg.TickInterval).
		Str("timezone", gc.ConnectionConfig.Location.String()).
		Msg("starting countdown gateway")

	service := gateway.NewService(gc, notifier, broker)
	server := setupServer(cfg, service)

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		if err := service.Start(serviceCtx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			cancel()
			<-serviceDone
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Hijacked WebSocket connections are closed by the service
	cancel()
	<-serviceDone

	log.Info().Msg("countdown gateway shutdown complete")
	return nil
}
