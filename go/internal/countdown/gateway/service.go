package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/countdown/go/internal/countdown"
	"github.com/mcdev12/countdown/go/internal/countdown/notify"
	"github.com/mcdev12/countdown/go/internal/countdown/render"
	"github.com/mcdev12/countdown/go/internal/shortcode"
)

// Service is the countdown gateway: WebSocket countdowns, widget markup,
// the stylesheet and health.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	widgetHandler     *WidgetHandler
	healthChecker     *HealthChecker
}

// Config holds configuration for the countdown gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	CompleteText     string
}

// DefaultConfig returns default configuration for the countdown gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		CompleteText:     render.DefaultCompleteText,
	}
}

// NewService creates a new countdown gateway service. notifier may be nil,
// in which case completions are only logged. broker may be nil when NATS
// is not configured.
func NewService(config Config, notifier notify.Notifier, broker ConnectionStatus) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig, notifier, countdown.NewCounterMetrics())

	widget := render.Widget{CompleteText: config.CompleteText}
	renderer := shortcode.NewRenderer(widget, config.ConnectionConfig.Location, connectionManager.config.Clock)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, renderer),
		widgetHandler:     NewWidgetHandler(renderer),
		healthChecker:     NewHealthChecker(connectionManager, broker),
	}
}

// Start runs the gateway until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting countdown gateway service")

	s.connectionManager.Start(ctx)

	log.Info().Msg("countdown gateway service shutting down")
	return s.Stop()
}

// Stop tears down every open countdown
func (s *Service) Stop() error {
	s.connectionManager.CloseAll()
	log.Info().Msg("countdown gateway service stopped")
	return nil
}

// RegisterRoutes registers the gateway HTTP routes, the stylesheet included
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.widgetHandler.RegisterRoutes(mux)
	render.RegisterStyles(mux)
	mux.HandleFunc("/health", s.healthChecker.HandleHealth)
	log.Info().Msg("countdown gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
