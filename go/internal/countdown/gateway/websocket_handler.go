package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/countdown/go/internal/shortcode"
)

// WebSocketHandler handles WebSocket upgrade requests for countdown connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	renderer          *shortcode.Renderer
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, renderer *shortcode.Renderer) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		renderer:          renderer,
	}
}

// HandleCountdownConnection validates the countdown attributes and upgrades
// the request. A missing or malformed date is rejected before the upgrade.
func (h *WebSocketHandler) HandleCountdownConnection(w http.ResponseWriter, r *http.Request) {
	attrs := shortcode.FromValues(r.URL.Query())

	target, err := h.renderer.Validate(attrs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, attrs, target); err != nil {
		// The upgrader has already replied to the client
		log.Error().
			Err(err).
			Str("date", attrs.Date).
			Msg("failed to upgrade WebSocket connection")
		return
	}

	// Connection is now handled by the connection manager
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/countdown", h.HandleCountdownConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}
