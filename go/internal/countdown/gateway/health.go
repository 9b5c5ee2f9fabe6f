package gateway

import (
	"net/http"
)

// ConnectionStatus reports broker connectivity. *nats.Conn satisfies it.
type ConnectionStatus interface {
	IsConnected() bool
}

// HealthStatus is the /health response body
type HealthStatus struct {
	Status           string `json:"status"`
	NATSConfigured   bool   `json:"nats_configured"`
	NATSConnected    bool   `json:"nats_connected"`
	ActiveCountdowns int    `json:"active_countdowns"`
}

// HealthChecker reports service health
type HealthChecker struct {
	connectionManager *ConnectionManager
	broker            ConnectionStatus
}

// NewHealthChecker creates a health checker. broker may be nil when no
// NATS URL is configured.
func NewHealthChecker(cm *ConnectionManager, broker ConnectionStatus) *HealthChecker {
	return &HealthChecker{connectionManager: cm, broker: broker}
}

// Check computes the current health status
func (h *HealthChecker) Check() HealthStatus {
	status := HealthStatus{
		Status:           "ok",
		ActiveCountdowns: h.connectionManager.GetConnectionStats().TotalConnections,
	}
	if h.broker != nil {
		status.NATSConfigured = true
		status.NATSConnected = h.broker.IsConnected()
		if !status.NATSConnected {
			status.Status = "degraded"
		}
	}
	return status
}

// HandleHealth serves the health status. A disconnected broker is reported
// as degraded with 503.
func (h *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.Check()
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
