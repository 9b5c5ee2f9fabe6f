package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/countdown/go/internal/countdown"
	"github.com/mcdev12/countdown/go/internal/countdown/notify"
	"github.com/mcdev12/countdown/go/internal/shortcode"
)

// ConnectionManager manages WebSocket connections. Every connection is one
// display context and owns exactly one countdown engine.
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig

	notifier notify.Notifier
	metrics  *countdown.CounterMetrics
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	Engine  *countdown.Engine
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	// Connection metadata
	ConnectedAt time.Time
	LastPing    time.Time

	sendMu sync.Mutex
	closed bool

	targetMu sync.Mutex
	target   countdown.Target
}

func (c *Connection) setTarget(t countdown.Target) {
	c.targetMu.Lock()
	c.target = t
	c.targetMu.Unlock()
}

func (c *Connection) currentTarget() countdown.Target {
	c.targetMu.Lock()
	defer c.targetMu.Unlock()
	return c.target
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool

	// Engine settings
	TickInterval  time.Duration
	NotifyTimeout time.Duration
	Clock         clockwork.Clock
	Location      *time.Location
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024, // 1KB max message size
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  16,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
		TickInterval:  countdown.DefaultInterval,
		NotifyTimeout: 5 * time.Second,
		Clock:         clockwork.NewRealClock(),
		Location:      time.Local,
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, notifier notify.Notifier, metrics *countdown.CounterMetrics) *ConnectionManager {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 16
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier()
	}
	if metrics == nil {
		metrics = countdown.NewCounterMetrics()
	}

	return &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:   config,
		notifier: notifier,
		metrics:  metrics,
	}
}

// Start blocks until ctx is done, then tears down every connection
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	<-ctx.Done()
	log.Info().Msg("connection manager shutting down")
	cm.CloseAll()
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and starts a
// countdown engine for it. attrs and target must already be validated.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, attrs shortcode.Attributes, target countdown.Target) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	engine, err := cm.newEngine(connection, attrs, target)
	if err != nil {
		conn.Close()
		return err
	}
	connection.Engine = engine

	// Register the connection
	cm.registerConnection(connection)

	// Start connection handlers
	go connection.writePump()
	go connection.readPump()

	engine.Start()

	log.Info().
		Str("connection_id", connection.ID).
		Str("target", target.String()).
		Bool("show_seconds", attrs.ShowSeconds).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) newEngine(c *Connection, attrs shortcode.Attributes, target countdown.Target) (*countdown.Engine, error) {
	cfg := attrs.DisplayConfig()
	c.setTarget(target)

	cfg.OnComplete = func(final countdown.RemainingTime) error {
		ctx, cancel := context.WithTimeout(context.Background(), cm.config.NotifyTimeout)
		defer cancel()
		return cm.notifier.NotifyCompleted(ctx, notify.CountdownCompletedPayload{
			CountdownID: c.ID,
			Target:      c.currentTarget().Time(),
			CompletedAt: cm.config.Clock.Now(),
			StyleTag:    cfg.StyleTag,
		})
	}

	// Runs under the engine lock.
	subscriber := func(rt countdown.RemainingTime) {
		event, err := tickEvent(c.ID, rt, cfg, c.currentTarget(), cm.config.Clock.Now())
		if err != nil {
			log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to build tick event")
			return
		}
		c.sendEvent(event)
	}

	engine, err := countdown.New(target, cfg, subscriber,
		countdown.WithID(c.ID),
		countdown.WithClock(cm.config.Clock),
		countdown.WithInterval(cm.config.TickInterval),
		countdown.WithLocation(cm.config.Location),
		countdown.WithMetrics(cm.metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("create countdown engine: %w", err)
	}
	return engine, nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn.ID] = conn

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// unregisterConnection removes a connection and tears down its engine
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	_, exists := cm.connections[conn.ID]
	delete(cm.connections, conn.ID)
	cm.mu.Unlock()

	if !exists {
		return
	}

	// No tick is published once Stop returns, so Send can be closed after it
	conn.Engine.Stop()
	conn.closeSend()

	log.Info().
		Str("connection_id", conn.ID).
		Msg("connection unregistered")
}

// CloseAll tears down every connection
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	connections := make([]*Connection, 0, len(cm.connections))
	for _, conn := range cm.connections {
		connections = append(connections, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range connections {
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// ConnectionStats describes active connections
type ConnectionStats struct {
	TotalConnections int                       `json:"total_connections"`
	States           map[countdown.State]int   `json:"states"`
	Metrics          countdown.MetricsSnapshot `json:"metrics"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	states := make(map[countdown.State]int)
	for _, conn := range cm.connections {
		states[conn.Engine.State()]++
	}

	return ConnectionStats{
		TotalConnections: len(cm.connections),
		States:           states,
		Metrics:          cm.metrics.Snapshot(),
	}
}

// sendEvent queues an event without blocking. Ticks supersede each other,
// so a full buffer drops the event.
func (c *Connection) sendEvent(event *CountdownEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event")
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.Send <- data:
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Str("event_type", string(event.Type)).
			Msg("connection send buffer full, dropping event")
	}
}

func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage processes messages received from the client
func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID).Msg("ignoring malformed client message")
		return
	}

	switch msg.Type {
	case clientMessageReconfigure:
		c.reconfigure(msg.Date)
	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("type", msg.Type).
			Msg("ignoring unknown client message")
	}
}

func (c *Connection) reconfigure(date string) {
	target, err := countdown.ParseTarget(date, c.Manager.config.Location)
	if err == nil {
		c.setTarget(target)
		err = c.Engine.Reset(target)
	} else if resetErr := c.Engine.Reset(countdown.Target{}); errors.Is(resetErr, countdown.ErrEngineStopped) {
		err = resetErr
	}
	if err == nil {
		return
	}
	if errors.Is(err, countdown.ErrEngineStopped) {
		return
	}

	log.Warn().Err(err).Str("connection_id", c.ID).Str("date", date).Msg("countdown reconfigure rejected")
	event, buildErr := NewEvent(c.ID, EventTypeCountdownInvalid, CountdownInvalidPayload{
		Date:   date,
		Reason: err.Error(),
	}, c.Manager.config.Clock.Now())
	if buildErr != nil {
		log.Error().Err(buildErr).Msg("failed to build invalid event")
		return
	}
	c.sendEvent(event)
}
