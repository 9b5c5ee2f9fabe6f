package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Notifier announces countdown completions to the outside world
type Notifier interface {
	NotifyCompleted(ctx context.Context, payload CountdownCompletedPayload) error
}

// Publisher is the subset of *nats.Conn the notifier needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

// LogNotifier only logs completions. It is used when no NATS URL is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyCompleted(ctx context.Context, payload CountdownCompletedPayload) error {
	log.Info().
		Str("countdown_id", payload.CountdownID).
		Time("target", payload.Target).
		Time("completed_at", payload.CompletedAt).
		Msg("countdown completed")
	return nil
}

// NATSNotifier publishes completions to NATS
type NATSNotifier struct {
	publisher Publisher
	subject   string
	now       func() time.Time
}

// NewNATSNotifier publishes to <subject>.completed
func NewNATSNotifier(publisher Publisher, subject string) *NATSNotifier {
	return &NATSNotifier{
		publisher: publisher,
		subject:   subject,
		now:       time.Now,
	}
}

// Subject is the full subject completions are published on
func (n *NATSNotifier) Subject() string {
	return n.subject + ".completed"
}

func (n *NATSNotifier) NotifyCompleted(ctx context.Context, payload CountdownCompletedPayload) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("notify completed: %w", err)
	}

	envelope := Envelope{
		EventID:     uuid.New().String(),
		EventType:   EventTypeCountdownCompleted,
		CountdownID: payload.CountdownID,
		Timestamp:   n.now(),
		Payload:     payload,
	}

	messageBytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := n.publisher.Publish(n.Subject(), messageBytes); err != nil {
		return fmt.Errorf("publish to NATS: %w", err)
	}

	log.Debug().
		Str("subject", n.Subject()).
		Str("countdown_id", payload.CountdownID).
		Int("size", len(messageBytes)).
		Msg("published countdown completion")
	return nil
}

// ConnectConfig holds NATS connection settings
type ConnectConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConnectConfig returns default NATS connection configuration
func DefaultConnectConfig() ConnectConfig {
	return ConnectConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Connect opens a NATS connection with reconnect logging
func Connect(config ConnectConfig) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("countdown"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}
