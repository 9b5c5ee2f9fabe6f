package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

func TestNATSNotifier_PublishesEnvelope(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNATSNotifier(pub, "countdown.events")
	stamp := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return stamp }

	payload := CountdownCompletedPayload{
		CountdownID: "launch",
		Target:      stamp.Add(-time.Second),
		CompletedAt: stamp,
		StyleTag:    "promo",
	}
	require.NoError(t, n.NotifyCompleted(context.Background(), payload))

	assert.Equal(t, "countdown.events.completed", pub.subject)

	var env Envelope
	require.NoError(t, json.Unmarshal(pub.data, &env))
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, EventTypeCountdownCompleted, env.EventType)
	assert.Equal(t, "launch", env.CountdownID)
	assert.True(t, stamp.Equal(env.Timestamp))
	assert.Equal(t, "promo", env.Payload.StyleTag)
	assert.True(t, payload.Target.Equal(env.Payload.Target))
}

func TestNATSNotifier_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	err := NewNATSNotifier(pub, "countdown.events").NotifyCompleted(context.Background(), CountdownCompletedPayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection closed")
}

func TestNATSNotifier_CancelledContext(t *testing.T) {
	pub := &fakePublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewNATSNotifier(pub, "countdown.events").NotifyCompleted(ctx, CountdownCompletedPayload{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pub.subject)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLogNotifier().NotifyCompleted(context.Background(), CountdownCompletedPayload{CountdownID: "x"}))
}
