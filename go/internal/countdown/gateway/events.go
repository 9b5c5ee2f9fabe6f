package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/countdown/go/internal/countdown"
	"github.com/mcdev12/countdown/go/internal/countdown/render"
)

// CountdownEvent represents the base structure for all countdown events
type CountdownEvent struct {
	ID          string          `json:"id"`           // Event UUID
	CountdownID string          `json:"countdown_id"` // Engine ID
	Type        EventType       `json:"type"`         // Event type
	Timestamp   time.Time       `json:"timestamp"`    // Event creation time
	Data        json.RawMessage `json:"data"`         // Event-specific payload
}

// EventType represents the type of countdown event
type EventType string

const (
	EventTypeTimerTick          EventType = "TimerTick"
	EventTypeCountdownCompleted EventType = "CountdownCompleted"
	EventTypeCountdownInvalid   EventType = "CountdownInvalid"
)

// TimerTickPayload carries one published RemainingTime. CountdownCompleted
// events use the same payload with is_complete set.
type TimerTickPayload struct {
	countdown.RemainingTime
	ShowSeconds bool      `json:"show_seconds"`
	Display     string    `json:"display"`
	Target      time.Time `json:"target"`
}

// CountdownInvalidPayload reports a rejected reconfiguration
type CountdownInvalidPayload struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// ClientMessage is sent by browsers over the socket
type ClientMessage struct {
	Type string `json:"type"`
	Date string `json:"date,omitempty"`
}

const clientMessageReconfigure = "reconfigure"

// NewEvent marshals payload into a new event envelope
func NewEvent(countdownID string, eventType EventType, payload any, at time.Time) (*CountdownEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &CountdownEvent{
		ID:          uuid.New().String(),
		CountdownID: countdownID,
		Type:        eventType,
		Timestamp:   at,
		Data:        data,
	}, nil
}

// tickEvent builds the event published for one RemainingTime
func tickEvent(countdownID string, rt countdown.RemainingTime, cfg countdown.DisplayConfig, target countdown.Target, at time.Time) (*CountdownEvent, error) {
	eventType := EventTypeTimerTick
	if rt.IsComplete {
		eventType = EventTypeCountdownCompleted
	}
	return NewEvent(countdownID, eventType, TimerTickPayload{
		RemainingTime: rt,
		ShowSeconds:   cfg.ShowSeconds,
		Display:       render.Compact(rt, cfg.ShowSeconds),
		Target:        target.Time(),
	}, at)
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *CountdownEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeTimerTick, EventTypeCountdownCompleted:
		var payload TimerTickPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeCountdownInvalid:
		var payload CountdownInvalidPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
