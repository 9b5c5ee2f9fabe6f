package notify

import "time"

// EventTypeCountdownCompleted is published once per completed countdown activation
const EventTypeCountdownCompleted = "CountdownCompleted"

// CountdownCompletedPayload is the payload for a CountdownCompleted event
type CountdownCompletedPayload struct {
	CountdownID string    `json:"countdown_id"`
	Target      time.Time `json:"target"`
	CompletedAt time.Time `json:"completed_at"`
	StyleTag    string    `json:"style_tag,omitempty"`
}

// Envelope wraps every published event
type Envelope struct {
	EventID     string                    `json:"eventId"`
	EventType   string                    `json:"eventType"`
	CountdownID string                    `json:"countdownId"`
	Timestamp   time.Time                 `json:"timestamp"`
	Payload     CountdownCompletedPayload `json:"payload"`
}
