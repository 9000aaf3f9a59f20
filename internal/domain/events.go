package domain

// EventType names the notifications pushed over the client channel.
type EventType string

const (
	EventState           EventType = "state"
	EventButtonPressed   EventType = "buttonPressed"
	EventCorrectAnswer   EventType = "correctAnswer"
	EventIncorrectAnswer EventType = "incorrectAnswer"
	EventScoreUpdated    EventType = "scoreUpdated"
)

// Event is one outbound notification. State is set on EventState; the other
// fields accompany the discrete per-action events.
type Event struct {
	Type      EventType `json:"type"`
	State     *Snapshot `json:"state,omitempty"`
	PlayerID  int       `json:"playerId,omitempty"`
	Timestamp int64     `json:"timestamp,omitempty"`
	NewScore  int       `json:"newScore,omitempty"`
}

// StateEvent wraps a snapshot into a broadcastable event.
func StateEvent(s Snapshot) Event {
	return Event{Type: EventState, State: &s}
}
