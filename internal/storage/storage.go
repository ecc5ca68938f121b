package storage

import "time"

// Event represents a single interaction of a user and assistant, plus any
// rating the user later gave it. Events are appended in chronological order.
type Event struct {
	Timestamp         time.Time `json:"timestamp"`
	UserID            string    `json:"user_id"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	Feedback          string    `json:"feedback,omitempty"` // "util" or "no_util"
}

// Recorder abstracts persistence of interaction events.
// LoadInteractions returns events in chronological order.
// AppendInteraction atomically appends a new event.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}
