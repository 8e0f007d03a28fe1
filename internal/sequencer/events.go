package sequencer

// EventType names a state change published by the sequencer.
type EventType string

const (
	EventStepChanged         EventType = "step_changed"
	EventSubmissionStarted   EventType = "submission_started"
	EventSubmissionSucceeded EventType = "submission_succeeded"
	EventSubmissionFailed    EventType = "submission_failed"
)

// Event describes a sequencer transition. Message is set on failures.
type Event struct {
	Type       EventType `json:"type"`
	Pool       string    `json:"pool"`
	Cursor     int       `json:"cursor"`
	Total      int       `json:"total"`
	QuestionID string    `json:"question_id,omitempty"`
	Message    string    `json:"message,omitempty"`
	Err        error     `json:"-"`
}

// Listener receives sequencer events. Events are delivered after the
// sequencer lock is released, so listeners may call back into it.
type Listener interface {
	HandleEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) HandleEvent(e Event) { f(e) }
