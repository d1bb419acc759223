package events

import "time"

// EventType identifies the kind of event emitted by a workflow run.
type EventType string

const (
	EventWorkflowStart  EventType = "workflow.start"
	EventWorkflowEnd    EventType = "workflow.end"
	EventStateEnter     EventType = "state.enter"
	EventStateExit      EventType = "state.exit"
	EventSpecReceived   EventType = "spec.received"
	EventTaskParsed     EventType = "task.parsed"
	EventTaskRejected   EventType = "task.rejected"
	EventTaskListBuilt  EventType = "tasklist.built"
	EventUserdataChange EventType = "userdata.change"
)

// Event represents a single workflow event.
type Event struct {
	Type      EventType     `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	RunID     string        `json:"run_id,omitempty"`
	State     string        `json:"state,omitempty"`
	Data      any           `json:"data"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// NewEvent creates a new Event with the current timestamp.
func NewEvent(typ EventType, data any) Event {
	return Event{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      data,
	}
}
