package agent

import (
	"sync"
	"time"
)

// EventKind identifies the type of loop event.
type EventKind string

const (
	EventTaskStart      EventKind = "task_start"
	EventTaskEnd        EventKind = "task_end"
	EventModelResponse  EventKind = "model_response"
	EventThinking       EventKind = "thinking"
	EventToolStart      EventKind = "tool_start"
	EventToolEnd        EventKind = "tool_end"
	EventApprovalAsked  EventKind = "approval_asked"
	EventApprovalDenied EventKind = "approval_denied"
	EventParseRetry     EventKind = "parse_retry"
	EventFollowupAsked  EventKind = "followup_asked"
	EventRepeatWarning  EventKind = "repeat_warning"
	EventBackendRetry   EventKind = "backend_retry"
	EventError          EventKind = "error"
)

// Event is a typed notification emitted by the loop for the host
// application (the CLI prints them; tests collect them).
type Event struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	TaskID    string                 `json:"task_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter delivers events over a buffered channel. Emission never
// blocks the loop: when the buffer is full the event is dropped.
type EventEmitter struct {
	taskID string
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// NewEventEmitter creates an emitter with the given buffer size.
func NewEventEmitter(taskID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{taskID: taskID, ch: make(chan Event, bufferSize)}
}

// Emit sends an event. Safe after Close (the event is dropped).
func (e *EventEmitter) Emit(kind EventKind, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := Event{Kind: kind, Timestamp: time.Now(), TaskID: e.taskID, Data: data}
	select {
	case e.ch <- event:
	default:
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
