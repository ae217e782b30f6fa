package agent

import (
	"sync"
	"time"
)

// EventKind identifies the type of loop event.
type EventKind string

const (
	EventRequestStart    EventKind = "request_start"
	EventRequestEnd      EventKind = "request_end"
	EventModelCall       EventKind = "model_call"
	EventDecisionValid   EventKind = "decision_valid"
	EventDecisionInvalid EventKind = "decision_invalid"
	EventToolStart       EventKind = "tool_start"
	EventToolEnd         EventKind = "tool_end"
	EventIterationLimit  EventKind = "iteration_limit"
	EventLoopDetected    EventKind = "loop_detected"
	EventWarning         EventKind = "warning"
	EventError           EventKind = "error"
)

// Event is a typed notification emitted by the loop for host application
// integration (UIs, transcripts, metrics).
type Event struct {
	Kind           EventKind              `json:"kind"`
	Timestamp      time.Time              `json:"timestamp"`
	ConversationID string                 `json:"conversation_id"`
	Data           map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter delivers events to the host over a buffered channel. Emits
// never block the loop; events are dropped when the buffer is full.
type EventEmitter struct {
	conversationID string
	ch             chan Event
	closed         bool
	mu             sync.Mutex
}

// NewEventEmitter creates an EventEmitter with a buffered channel.
func NewEventEmitter(conversationID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		conversationID: conversationID,
		ch:             make(chan Event, bufferSize),
	}
}

// Emit sends an event. Emitting on a closed emitter is a silent no-op.
func (e *EventEmitter) Emit(kind EventKind, data map[string]interface{}) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := Event{
		Kind:           kind,
		Timestamp:      time.Now(),
		ConversationID: e.conversationID,
		Data:           data,
	}
	select {
	case e.ch <- event:
	default:
		// Buffer full; drop rather than stall the loop.
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
