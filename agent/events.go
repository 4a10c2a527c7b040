package agent

import (
	"sync"
	"time"
)

// EventKind identifies the type of turn event.
type EventKind string

const (
	EventTurnStart     EventKind = "turn_start"
	EventAssistantText EventKind = "assistant_text"
	EventToolCallStart EventKind = "tool_call_start"
	EventToolCallEnd   EventKind = "tool_call_end"
	EventModelSelected EventKind = "model_selected"
	EventCommandRun    EventKind = "command_run"
	EventTurnEnd       EventKind = "turn_end"
	EventError         EventKind = "error"
)

// TurnEvent is a typed event emitted by the orchestrator as a turn advances.
type TurnEvent struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventEmitter delivers turn events to the host application via a channel.
type EventEmitter struct {
	sessionID string
	ch        chan TurnEvent
	closed    bool
	mu        sync.Mutex
}

// NewEventEmitter creates an EventEmitter with a buffered channel.
func NewEventEmitter(sessionID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		sessionID: sessionID,
		ch:        make(chan TurnEvent, bufferSize),
	}
}

// Emit sends an event to the channel. Events are dropped rather than letting
// a slow consumer block the turn loop. Emitting on a closed emitter is a
// no-op.
func (e *EventEmitter) Emit(kind EventKind, data map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := TurnEvent{
		Kind:      kind,
		Timestamp: time.Now(),
		SessionID: e.sessionID,
		Data:      data,
	}
	select {
	case e.ch <- event:
	default:
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan TurnEvent {
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
