package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStart EventType = "start"
	EventStep  EventType = "step"
	EventReset EventType = "reset"
	EventEnd   EventType = "end"
	EventFatal EventType = "fatal"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// SessionEvent describes one lifecycle transition of a session.
type SessionEvent struct {
	EventBase
	Program  string        `json:"program"`
	Strategy Strategy      `json:"strategy"`
	Action   Action        `json:"action,omitempty"`
	Done     bool          `json:"done"`
	Output   int           `json:"output"` // observation size in bytes
	Records  int           `json:"records"`
	Bytes    int64         `json:"bytes"` // recorded payload bytes
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for session observability.
type LifecycleHooks struct {
	OnStart func(context.Context, *SessionEvent)
	OnStep  func(context.Context, *SessionEvent)
	OnReset func(context.Context, *SessionEvent)
	OnEnd   func(context.Context, *SessionEvent)
	OnFatal func(context.Context, *SessionEvent)
}
