// Package notify carries the user-facing notifications a tab emits for
// mutations, failures and changes synced from other tabs.
package notify

import (
	"context"
	"time"
)

// Level represents the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification represents a single notification event.
type Notification struct {
	ID        int64
	Level     Level
	Title     string
	Message   string
	CreatedAt time.Time
}

// Sink receives notifications. Implementations must be safe for concurrent
// use; a tab notifies from both the caller's goroutine and the relay pump.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(n Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Sink = SinkFunc(func(Notification) {})

// Multi fans a notification out to every sink in order. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return SinkFunc(func(n Notification) {
		for _, s := range kept {
			s.Notify(n)
		}
	})
}

// Store is the notification history.
type Store interface {
	Save(ctx context.Context, n Notification) (int64, error)
	// Recent returns up to limit notifications, newest first; limit <= 0
	// returns all of them.
	Recent(ctx context.Context, limit int) ([]Notification, error)
	// Clear empties the history and reports how many entries it removed.
	Clear(ctx context.Context) (int64, error)
}
