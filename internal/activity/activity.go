// Package activity keeps an append-only audit trail of content changes.
package activity

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Event is one recorded content change.
type Event struct {
	Entity    string         `json:"entity"`
	EntityID  int64          `json:"entity_id"`
	Action    string         `json:"action"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Logger records events.
type Logger interface {
	LogEvent(event Event) error
}

// Reader returns the most recent events, newest first.
type Reader interface {
	Recent(limit int) ([]Event, error)
}

// NopLogger ignores all events.
type NopLogger struct{}

func (NopLogger) LogEvent(Event) error {
	return nil
}

// MemoryLogger stores events in memory.
type MemoryLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{
		events: []Event{},
	}
}

func (l *MemoryLogger) LogEvent(event Event) error {
	if err := validate(event); err != nil {
		return err
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

// Events returns every event in the order it was logged.
func (l *MemoryLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

func (l *MemoryLogger) Recent(limit int) ([]Event, error) {
	events := l.Events()
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func validate(event Event) error {
	if event.Entity == "" {
		return fmt.Errorf("entity is required")
	}
	if event.Action == "" {
		return fmt.Errorf("action is required")
	}
	return nil
}
