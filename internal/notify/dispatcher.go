// Package notify delivers transient user-facing notifications ("toasts")
// to every registered sink: the log, connected browsers, a pub/sub channel.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Severity selects how a notification is presented.
type Severity string

const (
	SeverityNormal      Severity = "normal"
	SeverityDestructive Severity = "destructive"
)

// ParseSeverity maps a string to a Severity, defaulting to SeverityNormal.
func ParseSeverity(s string) Severity {
	if Severity(s) == SeverityDestructive {
		return SeverityDestructive
	}
	return SeverityNormal
}

// Notification is one message shown to the user.
type Notification struct {
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier accepts notifications. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Sink is one delivery target.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// Dispatcher fans notifications out to named sinks.
type Dispatcher struct {
	sinks map[string]Sink
	mu    sync.RWMutex
}

// NewDispatcher creates a dispatcher with no sinks.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		sinks: make(map[string]Sink),
	}
}

// Register adds or replaces a sink.
func (d *Dispatcher) Register(name string, sink Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks[name] = sink
	slog.Info("notification sink registered", "sink", name)
}

// HasSink returns true if the named sink is registered.
func (d *Dispatcher) HasSink(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.sinks[name]
	return ok
}

// Notify delivers n to every sink. Sink failures are logged, never returned.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Severity == "" {
		n.Severity = SeverityNormal
	}

	d.mu.RLock()
	names := make([]string, 0, len(d.sinks))
	for name := range d.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	sinks := make([]Sink, len(names))
	for i, name := range names {
		sinks[i] = d.sinks[name]
	}
	d.mu.RUnlock()

	for i, sink := range sinks {
		if err := sink.Deliver(ctx, n); err != nil {
			slog.Warn("notification delivery failed", "sink", names[i], "error", err)
		}
	}
}

// LogSink writes notifications to the default slog logger.
type LogSink struct{}

func (LogSink) Deliver(ctx context.Context, n Notification) error {
	slog.InfoContext(ctx, "notification", "message", n.Message, "severity", string(n.Severity))
	return nil
}

// MemorySink keeps delivered notifications in memory for tests.
type MemorySink struct {
	mu   sync.Mutex
	sent []Notification
	Err  error // returned from Deliver when set
}

func (m *MemorySink) Deliver(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, n)
	return nil
}

// Notifications returns a copy of everything delivered so far.
func (m *MemorySink) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification{}, m.sent...)
}

// Publisher publishes a payload on a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// PubSubSink forwards notifications as JSON to a pub/sub channel so other
// dashboard instances can relay them.
type PubSubSink struct {
	pub     Publisher
	channel string
}

// NewPubSubSink creates a sink publishing on channel.
func NewPubSubSink(pub Publisher, channel string) (*PubSubSink, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher is nil")
	}
	if channel == "" {
		return nil, fmt.Errorf("channel is required")
	}
	return &PubSubSink{pub: pub, channel: channel}, nil
}

func (s *PubSubSink) Deliver(ctx context.Context, n Notification) error {
	payload, err := encode(n)
	if err != nil {
		return err
	}
	if err := s.pub.Publish(ctx, s.channel, payload); err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}
	return nil
}
