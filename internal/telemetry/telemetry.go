// Package telemetry records engine events. Emission is best-effort: callers
// log a failed Emit and carry on.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// Event names.
const (
	EventContextComputed   = "context_computed"
	EventContextCacheHit   = "context_cache_hit"
	EventActionsFiltered   = "actions_filtered"
	EventContextOverridden = "context_overridden"
	EventContextError      = "context_error"
)

// Event is one telemetry record. Attrs values must be JSON-encodable.
type Event struct {
	Name      string         `json:"name"`
	At        time.Time      `json:"at"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	BundleID  string         `json:"bundle_id,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// Sink receives events.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

// Emit implements Sink.
func (Nop) Emit(context.Context, Event) error { return nil }

// Logger emits events as structured log lines.
type Logger struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogger creates a sink writing to l at level. A nil l uses slog.Default().
func NewLogger(l *slog.Logger, level slog.Level) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{logger: l, level: level}
}

// Emit implements Sink. Attrs follow the fixed fields in key order.
func (s *Logger) Emit(ctx context.Context, e Event) error {
	attrs := []slog.Attr{
		slog.Time("at", e.At),
		slog.String("user_id", e.UserID),
		slog.String("session_id", e.SessionID),
	}
	if e.BundleID != "" {
		attrs = append(attrs, slog.String("bundle_id", e.BundleID))
	}
	for _, k := range slices.Sorted(maps.Keys(e.Attrs)) {
		attrs = append(attrs, slog.Any(k, e.Attrs[k]))
	}
	s.logger.LogAttrs(ctx, s.level, e.Name, attrs...)
	return nil
}

// Multi fans an event out to several sinks. Every sink is tried; the errors
// are joined.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps events in memory. Tests use it to assert on emissions.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []string {
	events := r.Events()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}
