// Package telemetry delivers combat lifecycle events to external sinks.
// Delivery is fire-and-forget: callers log sink errors and carry on.
package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event names emitted on terminal combat transitions.
const (
	EventVictory = "combat_victory"
	EventDefeat  = "combat_defeat"
	EventFled    = "combat_fled"
)

// Payload keys common to every combat event.
const (
	KeyCombatID        = "combat_id"
	KeyArea            = "area"
	KeyRounds          = "rounds"
	KeyEnemiesDefeated = "enemies_defeated"
)

// Event is one telemetry record.
type Event struct {
	Name    string         `json:"name"`
	Time    time.Time      `json:"time"`
	Payload map[string]any `json:"payload"`
}

// Sink receives events.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// LogSink writes events to a zap logger at Info level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink. A nil logger discards events.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Emit implements Sink.
func (s *LogSink) Emit(_ context.Context, e Event) error {
	s.logger.Info("telemetry event",
		zap.String("event", e.Name),
		zap.Time("time", e.Time),
		zap.Any("payload", e.Payload),
	)
	return nil
}

// Multi fans an event out to every sink. All sinks are attempted; their
// errors are joined.
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

// Discard is a Sink that drops every event.
type Discard struct{}

// Emit implements Sink.
func (Discard) Emit(context.Context, Event) error { return nil }

// Recorder is a Sink that keeps every event in memory. Useful in tests and
// the simulator summary. Emit is safe for concurrent use; read Events only
// once emitters are done.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Name
	}
	return out
}
