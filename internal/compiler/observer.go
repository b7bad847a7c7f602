package compiler

import (
	"log/slog"
	"sync"
	"time"
)

// StageEventType classifies a compile-stage observation.
type StageEventType string

const (
	EventStageEnter    StageEventType = "stage_enter"
	EventStageExit     StageEventType = "stage_exit"
	EventStageError    StageEventType = "stage_error"
	EventCompileDone   StageEventType = "compile_done"
	EventCompileFailed StageEventType = "compile_failed"
)

// StageEvent is a single observation from a Compile call. Metadata is
// the forward-compatible extension point — new fields go there without
// breaking the struct.
type StageEvent struct {
	Type     StageEventType
	Stage    string
	Elapsed  time.Duration
	Error    error
	Metadata map[string]any
}

// StageObserver receives events during a compile. Single-method design
// (like http.Handler) so adding new event types never breaks existing
// observers.
type StageObserver interface {
	OnEvent(StageEvent)
}

// StageObserverFunc adapts a plain function to the StageObserver interface.
type StageObserverFunc func(StageEvent)

func (f StageObserverFunc) OnEvent(e StageEvent) { f(e) }

// MultiObserver fans out events to multiple observers.
type MultiObserver []StageObserver

func (m MultiObserver) OnEvent(e StageEvent) {
	for _, obs := range m {
		obs.OnEvent(e)
	}
}

// LogObserver writes stage events as structured slog lines.
type LogObserver struct {
	Logger *slog.Logger
}

func (o *LogObserver) OnEvent(e StageEvent) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("event", string(e.Type)),
	}
	if e.Stage != "" {
		attrs = append(attrs, slog.String("stage", e.Stage))
	}
	if e.Elapsed > 0 {
		attrs = append(attrs, slog.Duration("elapsed", e.Elapsed))
	}
	if e.Error != nil {
		attrs = append(attrs, slog.String("error", e.Error.Error()))
	}

	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}

	if e.Error != nil {
		logger.LogAttrs(nil, slog.LevelWarn, "compile", attrs...)
	} else {
		logger.LogAttrs(nil, slog.LevelInfo, "compile", attrs...)
	}
}

// TraceCollector accumulates stage events in memory for post-compile
// analysis. Safe for concurrent use.
type TraceCollector struct {
	mu     sync.Mutex
	events []StageEvent
}

func (t *TraceCollector) OnEvent(e StageEvent) {
	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
}

// Events returns a copy of all collected events.
func (t *TraceCollector) Events() []StageEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StageEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Reset clears collected events.
func (t *TraceCollector) Reset() {
	t.mu.Lock()
	t.events = nil
	t.mu.Unlock()
}

// EventsOfType returns only events matching the given type.
func (t *TraceCollector) EventsOfType(typ StageEventType) []StageEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []StageEvent
	for _, e := range t.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// emitEvent is a helper to safely emit an event to a possibly-nil observer.
func emitEvent(obs StageObserver, e StageEvent) {
	if obs != nil {
		obs.OnEvent(e)
	}
}
