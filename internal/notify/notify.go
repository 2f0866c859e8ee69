// Package notify delivers short user-facing messages ("toasts") and push
// alerts. Services take a Sink so the CLI, the HTTP API and tests can each
// decide where messages go.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Kind is the severity of a message.
type Kind string

const (
	Info    Kind = "info"
	Success Kind = "success"
	Warning Kind = "warning"
	Error   Kind = "error"
)

// Sink shows a message to the user.
type Sink interface {
	Notify(message string, kind Kind)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(message string, kind Kind)

// Notify calls f.
func (f SinkFunc) Notify(message string, kind Kind) { f(message, kind) }

// Discard drops every message.
var Discard Sink = SinkFunc(func(string, Kind) {})

// LogSink writes messages to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// Notify logs message at a level matching kind.
func (s LogSink) Notify(message string, kind Kind) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch kind {
	case Warning:
		level = slog.LevelWarn
	case Error:
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, message, "kind", string(kind))
}

var prefixes = map[Kind]string{
	Info:    "i",
	Success: "✓",
	Warning: "!",
	Error:   "✗",
}

// Printer writes one line per message, for terminals.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter returns a Sink writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Notify prints message with a marker for its kind.
func (p *Printer) Notify(message string, kind Kind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prefix, ok := prefixes[kind]
	if !ok {
		prefix = prefixes[Info]
	}
	_, _ = fmt.Fprintf(p.w, "%s %s\n", prefix, message)
}

// Alert is a push notification raised outside the normal message flow.
type Alert struct {
	Title string
	Body  string
}

// Alerter raises push alerts. Implementations must not block.
type Alerter interface {
	Alert(a Alert)
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(Alert)

// Alert calls f.
func (f AlerterFunc) Alert(a Alert) { f(a) }

// NoAlerts drops every alert.
var NoAlerts Alerter = AlerterFunc(func(Alert) {})

// Bell rings the terminal bell and prints the alert.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBell returns an Alerter writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

// Alert prints a and rings the bell.
func (b *Bell) Alert(a Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = fmt.Fprintf(b.w, "\a🔔 %s: %s\n", a.Title, a.Body)
}
