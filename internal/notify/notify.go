// Package notify delivers user-facing messages (errors, instructions).
package notify

import (
	"log/slog"
	"sync"

	"github.com/vietddude/walletview/internal/metrics"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Sink receives notifications. Implementations must not block the caller
// for long; they are invoked from feed callbacks.
type Sink interface {
	Notify(message string, severity Severity)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(message string, severity Severity)

func (f SinkFunc) Notify(message string, severity Severity) {
	f(message, severity)
}

// LogSink writes notifications to slog.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Notify(message string, severity Severity) {
	metrics.NotificationsTotal.WithLabelValues(string(severity)).Inc()

	switch severity {
	case SeverityError:
		s.log.Error(message)
	case SeverityWarning:
		s.log.Warn(message)
	default:
		s.log.Info(message)
	}
}

// Multi fans a notification out to several sinks.
type Multi []Sink

func (m Multi) Notify(message string, severity Severity) {
	for _, s := range m {
		if s != nil {
			s.Notify(message, severity)
		}
	}
}

// Entry is one recorded notification.
type Entry struct {
	Message  string
	Severity Severity
}

// Recorder keeps notifications in memory. Useful for the CLI summary and tests.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) Notify(message string, severity Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Message: message, Severity: severity})
}

// Entries returns a copy of what was recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}
