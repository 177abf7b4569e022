// Package logtest captures log records in memory so tests can assert on
// what a component logged.
package logtest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samcharles93/subdiv/internal/logger"
)

// Entry is one record captured by a Recorder.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Recorder is a slog.Handler that keeps every record in memory.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	attrs   []slog.Attr
}

func NewRecorder() *Recorder {
	return &Recorder{mu: new(sync.Mutex), entries: new([]Entry)}
}

// Logger returns a Logger writing into r at every level.
func (r *Recorder) Logger() logger.Logger { return logger.New(r) }

func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	e := Entry{Level: rec.Level, Message: rec.Message, Attrs: make(map[string]any)}
	for _, a := range r.attrs {
		e.Attrs[a.Key] = a.Value.Any()
	}
	rec.Attrs(func(a slog.Attr) bool {
		e.Attrs[a.Key] = a.Value.Any()
		return true
	})
	r.mu.Lock()
	*r.entries = append(*r.entries, e)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *r
	next.attrs = append(append([]slog.Attr(nil), r.attrs...), attrs...)
	return &next
}

// WithGroup is a no-op; recorded keys are not qualified.
func (r *Recorder) WithGroup(string) slog.Handler { return r }

// Entries returns the records at or above level.
func (r *Recorder) Entries(level slog.Level) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range *r.entries {
		if e.Level >= level {
			out = append(out, e)
		}
	}
	return out
}
