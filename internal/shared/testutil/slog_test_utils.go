// Package testutil provides log capture helpers shared by package tests.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord represents a captured log record
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// BufferedSlogHandler captures log records in memory
type BufferedSlogHandler struct {
	mu      sync.Mutex
	records []LogRecord
	attrs   []slog.Attr
	parent  *BufferedSlogHandler
}

// NewTestLogger creates a logger backed by a buffered handler
func NewTestLogger(t *testing.T) (*slog.Logger, *BufferedSlogHandler) {
	t.Helper()
	handler := &BufferedSlogHandler{}
	return slog.New(handler), handler
}

func (h *BufferedSlogHandler) root() *BufferedSlogHandler {
	if h.parent != nil {
		return h.parent.root()
	}
	return h
}

// Handle implements slog.Handler
func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	root := h.root()
	root.mu.Lock()
	root.records = append(root.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	root.mu.Unlock()
	return nil
}

// Enabled implements slog.Handler
func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// WithAttrs implements slog.Handler
func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &BufferedSlogHandler{attrs: merged, parent: h}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *BufferedSlogHandler) WithGroup(string) slog.Handler {
	return h
}

// Records returns a copy of all captured records
func (h *BufferedSlogHandler) Records() []LogRecord {
	root := h.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	out := make([]LogRecord, len(root.records))
	copy(out, root.records)
	return out
}

// ContainsMessage checks if any record contains the given message
func (h *BufferedSlogHandler) ContainsMessage(message string) bool {
	for _, r := range h.Records() {
		if strings.Contains(r.Message, message) {
			return true
		}
	}
	return false
}

// FindMessage returns the first record whose message equals message.
func (h *BufferedSlogHandler) FindMessage(message string) (LogRecord, bool) {
	for _, r := range h.Records() {
		if r.Message == message {
			return r, true
		}
	}
	return LogRecord{}, false
}

// CountLevel returns how many records were logged at level.
func (h *BufferedSlogHandler) CountLevel(level slog.Level) int {
	n := 0
	for _, r := range h.Records() {
		if r.Level == level {
			n++
		}
	}
	return n
}

// CountMessage returns how many records carry exactly message.
func (h *BufferedSlogHandler) CountMessage(message string) int {
	n := 0
	for _, r := range h.Records() {
		if r.Message == message {
			n++
		}
	}
	return n
}
