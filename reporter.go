package gqlcompose

import (
	"context"
	"log/slog"
	"sync"
)

// Reporter is the diagnostics sink used during a build.
//
// Panic is fatal: implementations must not return normally. The builder
// recovers the *FatalError and returns it from Build.
type Reporter interface {
	Warn(msg string)
	Error(msg string)
	Panic(msg string)
}

// LogReporter writes diagnostics to a slog.Logger.
type LogReporter struct {
	log *slog.Logger
}

// NewLogReporter returns a Reporter backed by log. A nil logger uses slog.Default.
func NewLogReporter(log *slog.Logger) *LogReporter {
	if log == nil {
		log = slog.Default()
	}
	return &LogReporter{log: log.With("component", "gqlcompose")}
}

// Warn implements Reporter.
func (r *LogReporter) Warn(msg string) {
	r.log.LogAttrs(context.Background(), slog.LevelWarn, msg)
}

// Error implements Reporter.
func (r *LogReporter) Error(msg string) {
	r.log.LogAttrs(context.Background(), slog.LevelError, msg)
}

// Panic implements Reporter.
func (r *LogReporter) Panic(msg string) {
	r.log.LogAttrs(context.Background(), slog.LevelError, msg, slog.Bool("fatal", true))
	panic(&FatalError{Message: msg})
}

// Recorder is a Reporter that keeps every message in memory.
type Recorder struct {
	mu       sync.Mutex
	warnings []string
	errors   []string
	panics   []string
}

// Warn implements Reporter.
func (r *Recorder) Warn(msg string) {
	r.mu.Lock()
	r.warnings = append(r.warnings, msg)
	r.mu.Unlock()
}

// Error implements Reporter.
func (r *Recorder) Error(msg string) {
	r.mu.Lock()
	r.errors = append(r.errors, msg)
	r.mu.Unlock()
}

// Panic implements Reporter.
func (r *Recorder) Panic(msg string) {
	r.mu.Lock()
	r.panics = append(r.panics, msg)
	r.mu.Unlock()
	panic(&FatalError{Message: msg})
}

// Warnings returns the recorded warnings.
func (r *Recorder) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

// Errors returns the recorded errors.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

// Panics returns the recorded fatal messages.
func (r *Recorder) Panics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.panics...)
}

// Recover converts a recovered *FatalError into an error and stores it in
// errp. Other panics are re-raised.
//
//	defer gqlcompose.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if fe, ok := r.(*FatalError); ok {
		*errp = fe
		return
	}
	panic(r)
}
