// Package log wraps log/slog with the small conveniences the orchestrator
// needs: a level flag string, and structured event helpers for the fields
// this CLI actually emits (command name, duration, counts, warnings).
//
// There is no third-party structured-logging dependency in the example
// pack — the teacher builds its own CBOR event log (pkg/log) specifically
// for wire-level protocol capture and adapts it to slog for console
// output via SlogAdapter. This package follows that second half: slog is
// the console logger, and the CBOR capture format lives separately in
// internal/transport for the replay feature, mirroring the split the
// teacher keeps between pkg/log (protocol events) and its slog adapter.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger is the logger used throughout the orchestrator and CLI.
type Logger struct {
	*slog.Logger
}

// New builds a Logger writing text-formatted records to os.Stderr at the given
// level. levelName accepts "debug", "info", "warn", "error" (case
// insensitive); unrecognized values fall back to "info".
func New(levelName string) *Logger {
	level := parseLevel(levelName)
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Command logs the start of a CLI subcommand invocation.
func (l *Logger) Command(name string, dryRun bool) {
	l.Info("command", slog.String("name", name), slog.Bool("dry_run", dryRun))
}

// Duration logs how long a pipeline stage or command took.
func (l *Logger) Duration(stage string, d time.Duration) {
	l.Debug("stage", slog.String("stage", stage), slog.Duration("elapsed", d))
}

// Warnings logs each pipeline warning at warn level with its index, so a
// long warning list is still individually greppable in text output.
func (l *Logger) Warnings(stage string, warnings []string) {
	for i, w := range warnings {
		l.Warn("warning", slog.String("stage", stage), slog.Int("index", i), slog.String("message", w))
	}
}

// Counts logs a set of named counters (devices found, entities enriched,
// assignments made) as one structured record.
func (l *Logger) Counts(stage string, counts map[string]int) {
	attrs := make([]any, 0, len(counts)*2+2)
	attrs = append(attrs, "stage", stage)
	for k, v := range counts {
		attrs = append(attrs, k, v)
	}
	l.Logger.Log(context.Background(), slog.LevelInfo, "counts", attrs...)
}

// Fatal logs err at error level and exits the process with status 1. Used
// only at the top of cmd/hass-atlas/main.go for unrecoverable setup
// failures, matching the teacher's cmd/* main() error-then-os.Exit style.
func Fatal(l *Logger, context string, err error) {
	l.Error(context, slog.String("error", err.Error()))
	fmt.Fprintf(os.Stderr, "%s: %v\n", context, err)
	os.Exit(1)
}
