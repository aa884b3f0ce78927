package main

import (
	"log/slog"
	"os"
)

// LogLevel mirrors the internet-latency-collector's string-flag-to-
// slog.Level pattern: debug mode switches to a human-readable text handler
// with source locations, everything else is structured JSON to stderr.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

func newSlogLogger(level LogLevel) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case LogLevelDebug:
		slogLevel = slog.LevelDebug
	case LogLevelWarn:
		slogLevel = slog.LevelWarn
	case LogLevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	isDebug := level == LogLevelDebug
	opts := &slog.HandlerOptions{Level: slogLevel, AddSource: isDebug}

	var handler slog.Handler
	if isDebug {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
