// Package logging wraps log/slog with category-tagged helpers.
// Every package logs through here so output stays uniform.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Category constants for consistent logging categories.
const (
	CategoryApp      = "App"
	CategoryRecorder = "Recorder"
	CategorySTT      = "STT"
	CategoryCapture  = "Capture"
	CategoryStorage  = "Storage"
	CategoryDownload = "Download"
	CategoryServer   = "Server"
	CategoryEvents   = "Events"
	CategoryPopup    = "Popup"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Init configures the process logger. format is "text" or "json".
func Init(level, format string) {
	InitWriter(os.Stderr, level, format)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger.Store(slog.New(h))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Logger returns the underlying slog logger.
func Logger() *slog.Logger {
	return logger.Load()
}

func emit(level slog.Level, status, category, msg string, params ...interface{}) {
	l := logger.Load()
	if len(params) > 0 {
		msg = fmt.Sprintf(msg, params...)
	}
	if status != "" {
		l.Log(context.Background(), level, msg, "category", category, "status", status)
		return
	}
	l.Log(context.Background(), level, msg, "category", category)
}

// Debug logs a debug message.
func Debug(category, msg string, params ...interface{}) {
	emit(slog.LevelDebug, "", category, msg, params...)
}

// Info logs an info message.
func Info(category, msg string, params ...interface{}) {
	emit(slog.LevelInfo, "", category, msg, params...)
}

// Success logs a success message.
func Success(category, msg string, params ...interface{}) {
	emit(slog.LevelInfo, "ok", category, msg, params...)
}

// Warning logs a warning message.
func Warning(category, msg string, params ...interface{}) {
	emit(slog.LevelWarn, "", category, msg, params...)
}

// Fail logs a failure message.
func Fail(category, msg string, params ...interface{}) {
	emit(slog.LevelError, "fail", category, msg, params...)
}

// Error logs an error message.
func Error(category, msg string, params ...interface{}) {
	emit(slog.LevelError, "", category, msg, params...)
}
