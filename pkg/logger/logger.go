package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chat-assistant-server/internal/domain"
)

// AppLogger implements the domain.Logger interface on top of zerolog.
type AppLogger struct {
	logger zerolog.Logger
}

// NewLogger creates a new logger instance. Development output is human
// readable; every other environment gets one JSON object per line.
func NewLogger(levelStr, appEnv string) domain.Logger {
	var out io.Writer = os.Stdout
	if appEnv == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(out, levelStr)
}

// NewWithWriter builds a logger that writes to w.
func NewWithWriter(w io.Writer, levelStr string) *AppLogger {
	l := zerolog.New(w).
		Level(parseLogLevel(levelStr)).
		With().
		Timestamp().
		Logger()
	return &AppLogger{logger: l}
}

// Zerolog exposes the underlying logger for middleware that wants it directly.
func (l *AppLogger) Zerolog() zerolog.Logger {
	return l.logger
}

// Info logs an info message
func (l *AppLogger) Info(msg string, fields ...interface{}) {
	withFields(l.logger.Info(), fields).Msg(msg)
}

// Error logs an error message
func (l *AppLogger) Error(msg string, err error, fields ...interface{}) {
	withFields(l.logger.Error().Err(err), fields).Msg(msg)
}

// Debug logs a debug message
func (l *AppLogger) Debug(msg string, fields ...interface{}) {
	withFields(l.logger.Debug(), fields).Msg(msg)
}

// Warn logs a warning message
func (l *AppLogger) Warn(msg string, fields ...interface{}) {
	withFields(l.logger.Warn(), fields).Msg(msg)
}

// withFields attaches alternating key/value pairs. A trailing key without a
// value is dropped.
func withFields(e *zerolog.Event, fields []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprint(fields[i])
		}
		switch v := fields[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	return e
}

// parseLogLevel converts string log level to a zerolog level
func parseLogLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
