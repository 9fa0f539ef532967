// Package logging builds the structured zerolog.Logger every core component
// receives through its constructor. Grounded directly on
// adred-codev-ws_poc/src/logger.go, with one deliberate change: no global
// logger or InitGlobalLogger — spec.md §9 calls out "no implicit ambient
// state" for the queue, and a queuecore library that can't assume it owns
// the process-wide logger needs the same discipline for its own logging.
package logging

import (
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

// Level is a minimum log level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// Format selects the logger's output encoding.
type Format string

const (
	// FormatJSON is structured JSON, suitable for log aggregation.
	FormatJSON Format = "json"
	// FormatConsole is zerolog.ConsoleWriter, human-readable for local dev.
	FormatConsole Format = "console"
)

// Config configures New.
type Config struct {
	Level       Level
	Format      Format
	ServiceName string
}

// New builds a structured logger with a timestamp, caller info, and a
// "service" field, writing JSON or a console-friendly format depending on
// Config.Format.
func New(cfg Config) zerolog.Logger {
	var output io.Writer = os.Stdout

	var level zerolog.Level
	switch cfg.Level {
	case LevelDebug:
		level = zerolog.DebugLevel
	case LevelInfo:
		level = zerolog.InfoLevel
	case LevelWarn:
		level = zerolog.WarnLevel
	case LevelError:
		level = zerolog.ErrorLevel
	case LevelFatal:
		level = zerolog.FatalLevel
	default:
		level = zerolog.InfoLevel
	}

	if cfg.Format == FormatConsole {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "repostream"
	}

	return zerolog.New(output).Level(level).With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Logger()
}

// Error logs err with msg and optional context fields.
func Error(logger zerolog.Logger, err error, msg string, fields map[string]any) {
	event := logger.Error().Err(err)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

// ErrorWithStack logs err with msg, context fields, and a captured stack
// trace — use for unexpected failures where the call path matters.
func ErrorWithStack(logger zerolog.Logger, err error, msg string, fields map[string]any) {
	event := logger.Error().Err(err).Str("stack_trace", string(debug.Stack()))
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

// Panic logs a recovered panic value with a stack trace. Intended for use
// inside a deferred recover() in a worker goroutine, before the caller
// decides whether to let the goroutine exit or keep the process running.
func Panic(logger zerolog.Logger, panicValue any, msg string, fields map[string]any) {
	event := logger.Error().
		Interface("panic_value", panicValue).
		Str("stack_trace", string(debug.Stack()))
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}
