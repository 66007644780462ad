// Package logging configures the structured logger used across the server.
//
// A stdio MCP server owns stdout for protocol traffic, so logs must never
// go there: they are written to a log file when one is configured, and to
// stderr otherwise.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Logger wraps charmbracelet/log with an optional sanitize hook that is
// applied to every message and string field before it reaches the sink.
// The hook is how the gateway keeps its API credential out of log files
// without relying on process-global logger state.
type Logger struct {
	logger   *log.Logger
	sanitize func(string) string
	closer   io.Closer
}

// New creates a logger writing to the given file path. An empty path
// selects stderr. Unknown level strings fall back to info.
func New(path, level string) (*Logger, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer

	if path != "" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closer = f
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "llmwrap",
	})
	logger.SetLevel(parseLevel(level))

	return &Logger{logger: logger, closer: closer}, nil
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// WithSanitizer returns a logger that runs every message and string value
// through fn before emitting it. The underlying sink is shared.
func (l *Logger) WithSanitizer(fn func(string) string) *Logger {
	return &Logger{logger: l.logger, sanitize: fn, closer: nil}
}

// With returns a logger that attaches the given key-value pairs to every
// event, preserving the sanitize hook.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{logger: l.logger.With(l.clean(keyvals)...), sanitize: l.sanitize, closer: nil}
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(l.cleanMsg(msg), l.clean(keyvals)...)
}

func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(l.cleanMsg(msg), l.clean(keyvals)...)
}

func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(l.cleanMsg(msg), l.clean(keyvals)...)
}

func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(l.cleanMsg(msg), l.clean(keyvals)...)
}

// Close releases the underlying log file, if this logger owns one.
// Derived loggers (With, WithSanitizer) never own the sink.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) cleanMsg(msg string) string {
	if l.sanitize == nil {
		return msg
	}
	return l.sanitize(msg)
}

func (l *Logger) clean(keyvals []interface{}) []interface{} {
	if l.sanitize == nil {
		return keyvals
	}
	cleaned := make([]interface{}, len(keyvals))
	for i, kv := range keyvals {
		if s, ok := kv.(string); ok {
			cleaned[i] = l.sanitize(s)
		} else {
			cleaned[i] = kv
		}
	}
	return cleaned
}

// NewTestLogger returns a debug-level logger writing to a buffer, for
// asserting on log output in tests.
func NewTestLogger() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer

	logger := log.NewWithOptions(&buf, log.Options{
		ReportTimestamp: false,
		Prefix:          "test",
	})
	logger.SetLevel(log.DebugLevel)

	return &Logger{logger: logger}, &buf
}
