// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-ovpnpki.
//
// go-ovpnpki is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package logging provides the structured logger shared by the CLI and the
// reconcilers, with an optional audit trail written to the system log.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	glogger "github.com/google/logger"
)

// Options configures a Logger.
type Options struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string

	// Format is text or json. Defaults to text.
	Format string

	// Writer receives structured log lines. Defaults to os.Stderr.
	Writer io.Writer

	// Syslog mirrors audit records (commands run, reconciliation results)
	// to the system log.
	Syslog bool

	// Tag is the syslog program name. Defaults to ovpnpki.
	Tag string
}

// Logger provides logging functionality for PKI operations
type Logger struct {
	logger *slog.Logger
	debug  bool
	audit  *glogger.Logger
}

// New creates a Logger from opts.
func New(opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := ParseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	l := &Logger{
		logger: slog.New(handler),
		debug:  level <= slog.LevelDebug,
	}

	if opts.Syslog {
		tag := opts.Tag
		if tag == "" {
			tag = "ovpnpki"
		}
		l.audit = glogger.Init(tag, false, true, io.Discard)
	}

	return l
}

// NewLogger creates a text logger on stderr at info or debug level.
func NewLogger(debug bool) *Logger {
	level := "info"
	if debug {
		level = "debug"
	}
	return New(Options{Level: level})
}

// DefaultLogger returns a default logger instance with debug=false
func DefaultLogger() *Logger {
	return NewLogger(false)
}

// Discard returns a Logger that drops everything. Useful in tests.
func Discard() *Logger {
	return New(Options{Writer: io.Discard})
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

// With returns a Logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		logger: l.logger.With(args...),
		debug:  l.debug,
		audit:  l.audit,
	}
}

// Slog exposes the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// Info logs an informational message
func (l *Logger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Infof logs a formatted informational message
func (l *Logger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	if l.debug {
		l.logger.Debug(msg, args...)
	}
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...any) {
	if l.debug {
		l.logger.Debug(fmt.Sprintf(format, args...))
	}
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

// Error logs an error
func (l *Logger) Error(err error, args ...any) {
	l.logger.Error(err.Error(), args...)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

// MaybeError logs an error if it's not nil
func (l *Logger) MaybeError(err error) {
	if err != nil {
		l.logger.Error(err.Error())
	}
}

// Audit records an operator-relevant event: a command that was run or the
// result of a reconciliation. It is logged at info level and, when syslog is
// enabled, mirrored to the system log. Failures go to syslog as warnings
// because the error channel of the system logger also writes to stderr.
func (l *Logger) Audit(failed bool, msg string, args ...any) {
	if failed {
		l.logger.Warn(msg, args...)
	} else {
		l.logger.Info(msg, args...)
	}

	if l.audit == nil {
		return
	}
	line := formatAudit(msg, args...)
	if failed {
		l.audit.Warning(line)
	} else {
		l.audit.Info(line)
	}
}

// Close flushes and closes the system log connection, if any.
func (l *Logger) Close() {
	if l.audit != nil {
		l.audit.Close()
	}
}

// formatAudit renders msg and slog-style key/value pairs on one line.
func formatAudit(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%q", args[i], fmt.Sprint(args[i+1]))
	}
	if len(args)%2 == 1 {
		fmt.Fprintf(&b, " %v", args[len(args)-1])
	}
	return b.String()
}
