// Package logging is the diagnostic sink shared by the proxy services.
//
// Transaction-level lines are only emitted in debug mode; Infof and Errorf
// always pass through. The sink never reports failures to callers.
package logging

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// MaxLine bounds a single transaction line, matching the fixed log buffers
// of the driver-side tooling.
const MaxLine = 0x400

// Sink accepts formatted text lines and raw buffer dumps.
type Sink interface {
	// Enabled reports whether transaction-level logging is on.
	Enabled() bool
	Printf(format string, args ...any)
	DataDump(data []byte, format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

type Logger struct {
	l     *slog.Logger
	debug bool
}

// New builds a text logger on w. debug enables transaction lines and dumps.
func New(w io.Writer, debug bool) *Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return FromSlog(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), debug)
}

func FromSlog(l *slog.Logger, debug bool) *Logger {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Logger{l: l, debug: debug}
}

// With returns a logger carrying extra structured attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l: l.l.With(args...), debug: l.debug}
}

func (l *Logger) Slog() *slog.Logger { return l.l }

func (l *Logger) Enabled() bool { return l.debug }

func (l *Logger) Printf(format string, args ...any) {
	if !l.debug {
		return
	}
	l.l.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) DataDump(data []byte, format string, args ...any) {
	if !l.debug {
		return
	}
	l.l.Debug(fmt.Sprintf(format, args...), "len", len(data), "dump", strings.TrimRight(hex.Dump(data), "\n"))
}

func (l *Logger) Infof(format string, args ...any) {
	l.l.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.l.Error(fmt.Sprintf(format, args...))
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Enabled() bool                   { return false }
func (discard) Printf(string, ...any)           {}
func (discard) DataDump([]byte, string, ...any) {}
func (discard) Infof(string, ...any)            {}
func (discard) Errorf(string, ...any)           {}
