// Package logger holds the slog logger shared by every fidget package.
// By default nothing is logged; callers opt in with SetLogger.
package logger

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled reports false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Nop returns a logger that discards all output.
func Nop() *slog.Logger { return slog.New(nopHandler{}) }

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(Nop())
}

// SetLogger installs l as the logger for all fidget packages.
// Passing nil restores the silent default. Safe for concurrent use.
//
// Levels used:
//   - [slog.LevelDebug]: tape sizes, register allocation, tile statistics
//   - [slog.LevelInfo]: lifecycle events (render/mesh finished)
//   - [slog.LevelWarn]: suspicious graphs built by scripts
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = Nop()
	}
	current.Store(l)
}

// Get returns the current logger.
func Get() *slog.Logger {
	return current.Load()
}

// Or returns l when non-nil and the shared logger otherwise.
// Packages with a WithLogger option use it to resolve their logger.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Get()
}
