package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// pxHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<runID>\t<message>\t<key=value ...>
type pxHandler struct {
	w     io.Writer
	runID string
	level slog.Level
	attrs []slog.Attr
}

func (h *pxHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *pxHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")

	_, err := fmt.Fprintf(h.w, "%s\t%s\t%s\t%s", ts, r.Level.String(), h.runID, r.Message)
	if err != nil {
		return err
	}

	for _, a := range h.attrs {
		fmt.Fprintf(h.w, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.w, "\t%s=%v", a.Key, a.Value)
		return true
	})

	_, err = fmt.Fprintln(h.w)
	return err
}

func (h *pxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &pxHandler{
		w:     h.w,
		runID: h.runID,
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *pxHandler) WithGroup(string) slog.Handler { return h }

// newLogger creates a structured logger that writes to a rotating
// logDir/px.log and to stderr. The returned closer flushes the rotating file.
func newLogger(logDir, runID string, verbose bool) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "px.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 5,
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	w := io.MultiWriter(rotator, os.Stderr)
	handler := &pxHandler{w: w, runID: runID, level: level}
	return slog.New(handler), rotator, nil
}

// slogAdapter wraps *slog.Logger to satisfy the px.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
