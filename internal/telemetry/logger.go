package telemetry

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	clog "github.com/charmbracelet/log"
)

// JSONLogger writes one JSON object per event. An empty path discards
// everything.
type JSONLogger struct {
	log *clog.Logger
	w   io.WriteCloser
}

func NewJSONLogger(path string, debug bool) (*JSONLogger, error) {
	var w io.WriteCloser = nopCloser{Writer: io.Discard}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		w = f
	}
	return newLogger(w, debug), nil
}

// NewWriterLogger logs to w without taking ownership of it.
func NewWriterLogger(w io.Writer, debug bool) *JSONLogger {
	return newLogger(nopCloser{Writer: w}, debug)
}

func newLogger(w io.WriteCloser, debug bool) *JSONLogger {
	level := clog.InfoLevel
	if debug {
		level = clog.DebugLevel
	}
	l := clog.NewWithOptions(w, clog.Options{
		Formatter:       clog.JSONFormatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339Nano,
		TimeFunction:    func(t time.Time) time.Time { return t.UTC() },
		Level:           level,
	})
	return &JSONLogger{log: l, w: w}
}

func (l *JSONLogger) Debug(msg string, fields map[string]any) {
	if l == nil {
		return
	}
	l.log.Debug(msg, keyvals(fields)...)
}

func (l *JSONLogger) Info(msg string, fields map[string]any) {
	if l == nil {
		return
	}
	l.log.Info(msg, keyvals(fields)...)
}

func (l *JSONLogger) Error(msg string, fields map[string]any) {
	if l == nil {
		return
	}
	l.log.Error(msg, keyvals(fields)...)
}

func (l *JSONLogger) Close() error {
	if l == nil || l.w == nil {
		return nil
	}
	return l.w.Close()
}

func keyvals(fields map[string]any) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
