// Package log provides the structured logger used across packrat.
package log

import (
	"io"
	"sync"
)

const (
	// LogFormatPlain is a format for colorless text.
	LogFormatPlain = "plain"
	// LogFormatText is a format for colored text.
	LogFormatText = "text"
	// LogFormatJSON is a format for json output.
	LogFormatJSON = "json"

	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelError = "error"
)

// Logger is what any packrat component should take.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})

	With(keyvals ...interface{}) Logger
}

// NewSyncWriter returns a writer that serializes writes to w. Sessions
// running in separate goroutines may share one logger through it.
func NewSyncWriter(w io.Writer) io.Writer {
	return &syncWriter{w: w}
}

type syncWriter struct {
	mtx sync.Mutex
	w   io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.w.Write(p)
}
