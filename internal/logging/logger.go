// Package logging centralises the warehouse-app logging helpers and adapters.
package logging

import (
	"io"
	"log"
	"net/http"
	"net/http/httputil"
	"os"
	"sync"
)

// Logger represents the minimal logging interface used across the project.
type Logger interface {
	Printf(format string, v ...any)
}

type stdLogger struct {
	base *log.Logger
}

type newlineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

var (
	defaultWriter   io.Writer = os.Stdout
	defaultWriterMu sync.RWMutex
)

// New returns a Logger that writes to stdout using Go's default date/time flags.
func New() Logger {
	return NewWithWriter(getDefaultWriter())
}

// NewWithWriter builds a Logger that writes to the provided io.Writer and
// ensures there is always a blank line before each timestamped entry.
func NewWithWriter(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	adapter := &newlineWriter{w: w}
	return &stdLogger{base: log.New(adapter, "", log.LstdFlags)}
}

// SetDefaultWriter overrides the writer used by New().
func SetDefaultWriter(w io.Writer) {
	defaultWriterMu.Lock()
	defer defaultWriterMu.Unlock()
	if w == nil {
		defaultWriter = os.Stdout
		return
	}
	defaultWriter = w
}

func getDefaultWriter() io.Writer {
	defaultWriterMu.RLock()
	defer defaultWriterMu.RUnlock()
	return defaultWriter
}

// AsStdLogger returns the underlying *log.Logger when available so packages
// like net/http can keep using their native logger type.
func AsStdLogger(logger Logger) *log.Logger {
	if std, ok := logger.(*stdLogger); ok {
		return std.base
	}
	return nil
}

func (l *stdLogger) Printf(format string, v ...any) {
	if l == nil || l.base == nil {
		return
	}
	l.base.Printf(format, v...)
}

func (w *newlineWriter) Write(p []byte) (int, error) {
	if w == nil || w.w == nil {
		return len(p), nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.Write([]byte("\n")); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := w.w.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// DumpOutboundRequest logs the full outgoing request. Body is omitted for
// multipart uploads so photo bytes never land in the log file.
func DumpOutboundRequest(logger Logger, req *http.Request, label string, withBody bool) {
	if logger == nil || req == nil {
		return
	}
	dump, err := httputil.DumpRequestOut(req, withBody)
	if err != nil {
		logger.Printf("failed to dump %s request: %v", label, err)
		return
	}
	logger.Printf("Outbound %s request:\n%s", label, dump)
}

// DumpInboundResponse logs the response to an outbound call.
func DumpInboundResponse(logger Logger, resp *http.Response, label string) {
	if logger == nil || resp == nil {
		return
	}
	dump, err := httputil.DumpResponse(resp, true)
	if err != nil {
		logger.Printf("failed to dump %s response: %v", label, err)
		return
	}
	logger.Printf("Inbound %s response:\n%s", label, dump)
}
