// Package sse writes Server-Sent Events to an HTTP response.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modoterra/logtap/pkg/core"
)

// Writer frames log events, error events and keepalive comments.
type Writer struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// New sets the streaming headers, writes the 200 status and flushes so the
// client sees the stream open immediately.
func New(w http.ResponseWriter) (*Writer, error) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sw := &Writer{w: w, rc: http.NewResponseController(w)}
	if err := sw.rc.Flush(); err != nil {
		return nil, fmt.Errorf("sse flush: %w", err)
	}
	return sw, nil
}

// Send writes one data message carrying ev.
func (s *Writer) Send(ev core.LogEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.write("data: %s\n\n", data)
}

// SendError writes an "error" event that leaves the stream open.
func (s *Writer) SendError(msg string) error {
	data, err := json.Marshal(ErrorPayload{Error: msg})
	if err != nil {
		return err
	}
	return s.write("event: error\ndata: %s\n\n", data)
}

// Heartbeat writes a comment-only keepalive.
func (s *Writer) Heartbeat() error {
	return s.write(":\n\n")
}

func (s *Writer) write(format string, args ...any) error {
	if _, err := fmt.Fprintf(s.w, format, args...); err != nil {
		return err
	}
	return s.rc.Flush()
}

// ErrorPayload is the body of an error event and of rejected requests.
type ErrorPayload struct {
	Error string `json:"error"`
}
