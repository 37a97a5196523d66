package sse

import (
	"net/http/httptest"
	"testing"

	"github.com/modoterra/logtap/pkg/core"
)

func TestHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	if _, err := New(rec); err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"Content-Type":      "text/event-stream",
		"Cache-Control":     "no-cache",
		"Connection":        "keep-alive",
		"X-Accel-Buffering": "no",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s: got %q, want %q", k, got, v)
		}
	}
	if rec.Code != 200 {
		t.Errorf("status: %d", rec.Code)
	}
	if !rec.Flushed {
		t.Error("expected headers to be flushed")
	}
}

func TestFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := New(rec)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Send(core.LogEvent{TimestampMicros: 1700000000000000, Message: "started", Priority: 6, SourceTag: "nginx"}); err != nil {
		t.Fatal(err)
	}
	if err := w.SendError("Error reading logs"); err != nil {
		t.Fatal(err)
	}
	if err := w.Heartbeat(); err != nil {
		t.Fatal(err)
	}

	want := `data: {"timestamp":"1700000000000000","message":"started","priority":"6","syslogIdentifier":"nginx"}` + "\n\n" +
		`event: error` + "\n" + `data: {"error":"Error reading logs"}` + "\n\n" +
		":\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body:\n%q\nwant:\n%q", got, want)
	}
}

func TestMessageWithNewlinesStaysOneFrame(t *testing.T) {
	rec := httptest.NewRecorder()
	w, _ := New(rec)
	_ = w.Send(core.LogEvent{TimestampMicros: 1, Message: "a\nb", Priority: 6})
	// JSON escapes the newline, so the frame has exactly one terminator.
	want := `data: {"timestamp":"1","message":"a\nb","priority":"6"}` + "\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
