package core

import (
	"encoding/json"
	"testing"
)

func TestLogEventWireShape(t *testing.T) {
	e := LogEvent{TimestampMicros: 1700000000000000, Message: "started", Priority: 6, SourceTag: "nginx"}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"timestamp":"1700000000000000","message":"started","priority":"6","syslogIdentifier":"nginx"}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}
}

func TestLogEventOmitsEmptyIdentifier(t *testing.T) {
	data, err := json.Marshal(LogEvent{TimestampMicros: 1, Message: "x", Priority: 6})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["syslogIdentifier"]; ok {
		t.Errorf("syslogIdentifier should be omitted: %s", data)
	}
}

func TestLogEventUnmarshal(t *testing.T) {
	var e LogEvent
	err := json.Unmarshal([]byte(`{"timestamp":"42","message":"m","priority":"3","syslogIdentifier":"sshd"}`), &e)
	if err != nil {
		t.Fatal(err)
	}
	if e.TimestampMicros != 42 || e.Priority != 3 || e.SourceTag != "sshd" || e.Message != "m" {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestClampPriority(t *testing.T) {
	tests := []struct{ in, want int }{
		{-1, 0}, {0, 0}, {3, 3}, {7, 7}, {8, 7}, {100, 7},
	}
	for _, tt := range tests {
		if got := ClampPriority(tt.in); got != tt.want {
			t.Errorf("ClampPriority(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDegradedEvent(t *testing.T) {
	e := DegradedEvent("{not json")
	if e.Priority != PriorityInfo {
		t.Errorf("priority: got %d", e.Priority)
	}
	if e.Message != "{not json" {
		t.Errorf("message: got %q", e.Message)
	}
	if e.SourceTag != "" {
		t.Errorf("expected no identifier, got %q", e.SourceTag)
	}
	if e.TimestampMicros <= 0 {
		t.Errorf("expected wall-clock timestamp, got %d", e.TimestampMicros)
	}
}
