package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Syslog severities at the ends of the scale plus the default.
const (
	PriorityEmergency = 0
	PriorityInfo      = 6
	PriorityDebug     = 7
)

// LogEvent is the canonical record produced for every framed line.
type LogEvent struct {
	TimestampMicros int64
	Message         string
	Priority        int
	SourceTag       string
}

// wireEvent is the JSON shape the browser client consumes. Timestamp and
// priority travel as strings, the way journalctl emits them.
type wireEvent struct {
	Timestamp        string `json:"timestamp"`
	Message          string `json:"message"`
	Priority         string `json:"priority"`
	SyslogIdentifier string `json:"syslogIdentifier,omitempty"`
}

func (e LogEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		Timestamp:        strconv.FormatInt(e.TimestampMicros, 10),
		Message:          e.Message,
		Priority:         strconv.Itoa(e.Priority),
		SyslogIdentifier: e.SourceTag,
	})
}

func (e *LogEvent) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := strconv.ParseInt(w.Timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", w.Timestamp, err)
	}
	prio, err := strconv.Atoi(w.Priority)
	if err != nil {
		return fmt.Errorf("priority %q: %w", w.Priority, err)
	}
	*e = LogEvent{TimestampMicros: ts, Message: w.Message, Priority: prio, SourceTag: w.SyslogIdentifier}
	return nil
}

// NowMicros returns the wall clock in microseconds since the epoch.
func NowMicros() int64 {
	return time.Now().UnixMicro()
}

// ClampPriority forces p onto the syslog 0..7 scale.
func ClampPriority(p int) int {
	switch {
	case p < PriorityEmergency:
		return PriorityEmergency
	case p > PriorityDebug:
		return PriorityDebug
	default:
		return p
	}
}

// DegradedEvent wraps a line that could not be parsed.
func DegradedEvent(line string) LogEvent {
	return LogEvent{
		TimestampMicros: NowMicros(),
		Message:         line,
		Priority:        PriorityInfo,
	}
}
