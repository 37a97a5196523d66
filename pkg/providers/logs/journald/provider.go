package journald

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/modoterra/logtap/pkg/core"
)

// Provider follows the journal of allow-listed systemd units.
type Provider struct {
	allowed map[string]struct{}
}

// New creates a journald log provider restricted to the given daemon names.
func New(allowed []string) *Provider {
	p := &Provider{allowed: make(map[string]struct{}, len(allowed))}
	for _, name := range allowed {
		p.allowed[name] = struct{}{}
	}
	return p
}

func (p *Provider) Kind() core.Kind { return core.KindSystemd }

// Validate checks the name format first, then the allow-list.
func (p *Provider) Validate(id string) error {
	if id == "" {
		return core.Reject(core.ErrValidation, "Daemon name is required")
	}
	if !core.ValidDaemonName(id) {
		return core.Reject(core.ErrValidation, "Invalid daemon name format")
	}
	if _, ok := p.allowed[id]; !ok {
		return core.Reject(core.ErrForbidden, "Daemon not allowed")
	}
	return nil
}

// FollowCommand tails the unit's journal as one JSON record per line.
func (p *Provider) FollowCommand(id string, maxLines int) []string {
	return []string{
		"journalctl",
		"-u", id,
		"-f",
		"-n", strconv.Itoa(maxLines),
		"-o", "json",
		"--no-pager",
	}
}

// record holds the journal fields we keep. Values stay raw because
// journalctl encodes a field as a string, null, a byte array, or an array of
// values when the field repeats.
type record struct {
	RealtimeTimestamp json.RawMessage `json:"__REALTIME_TIMESTAMP"`
	Message           json.RawMessage `json:"MESSAGE"`
	Priority          json.RawMessage `json:"PRIORITY"`
	SyslogIdentifier  json.RawMessage `json:"SYSLOG_IDENTIFIER"`
}

// Normalize parses a journal JSON record. Unparseable input becomes a
// degraded event carrying the raw line.
func (p *Provider) Normalize(_ string, line []byte) core.LogEvent {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return core.DegradedEvent(string(line))
	}
	var rec record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return core.DegradedEvent(string(line))
	}

	ev := core.LogEvent{
		TimestampMicros: core.NowMicros(),
		Message:         fieldString(rec.Message),
		Priority:        core.PriorityInfo,
		SourceTag:       fieldString(rec.SyslogIdentifier),
	}
	if ts, err := strconv.ParseInt(fieldString(rec.RealtimeTimestamp), 10, 64); err == nil && ts > 0 {
		ev.TimestampMicros = ts
	}
	if prio, err := strconv.Atoi(fieldString(rec.Priority)); err == nil {
		ev.Priority = core.ClampPriority(prio)
	}
	return ev
}

// fieldString decodes one journal field value. Repeated fields yield their
// first value.
func fieldString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var bs []byte
	var nums []int
	if err := json.Unmarshal(raw, &nums); err == nil {
		bs = make([]byte, 0, len(nums))
		for _, n := range nums {
			if n < 0 || n > 255 {
				bs = nil
				break
			}
			bs = append(bs, byte(n))
		}
		if bs != nil {
			return string(bs)
		}
	}
	var many []json.RawMessage
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return fieldString(many[0])
	}
	return ""
}
