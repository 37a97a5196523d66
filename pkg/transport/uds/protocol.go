package uds

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

var reqCounter atomic.Uint64

// MsgType identifies the kind of message.
type MsgType string

const (
	MsgTypeReq MsgType = "req"
	MsgTypeRes MsgType = "res"
)

// Message is the NDJSON envelope for admin socket traffic.
type Message struct {
	Type   MsgType         `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// NewRequest creates a request message with a unique ID.
func NewRequest(method string, data any) (Message, error) {
	raw, err := encode(data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Type:   MsgTypeReq,
		ID:     fmt.Sprintf("req-%d", reqCounter.Add(1)),
		Method: method,
		Data:   raw,
	}, nil
}

// NewResponse creates a response to a request.
func NewResponse(reqID, method string, data any) (Message, error) {
	raw, err := encode(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: MsgTypeRes, ID: reqID, Method: method, Data: raw}, nil
}

// NewErrorResponse creates an error response.
func NewErrorResponse(reqID, method, errMsg string) Message {
	return Message{Type: MsgTypeRes, ID: reqID, Method: method, Error: errMsg}
}

func encode(data any) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Methods
const (
	MethodPing         = "Ping"
	MethodListSessions = "ListSessions"
	MethodListSources  = "ListSources"
)

// PingResponse is the response to a Ping request.
type PingResponse struct {
	Pong     bool   `json:"pong"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}

// SessionInfo describes one active stream.
type SessionInfo struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	SourceID  string `json:"source_id"`
	PID       int    `json:"pid"`
	StartedAt string `json:"started_at"`
	UptimeSec uint64 `json:"uptime_sec"`
	RSSBytes  uint64 `json:"rss_bytes,omitempty"`
}
