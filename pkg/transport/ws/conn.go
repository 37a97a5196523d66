// Package ws streams log events over a WebSocket connection.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/modoterra/logtap/pkg/core"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The page is served from anywhere the operator mounts it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Frame is one message sent to the client.
type Frame struct {
	Type  string         `json:"type"` // "log" or "error"
	Data  *core.LogEvent `json:"data,omitempty"`
	Error string         `json:"error,omitempty"`
}

// Conn is a write-mostly WebSocket. A read pump runs only to notice the
// client closing the connection.
type Conn struct {
	conn      *websocket.Conn
	closed    chan struct{}
	closeOnce sync.Once
}

// Upgrade switches the request to the WebSocket protocol and starts the
// read pump. On failure the upgrader has already replied to the client.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	wc, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	c := &Conn{conn: wc, closed: make(chan struct{})}
	go c.readPump()
	return c, nil
}

// Closed is closed once the client disconnects or Close is called.
func (c *Conn) Closed() <-chan struct{} { return c.closed }

// Send writes a log frame.
func (c *Conn) Send(ev core.LogEvent) error {
	return c.writeJSON(Frame{Type: "log", Data: &ev})
}

// SendError writes an error frame.
func (c *Conn) SendError(msg string) error {
	return c.writeJSON(Frame{Type: "error", Error: msg})
}

// Heartbeat sends a ping control frame.
func (c *Conn) Heartbeat() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close sends a normal closure and releases the connection.
func (c *Conn) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.markClosed()
	return c.conn.Close()
}

func (c *Conn) writeJSON(v any) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *Conn) readPump() {
	defer c.markClosed()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Conn) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}
