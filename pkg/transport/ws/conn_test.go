package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/modoterra/logtap/pkg/core"
)

func TestFramesAndClose(t *testing.T) {
	serverDone := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(serverDone)
		c, err := Upgrade(w, r)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()
		_ = c.Send(core.LogEvent{TimestampMicros: 5, Message: "hi", Priority: 3, SourceTag: "web"})
		_ = c.SendError("Error reading logs")
		select {
		case <-c.Closed():
		case <-time.After(2 * time.Second):
			t.Error("client close not observed")
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	var f Frame
	if err := client.ReadJSON(&f); err != nil {
		t.Fatal(err)
	}
	if f.Type != "log" || f.Data == nil || f.Data.Message != "hi" || f.Data.Priority != 3 {
		t.Errorf("unexpected log frame: %+v", f)
	}
	if err := client.ReadJSON(&f); err != nil {
		t.Fatal(err)
	}
	if f.Type != "error" || f.Error != "Error reading logs" {
		t.Errorf("unexpected error frame: %+v", f)
	}

	client.Close()
	select {
	case <-serverDone:
	case <-time.After(3 * time.Second):
		t.Fatal("server handler did not finish")
	}
}
