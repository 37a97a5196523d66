package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/modoterra/logtap/pkg/config"
	"github.com/modoterra/logtap/pkg/core"
	"github.com/modoterra/logtap/pkg/providers/logs/containerlogs"
	"github.com/modoterra/logtap/pkg/providers/logs/journald"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scripted keeps a real provider's validation and normalization but runs
// argv instead of journalctl or docker.
type scripted struct {
	core.LogProvider
	argv    []string
	follows atomic.Int32
}

func (s *scripted) FollowCommand(string, int) []string {
	s.follows.Add(1)
	return s.argv
}

func journal(allowed []string, argv ...string) *scripted {
	return &scripted{LogProvider: journald.New(allowed), argv: argv}
}

func containers(argv ...string) *scripted {
	return &scripted{LogProvider: containerlogs.New(), argv: argv}
}

// recordingSink captures everything a session writes.
type recordingSink struct {
	mu         sync.Mutex
	events     []core.LogEvent
	errors     []string
	heartbeats int
	failSend   bool
}

func (r *recordingSink) Send(ev core.LogEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSend {
		return errors.New("client gone")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) SendError(msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
	return nil
}

func (r *recordingSink) Heartbeat() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heartbeats++
	return nil
}

func (r *recordingSink) snapshot() ([]core.LogEvent, []string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.LogEvent(nil), r.events...), append([]string(nil), r.errors...), r.heartbeats
}

func testSessionConfig() SessionConfig {
	return SessionConfig{Heartbeat: time.Hour, MaxLines: 10}
}

func testConfig() *config.Config {
	c := config.Default()
	c.AdminSocket = ""
	c.AllowedDaemons = []string{"nginx"}
	c.HeartbeatMs = 20
	return c
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// processGone reports whether pid no longer exists.
func processGone(pid int) bool {
	return errors.Is(syscall.Kill(pid, 0), syscall.ESRCH)
}

// runAsync runs s in the background and returns a channel with its result.
func runAsync(ctx context.Context, s *Session) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- s.Run(ctx) }()
	return ch
}

// staticLister is a SourceLister with a fixed answer.
type staticLister struct {
	sources []core.Source
	err     error
}

func (l staticLister) List(context.Context) ([]core.Source, error) {
	return l.sources, l.err
}
