package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/modoterra/logtap/pkg/core"
)

// Client-facing messages for in-stream errors.
const (
	msgSpawnFailed = "Failed to start log streaming"
	msgReadError   = "Error reading logs"
	msgFollowerErr = "Log streaming failed"
)

// Sink is the push channel a session writes to. Implementations are not
// required to be safe for concurrent use; a session writes from one goroutine.
type Sink interface {
	Send(ev core.LogEvent) error
	SendError(msg string) error
	Heartbeat() error
}

// State is a session lifecycle state.
type State int32

const (
	StateInitializing State = iota
	StateStreaming
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateStreaming:
		return "streaming"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// SessionConfig carries the per-stream settings.
type SessionConfig struct {
	Heartbeat time.Duration
	MaxLines  int
}

// Session binds one client connection to one source.
type Session struct {
	ID       string
	Kind     core.Kind
	SourceID string

	provider   core.LogProvider
	supervisor *Supervisor
	active     *ActiveSessions
	sink       Sink
	cfg        SessionConfig
	logger     *slog.Logger

	framer   LineFramer
	state    atomic.Int32
	termOnce sync.Once

	mu     sync.Mutex // guards proc and ticker
	proc   *Process
	ticker *time.Ticker
}

// NewSession creates a session in the Initializing state.
func NewSession(provider core.LogProvider, sourceID string, sink Sink, sup *Supervisor, active *ActiveSessions, cfg SessionConfig, logger *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:         id,
		Kind:       provider.Kind(),
		SourceID:   sourceID,
		provider:   provider,
		supervisor: sup,
		active:     active,
		sink:       sink,
		cfg:        cfg,
		logger:     logger.With("session", id, "source", core.SourceKey(provider.Kind(), sourceID)),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Key returns the session's source key.
func (s *Session) Key() string { return core.SourceKey(s.Kind, s.SourceID) }

// Run validates the request, spawns the follower and streams until the
// client goes away (ctx is cancelled), the follower exits or fails, or a
// write to the sink fails. Validation errors are returned before anything
// is spawned or written.
func (s *Session) Run(ctx context.Context) error {
	if err := s.provider.Validate(s.SourceID); err != nil {
		s.state.Store(int32(StateTerminated))
		return err
	}

	argv := s.provider.FollowCommand(s.SourceID, s.cfg.MaxLines)
	proc, err := s.supervisor.Spawn(ctx, argv)
	if err != nil {
		s.logger.Error("spawn follower", "argv", argv, "err", err)
		_ = s.sink.SendError(msgSpawnFailed)
		s.Terminate("spawn failed")
		return err
	}

	s.mu.Lock()
	if s.State() == StateTerminated {
		s.mu.Unlock()
		proc.Terminate()
		return nil
	}
	s.proc = proc
	s.active.Add(s.Key(), s.ID, proc)
	ticker := time.NewTicker(s.cfg.Heartbeat)
	s.ticker = ticker
	s.state.Store(int32(StateStreaming))
	s.mu.Unlock()
	s.logger.Info("stream opened", "pid", proc.Pid())

	reason, err := s.stream(ctx, proc, ticker.C)
	if n := s.framer.Pending(); n > 0 {
		s.logger.Debug("discarding partial line", "bytes", n)
	}
	s.framer.Reset()
	s.Terminate(reason)
	return err
}

func (s *Session) stream(ctx context.Context, proc *Process, heartbeat <-chan time.Time) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "client disconnected", nil

		case <-heartbeat:
			if err := s.sink.Heartbeat(); err != nil {
				return "heartbeat write failed", err
			}

		case ev, ok := <-proc.Events():
			if !ok {
				return "follower terminated", nil
			}
			switch ev.Type {
			case EventData:
				for _, line := range s.framer.Feed(ev.Data) {
					if err := s.sink.Send(s.provider.Normalize(s.SourceID, line)); err != nil {
						return "event write failed", err
					}
				}
			case EventStderr:
				s.logger.Warn("follower stderr", "output", strings.TrimSpace(string(ev.Data)))
				if err := s.sink.SendError(msgReadError); err != nil {
					return "error write failed", err
				}
			case EventExit:
				s.logger.Info("follower exited", "code", ev.Code)
				return "follower exited", fmt.Errorf("%w: code %d", core.ErrProcessExit, ev.Code)
			case EventError:
				s.logger.Error("follower failed", "err", ev.Err)
				_ = s.sink.SendError(msgFollowerErr)
				return "follower failed", fmt.Errorf("%w: %v", core.ErrSpawn, ev.Err)
			}
		}
	}
}

// Terminate tears the session down: stops the heartbeat, signals the
// follower and removes the registry entry. Only the first call has effect;
// it may come from any goroutine.
func (s *Session) Terminate(reason string) {
	s.termOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.ticker != nil {
			s.ticker.Stop()
		}
		if s.proc != nil {
			s.proc.Terminate()
			s.active.Remove(s.Key(), s.ID)
		}
		s.state.Store(int32(StateTerminated))
		s.logger.Info("stream closed", "reason", reason)
	})
}

// isExpectedEnd reports whether err is a normal way for a stream to finish.
func isExpectedEnd(err error) bool {
	return err == nil || errors.Is(err, core.ErrProcessExit) || errors.Is(err, context.Canceled)
}
