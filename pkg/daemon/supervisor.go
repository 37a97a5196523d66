package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/modoterra/logtap/pkg/core"
)

// EventType identifies a notification from a follower process.
type EventType int

const (
	// EventData carries a chunk of stdout.
	EventData EventType = iota
	// EventStderr carries a chunk of stderr.
	EventStderr
	// EventExit is terminal: the process exited with Code.
	EventExit
	// EventError is terminal: the process failed at the OS level.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventData:
		return "data"
	case EventStderr:
		return "stderr"
	case EventExit:
		return "exit"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one notification from a follower process. A process emits any
// number of data/stderr events, then at most one exit or error event, then
// closes its channel.
type Event struct {
	Type EventType
	Data []byte
	Code int
	Err  error
}

const (
	readChunkSize = 32 * 1024
	eventBuffer   = 64
	// waitDelay bounds how long a terminated follower may hold its pipes.
	waitDelay = 5 * time.Second
)

// Process is a running log follower.
type Process struct {
	Argv      []string
	StartedAt time.Time

	cmd      *exec.Cmd
	pid      int
	events   chan Event
	done     chan struct{}
	termOnce sync.Once
	exited   atomic.Bool
	logger   *slog.Logger
}

// Pid returns the OS process id.
func (p *Process) Pid() int { return p.pid }

// Events returns the process notification channel.
func (p *Process) Events() <-chan Event { return p.events }

// Exited reports whether the process has been reaped.
func (p *Process) Exited() bool { return p.exited.Load() }

// Terminate sends SIGTERM to the follower's process group. It is safe to
// call any number of times, before or after the process exits.
func (p *Process) Terminate() {
	p.termOnce.Do(func() {
		close(p.done)
		if err := p.signal(syscall.SIGTERM); err != nil {
			p.logger.Debug("terminate follower", "pid", p.pid, "err", err)
		}
	})
}

func (p *Process) signal(sig syscall.Signal) error {
	if p.exited.Load() {
		return os.ErrProcessDone
	}
	err := syscall.Kill(-p.pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

// Supervisor spawns log follower processes.
type Supervisor struct {
	niceness int
	logger   *slog.Logger
}

// NewSupervisor creates a supervisor that renices children to niceness.
func NewSupervisor(niceness int, logger *slog.Logger) *Supervisor {
	return &Supervisor{niceness: niceness, logger: logger}
}

// Spawn starts argv in its own process group. Cancelling ctx terminates it.
// Start failures are returned wrapped in core.ErrSpawn.
func (s *Supervisor) Spawn(ctx context.Context, argv []string) (*Process, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty command", core.ErrSpawn)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = waitDelay

	p := &Process{
		Argv:   argv,
		cmd:    cmd,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		logger: s.logger,
	}
	cmd.Cancel = func() error {
		p.Terminate()
		return nil
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", core.ErrSpawn, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %v", core.ErrSpawn, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", core.ErrSpawn, argv[0], err)
	}

	p.pid = cmd.Process.Pid
	p.StartedAt = time.Now()
	s.renice(p.pid)
	s.logger.Debug("follower started", "pid", p.pid, "argv", argv)

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		p.pump(stdout, EventData)
	}()
	go func() {
		defer readers.Done()
		p.pump(stderr, EventStderr)
	}()
	go p.wait(&readers)

	return p, nil
}

// renice raises the child's scheduling priority. It needs CAP_SYS_NICE for
// negative values, so failure is expected and ignored.
func (s *Supervisor) renice(pid int) {
	if err := unix.Setpriority(unix.PRIO_PROCESS, pid, s.niceness); err != nil {
		s.logger.Debug("renice follower", "pid", pid, "niceness", s.niceness, "err", err)
	}
}

// pump forwards chunks from r until EOF.
func (p *Process) pump(r io.Reader, typ EventType) {
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !p.emit(Event{Type: typ, Data: chunk}) {
				// Nobody is listening any more; drain so the child never
				// blocks on a full pipe before it sees SIGTERM.
				_, _ = io.Copy(io.Discard, r)
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// wait reaps the process once both pipes are drained, then emits the single
// terminal event and closes the channel.
func (p *Process) wait(readers *sync.WaitGroup) {
	readers.Wait()
	err := p.cmd.Wait()
	p.exited.Store(true)

	var ev Event
	switch state := p.cmd.ProcessState; {
	case state != nil:
		ev = Event{Type: EventExit, Code: state.ExitCode(), Err: err}
	default:
		ev = Event{Type: EventError, Err: err}
	}
	p.emit(ev)
	close(p.events)
}

// emit delivers ev unless the process has been terminated.
func (p *Process) emit(ev Event) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.events <- ev:
		return true
	case <-p.done:
		return false
	}
}
