package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/modoterra/logtap/pkg/config"
	"github.com/modoterra/logtap/pkg/core"
	"github.com/modoterra/logtap/pkg/transport/uds"
)

const shutdownTimeout = 5 * time.Second

// Daemon is the logtapd process: HTTP push endpoints, the admin socket, and
// the bookkeeping that ties every stream to its follower.
type Daemon struct {
	cfg        *config.Config
	sources    *Registry
	providers  map[core.Kind]core.LogProvider
	supervisor *Supervisor
	sessions   *ActiveSessions
	router     chi.Router
	admin      *uds.Server
	version    string
	logger     *slog.Logger

	// streamCtx parents every request context so shutdown can end streams
	// that http.Server.Shutdown would otherwise wait on forever.
	streamCtx     context.Context
	cancelStreams context.CancelFunc
}

// New creates a daemon. The admin socket is disabled when cfg.AdminSocket is empty.
func New(cfg *config.Config, sources *Registry, providers []core.LogProvider, sup *Supervisor, logger *slog.Logger) *Daemon {
	streamCtx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		cfg:           cfg,
		sources:       sources,
		providers:     make(map[core.Kind]core.LogProvider, len(providers)),
		supervisor:    sup,
		sessions:      NewActiveSessions(),
		logger:        logger,
		streamCtx:     streamCtx,
		cancelStreams: cancel,
	}
	for _, p := range providers {
		d.providers[p.Kind()] = p
	}
	d.router = d.routes()
	if cfg.AdminSocket != "" {
		d.admin = uds.NewServer(cfg.AdminSocket, logger)
		d.registerAdminHandlers()
	}
	return d
}

// SetVersion sets the version reported over the admin socket.
func (d *Daemon) SetVersion(v string) { d.version = v }

// Handler returns the HTTP handler.
func (d *Daemon) Handler() http.Handler { return d.router }

// Sessions returns the active session registry.
func (d *Daemon) Sessions() *ActiveSessions { return d.sessions }

// Run listens on the configured port and serves until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context, ready func()) error {
	ln, err := net.Listen("tcp", d.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.cfg.Addr(), err)
	}
	return d.Serve(ctx, ln, ready)
}

// Serve serves HTTP on ln (and the admin socket, if configured) until ctx is
// cancelled, then shuts down: every follower is terminated before the
// listener closes. ready, if non-nil, is called once both are accepting.
func (d *Daemon) Serve(ctx context.Context, ln net.Listener, ready func()) error {
	srv := &http.Server{
		Handler:           d.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return d.streamCtx },
	}

	adminCtx, cancelAdmin := context.WithCancel(context.Background())
	defer cancelAdmin()
	if d.admin != nil {
		if err := d.admin.Listen(); err != nil {
			ln.Close()
			return err
		}
		go func() {
			if err := d.admin.Serve(adminCtx); err != nil {
				d.logger.Error("admin socket", "err", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	d.logger.Info("server listening", "addr", ln.Addr().String())
	if ready != nil {
		ready()
	}

	select {
	case err := <-errCh:
		d.closeAdmin(cancelAdmin)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	d.logger.Info("shutting down")
	n := d.sessions.TerminateAll()
	d.logger.Info("terminated log followers", "count", n)
	d.cancelStreams()

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shCtx)
	d.closeAdmin(cancelAdmin)
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (d *Daemon) closeAdmin(cancel context.CancelFunc) {
	cancel()
	if d.admin != nil {
		d.admin.Shutdown()
	}
}

// provider resolves the path parameters of a stream request. Errors are
// RequestErrors carrying the client-facing message.
func (d *Daemon) provider(kindParam, id string) (core.LogProvider, error) {
	kind, err := core.ParseKind(kindParam)
	if err != nil {
		return nil, core.Reject(core.ErrValidation, "Invalid source type")
	}
	p, ok := d.providers[kind]
	if !ok {
		return nil, core.Reject(core.ErrValidation, "Invalid source type")
	}
	if err := p.Validate(id); err != nil {
		return nil, err
	}
	return p, nil
}

func (d *Daemon) newSession(p core.LogProvider, id string, sink Sink) *Session {
	return NewSession(p, id, sink, d.supervisor, d.sessions, SessionConfig{
		Heartbeat: d.cfg.HeartbeatInterval(),
		MaxLines:  d.cfg.MaxLogLines,
	}, d.logger)
}
