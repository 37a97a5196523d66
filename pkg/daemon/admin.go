package daemon

import (
	"context"

	"github.com/modoterra/logtap/pkg/transport/uds"
)

func (d *Daemon) registerAdminHandlers() {
	d.admin.Handle(uds.MethodPing, d.handlePing)
	d.admin.Handle(uds.MethodListSessions, d.handleListSessions)
	d.admin.Handle(uds.MethodListSources, d.handleListSources)
}

func (d *Daemon) handlePing(_ context.Context, _ uds.Message) (any, error) {
	return uds.PingResponse{Pong: true, Version: d.version, Sessions: d.sessions.Len()}, nil
}

func (d *Daemon) handleListSessions(_ context.Context, _ uds.Message) (any, error) {
	return d.sessions.Snapshot(), nil
}

func (d *Daemon) handleListSources(ctx context.Context, _ uds.Message) (any, error) {
	return d.sources.ListSources(ctx)
}
