package systemd

import (
	"context"
	"log/slog"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/modoterra/logtap/pkg/core"
)

// Provider lists the configured daemon allow-list as systemd sources.
type Provider struct {
	units      []string // daemon names from configuration
	unitStatus bool
	logger     *slog.Logger
}

// New creates a provider for the given daemon names. When unitStatus is set,
// List decorates each daemon with its unit state queried over D-Bus.
func New(units []string, unitStatus bool, logger *slog.Logger) *Provider {
	return &Provider{units: units, unitStatus: unitStatus, logger: logger}
}

// List renders the allow-list verbatim. It never fails: unit state is a
// decoration and a D-Bus outage leaves it empty.
func (p *Provider) List(ctx context.Context) ([]core.Source, error) {
	sources := make([]core.Source, 0, len(p.units))
	for _, name := range p.units {
		sources = append(sources, core.Source{
			Type: core.KindSystemd,
			ID:   name,
			Name: name,
		})
	}
	if p.unitStatus && len(sources) > 0 {
		p.decorate(ctx, sources)
	}
	return sources, nil
}

func (p *Provider) decorate(ctx context.Context, sources []core.Source) {
	conn, err := dbus.NewWithContext(ctx)
	if err != nil {
		p.logger.Warn("dbus connect", "err", err)
		return
	}
	defer conn.Close()

	names := make([]string, len(p.units))
	for i, u := range p.units {
		names[i] = u + ".service"
	}
	units, err := conn.ListUnitsByNamesContext(ctx, names)
	if err != nil {
		p.logger.Warn("list units", "err", err)
		return
	}

	states := make(map[string]string, len(units))
	for _, u := range units {
		states[u.Name] = mapStatus(u.ActiveState, u.SubState)
	}
	for i := range sources {
		sources[i].Status = states[sources[i].ID+".service"]
	}
}

func mapStatus(active, sub string) string {
	switch {
	case active == "active" && sub != "":
		return "active (" + sub + ")"
	case active == "":
		return ""
	default:
		return active
	}
}
