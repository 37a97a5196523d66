package daemon

import (
	"context"
	"fmt"

	"github.com/modoterra/logtap/pkg/core"
)

// Registry enumerates the sources a client may stream.
type Registry struct {
	daemons    core.SourceLister
	containers core.SourceLister
}

// NewRegistry combines a daemon lister and a container lister.
func NewRegistry(daemons, containers core.SourceLister) *Registry {
	return &Registry{daemons: daemons, containers: containers}
}

// ListSources queries both listers. A container query failure fails the
// whole call; no partial daemon list is returned.
func (r *Registry) ListSources(ctx context.Context) (core.Sources, error) {
	containers, err := r.containers.List(ctx)
	if err != nil {
		return core.Sources{}, fmt.Errorf("list containers: %w", err)
	}
	daemons, err := r.daemons.List(ctx)
	if err != nil {
		return core.Sources{}, fmt.Errorf("list daemons: %w", err)
	}
	if daemons == nil {
		daemons = []core.Source{}
	}
	if containers == nil {
		containers = []core.Source{}
	}
	return core.Sources{Daemons: daemons, Containers: containers}, nil
}
