package docker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/modoterra/logtap/pkg/core"
)

// APIProvider lists running containers through the Docker Engine API.
type APIProvider struct {
	client *client.Client
	logger *slog.Logger
}

// NewAPI connects using the standard DOCKER_HOST environment.
func NewAPI(logger *slog.Logger) (*APIProvider, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &APIProvider{client: cli, logger: logger}, nil
}

// List returns running containers. API errors are reported as core.ErrSourceQuery.
func (p *APIProvider) List(ctx context.Context) ([]core.Source, error) {
	containers, err := p.client.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: container list: %v", core.ErrSourceQuery, err)
	}
	sources := make([]core.Source, 0, len(containers))
	for _, c := range containers {
		sources = append(sources, fromSummary(c))
	}
	return sources, nil
}

// Close releases the API client.
func (p *APIProvider) Close() error {
	return p.client.Close()
}

// fromSummary maps an API container to a source using the same short id and
// name conventions as `docker ps`.
func fromSummary(c container.Summary) core.Source {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	return core.Source{
		Type:   core.KindDocker,
		ID:     core.ShortID(c.ID),
		Name:   name,
		Status: c.Status,
	}
}
