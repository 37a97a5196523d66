package docker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/modoterra/logtap/pkg/core"
)

// psFormat asks docker ps for one tab-separated id/name/status row per container.
const psFormat = "{{.ID}}\t{{.Names}}\t{{.Status}}"

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Provider lists running containers by shelling out to the docker CLI.
type Provider struct {
	binary string
	run    Runner
	logger *slog.Logger
}

// New creates a CLI-backed container lister.
func New(logger *slog.Logger) *Provider {
	p := &Provider{binary: "docker", logger: logger}
	p.run = p.execRun
	return p
}

// WithBinary overrides the docker executable.
func (p *Provider) WithBinary(binary string) *Provider {
	p.binary = binary
	return p
}

// WithRunner replaces command execution.
func (p *Provider) WithRunner(r Runner) *Provider {
	p.run = r
	return p
}

// List queries `docker ps` for running containers. Any failure, including a
// missing binary, is reported as core.ErrSourceQuery.
func (p *Provider) List(ctx context.Context) ([]core.Source, error) {
	out, err := p.run(ctx, p.binary, "ps", "--format", psFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: docker ps: %v", core.ErrSourceQuery, err)
	}
	return parsePS(out), nil
}

func (p *Provider) execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if stderr.Len() > 0 {
		p.logger.Warn("docker stderr", "output", strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// parsePS converts docker ps rows into sources, skipping blank lines.
func parsePS(out []byte) []core.Source {
	sources := []core.Source{}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		for len(fields) < 3 {
			fields = append(fields, "")
		}
		sources = append(sources, core.Source{
			Type:   core.KindDocker,
			ID:     fields[0],
			Name:   fields[1],
			Status: fields[2],
		})
	}
	return sources
}
