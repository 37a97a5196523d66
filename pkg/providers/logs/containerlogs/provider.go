package containerlogs

import (
	"strconv"

	"github.com/modoterra/logtap/pkg/core"
)

// Provider follows container output through `docker logs`.
type Provider struct{}

// New creates a container log provider.
func New() *Provider {
	return &Provider{}
}

func (p *Provider) Kind() core.Kind { return core.KindDocker }

// Validate only requires an id. Container ids are issued by the runtime.
func (p *Provider) Validate(id string) error {
	if id == "" {
		return core.Reject(core.ErrValidation, "Container id is required")
	}
	return nil
}

// FollowCommand tails the container's combined output. The id goes after
// "--" so it can never be read as a flag.
func (p *Provider) FollowCommand(id string, maxLines int) []string {
	return []string{"docker", "logs", "-f", "--tail", strconv.Itoa(maxLines), "--", id}
}

// Normalize stamps a raw container line. Container logs carry no per-line
// metadata, so the event gets the wall clock, info priority and the short id.
func (p *Provider) Normalize(id string, line []byte) core.LogEvent {
	return core.LogEvent{
		TimestampMicros: core.NowMicros(),
		Message:         string(line),
		Priority:        core.PriorityInfo,
		SourceTag:       core.ShortID(id),
	}
}
