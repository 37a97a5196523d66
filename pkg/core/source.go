package core

import (
	"fmt"
	"regexp"
	"strings"
)

var daemonNameRE = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidDaemonName reports whether name is safe to hand to journalctl -u.
func ValidDaemonName(name string) bool {
	return daemonNameRE.MatchString(name)
}

// Kind identifies the runtime a log source belongs to.
type Kind string

const (
	KindSystemd Kind = "systemd"
	KindDocker  Kind = "docker"
)

// ParseKind maps a URL path segment to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSystemd, KindDocker:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: unknown source type %q", ErrValidation, s)
	}
}

// Source is a loggable entity. Sources are re-derived on every registry query.
type Source struct {
	Type   Kind   `json:"type"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// Sources is the response shape of a registry query.
type Sources struct {
	Daemons    []Source `json:"daemons"`
	Containers []Source `json:"containers"`
}

// SourceKey constructs the registry key for a source.
// Format: kind:id
func SourceKey(kind Kind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}

// ParseSourceKey splits a registry key into kind and id.
func ParseSourceKey(key string) (Kind, string, error) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid source key %q: expected kind:id", key)
	}
	return Kind(parts[0]), parts[1], nil
}

// ShortID returns the first 12 characters of a container id, the runtime's
// short-id convention.
func ShortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
