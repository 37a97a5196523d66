package config

import (
	"fmt"

	"github.com/modoterra/logtap/pkg/core"
)

// Validate checks the configuration for correctness.
func Validate(c *Config) []error {
	var errs []error

	if c.Version != 0 && c.Version != 1 {
		errs = append(errs, fmt.Errorf("version must be 1, got %d", c.Version))
	}

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be in 1..65535, got %d", c.Port))
	}
	if c.HeartbeatMs <= 0 {
		errs = append(errs, fmt.Errorf("heartbeat interval must be positive, got %dms", c.HeartbeatMs))
	}
	if c.MaxLogLines <= 0 {
		errs = append(errs, fmt.Errorf("max log lines must be positive, got %d", c.MaxLogLines))
	}
	if c.Niceness < -20 || c.Niceness > 19 {
		errs = append(errs, fmt.Errorf("niceness must be in -20..19, got %d", c.Niceness))
	}

	for _, d := range c.AllowedDaemons {
		if !core.ValidDaemonName(d) {
			errs = append(errs, fmt.Errorf("allowed daemon %q: name must match [a-zA-Z0-9_-]+", d))
		}
	}

	switch c.ContainerLister {
	case ListerCLI, ListerAPI:
	default:
		errs = append(errs, fmt.Errorf("container lister must be cli or api; got %q", c.ContainerLister))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log level must be debug, info, warn, or error; got %q", c.LogLevel))
	}

	return errs
}
