// Package config loads logtap server settings from an optional YAML file,
// a .env file and the process environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Container lister backends.
const (
	ListerCLI = "cli"
	ListerAPI = "api"
)

// Config holds the server settings.
type Config struct {
	Version         int      `yaml:"version"               json:"version"`
	Port            int      `yaml:"port"                  json:"port"`
	HeartbeatMs     int      `yaml:"heartbeat_interval_ms" json:"heartbeat_interval_ms"`
	MaxLogLines     int      `yaml:"max_log_lines"         json:"max_log_lines"`
	AllowedDaemons  []string `yaml:"allowed_daemons"       json:"allowed_daemons"`
	ContainerLister string   `yaml:"container_lister"      json:"container_lister"` // cli|api
	AdminSocket     string   `yaml:"admin_socket"          json:"admin_socket"`
	LogLevel        string   `yaml:"log_level"             json:"log_level"`
	UnitStatus      bool     `yaml:"unit_status"           json:"unit_status"`
	Niceness        int      `yaml:"niceness"              json:"niceness"`

	FilePath string `yaml:"-" json:"-"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Version:         1,
		Port:            3000,
		HeartbeatMs:     3000,
		MaxLogLines:     1000,
		AllowedDaemons:  []string{},
		ContainerLister: ListerCLI,
		AdminSocket:     "/tmp/logtap.sock",
		LogLevel:        "info",
		Niceness:        -20,
	}
}

// HeartbeatInterval returns the keepalive period.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// IsAllowed reports whether name is in the daemon allow-list. Matching is
// exact and case-sensitive.
func (c *Config) IsAllowed(name string) bool {
	for _, d := range c.AllowedDaemons {
		if d == name {
			return true
		}
	}
	return false
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if c.AllowedDaemons == nil {
		c.AllowedDaemons = []string{}
	}
	return c, nil
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c.FilePath = path
	return c, nil
}

// Resolve builds the effective configuration: defaults, then the YAML file at
// path (if non-empty), then .env in the working directory, then the environment.
func Resolve(path string) (*Config, error) {
	c := Default()
	if path != "" {
		var err error
		if c, err = Load(path); err != nil {
			return nil, err
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables looked up with lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &c.Port},
		{"HEARTBEAT_INTERVAL", &c.HeartbeatMs},
		{"MAX_LOG_LINES", &c.MaxLogLines},
		{"LOGTAP_NICENESS", &c.Niceness},
	}
	for _, f := range ints {
		v, ok := lookup(f.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = n
	}

	if v, ok := lookup("ALLOWED_DAEMONS"); ok {
		c.AllowedDaemons = ParseDaemonList(v)
	}
	if v, ok := lookup("LOGTAP_CONTAINER_LISTER"); ok && v != "" {
		c.ContainerLister = strings.TrimSpace(v)
	}
	if v, ok := lookup("LOGTAP_ADMIN_SOCKET"); ok && v != "" {
		c.AdminSocket = v
	}
	if v, ok := lookup("LOGTAP_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup("LOGTAP_UNIT_STATUS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOGTAP_UNIT_STATUS: %w", err)
		}
		c.UnitStatus = b
	}
	return nil
}

// ParseDaemonList splits a comma-separated allow-list, trimming whitespace
// and dropping empty entries.
func ParseDaemonList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if d := strings.TrimSpace(part); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Environ renders c as the environment variables ApplyEnv reads, for
// carrying the effective configuration into a service unit.
func (c *Config) Environ() map[string]string {
	env := map[string]string{
		"PORT":                    strconv.Itoa(c.Port),
		"HEARTBEAT_INTERVAL":      strconv.Itoa(c.HeartbeatMs),
		"MAX_LOG_LINES":           strconv.Itoa(c.MaxLogLines),
		"LOGTAP_NICENESS":         strconv.Itoa(c.Niceness),
		"ALLOWED_DAEMONS":         strings.Join(c.AllowedDaemons, ","),
		"LOGTAP_CONTAINER_LISTER": c.ContainerLister,
		"LOGTAP_LOG_LEVEL":        c.LogLevel,
		"LOGTAP_UNIT_STATUS":      strconv.FormatBool(c.UnitStatus),
	}
	if c.AdminSocket != "" {
		env["LOGTAP_ADMIN_SOCKET"] = c.AdminSocket
	}
	return env
}
