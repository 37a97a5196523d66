// Package service installs logtapd as a systemd unit.
package service

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

const unitName = "logtapd.service"

// Scope selects the systemd instance the unit is installed into. Following
// journald units of other users usually needs the system instance.
type Scope int

const (
	ScopeUser Scope = iota
	ScopeSystem
)

// UnitContents returns the unit file for binaryPath. env becomes sorted
// Environment= lines so the server keeps its allow-list and port.
func UnitContents(binaryPath string, env map[string]string) string {
	var b strings.Builder
	b.WriteString(`[Unit]
Description=logtap log streaming server
After=network.target docker.service

[Service]
Type=notify
`)
	fmt.Fprintf(&b, "ExecStart=%s\n", binaryPath)

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "Environment=%q\n", k+"="+env[k])
	}

	b.WriteString(`Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`)
	return b.String()
}

// UnitPath returns where the unit file lives for scope.
func UnitPath(scope Scope) (string, error) {
	if scope == ScopeSystem {
		return filepath.Join("/etc/systemd/system", unitName), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	return filepath.Join(configDir, "systemd", "user", unitName), nil
}

// Install writes the unit file, reloads systemd, and enables+starts the service.
func Install(scope Scope, env map[string]string) error {
	binaryPath, err := exec.LookPath("logtapd")
	if err != nil {
		return fmt.Errorf("logtapd not found in PATH: %w", err)
	}
	binaryPath, err = filepath.Abs(binaryPath)
	if err != nil {
		return fmt.Errorf("cannot resolve logtapd path: %w", err)
	}

	unitPath, err := UnitPath(scope)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(unitPath), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	if err := os.WriteFile(unitPath, []byte(UnitContents(binaryPath, env)), 0o644); err != nil {
		return fmt.Errorf("cannot write unit file: %w", err)
	}

	if err := systemctl(scope, "daemon-reload"); err != nil {
		return err
	}
	return systemctl(scope, "enable", "--now", unitName)
}

// Uninstall stops+disables the service, removes the unit file, and reloads systemd.
func Uninstall(scope Scope) error {
	// Best-effort; the unit may not be running.
	_ = systemctl(scope, "stop", unitName)
	_ = systemctl(scope, "disable", unitName)

	unitPath, err := UnitPath(scope)
	if err != nil {
		return err
	}
	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove unit file: %w", err)
	}
	return systemctl(scope, "daemon-reload")
}

// Status returns a human-readable status string.
func Status(scope Scope, socketPath string) string {
	var lines []string

	if _, err := os.Stat(socketPath); err == nil {
		lines = append(lines, "admin socket: active ("+socketPath+")")
	} else {
		lines = append(lines, "admin socket: inactive ("+socketPath+")")
	}

	label := "systemd " + scope.String() + " service: "
	unitPath, err := UnitPath(scope)
	if err == nil {
		if _, statErr := os.Stat(unitPath); statErr == nil {
			out, runErr := exec.Command("systemctl", scopeArgs(scope, "is-active", unitName)...).Output()
			state := strings.TrimSpace(string(out))
			if runErr != nil && state == "" {
				state = "unknown"
			}
			lines = append(lines, label+state)
		} else {
			lines = append(lines, label+"not installed")
		}
	}
	return strings.Join(lines, "\n")
}

func (s Scope) String() string {
	if s == ScopeSystem {
		return "system"
	}
	return "user"
}

func scopeArgs(scope Scope, args ...string) []string {
	if scope == ScopeSystem {
		return args
	}
	return append([]string{"--user"}, args...)
}

func systemctl(scope Scope, args ...string) error {
	full := scopeArgs(scope, args...)
	cmd := exec.Command("systemctl", full...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("systemctl %s: %w", strings.Join(full, " "), err)
	}
	return nil
}
