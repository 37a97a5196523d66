package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUnitContents(t *testing.T) {
	got := UnitContents("/usr/local/bin/logtapd", map[string]string{
		"PORT":            "8080",
		"ALLOWED_DAEMONS": "nginx,sshd",
	})

	for _, want := range []string{
		"ExecStart=/usr/local/bin/logtapd",
		"Type=notify",
		"Restart=on-failure",
		"[Install]",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("unit file missing %q", want)
		}
	}

	allowed := strings.Index(got, `Environment="ALLOWED_DAEMONS=nginx,sshd"`)
	port := strings.Index(got, `Environment="PORT=8080"`)
	if allowed < 0 || port < 0 {
		t.Fatalf("unit file missing environment:\n%s", got)
	}
	if allowed > port {
		t.Error("environment lines should be sorted")
	}
}

func TestUnitContentsNoEnv(t *testing.T) {
	if got := UnitContents("/bin/logtapd", nil); strings.Contains(got, "Environment=") {
		t.Errorf("unexpected Environment line:\n%s", got)
	}
}

func TestUnitPath(t *testing.T) {
	path, err := UnitPath(ScopeUser)
	if err != nil {
		t.Fatalf("UnitPath() error: %v", err)
	}
	if !strings.HasSuffix(path, "systemd/user/logtapd.service") {
		t.Errorf("UnitPath(user) = %q", path)
	}

	path, err = UnitPath(ScopeSystem)
	if err != nil {
		t.Fatal(err)
	}
	if path != "/etc/systemd/system/logtapd.service" {
		t.Errorf("UnitPath(system) = %q", path)
	}
}

func TestScopeArgs(t *testing.T) {
	if got := strings.Join(scopeArgs(ScopeUser, "daemon-reload"), " "); got != "--user daemon-reload" {
		t.Errorf("user args: %q", got)
	}
	if got := strings.Join(scopeArgs(ScopeSystem, "daemon-reload"), " "); got != "daemon-reload" {
		t.Errorf("system args: %q", got)
	}
}

func TestStatusNoSocket(t *testing.T) {
	got := Status(ScopeUser, filepath.Join(t.TempDir(), "missing.sock"))
	if !strings.Contains(got, "admin socket: inactive") {
		t.Errorf("Status() should report inactive socket, got: %s", got)
	}
}

func TestStatusWithSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logtap.sock")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	got := Status(ScopeUser, path)
	if !strings.Contains(got, "admin socket: active") {
		t.Errorf("Status() should report active socket, got: %s", got)
	}
}
