package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestVersionCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "logtapd dev") {
		t.Errorf("version output: %q", buf.String())
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "4000")
	t.Setenv("ALLOWED_DAEMONS", " nginx, sshd ,")

	cfg, err := loadConfig(&cobra.Command{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 4000 {
		t.Errorf("port = %d", cfg.Port)
	}
	if strings.Join(cfg.AllowedDaemons, ",") != "nginx,sshd" {
		t.Errorf("allowed = %v", cfg.AllowedDaemons)
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	// Register for restore, then unset so .env is allowed to supply it.
	t.Setenv("MAX_LOG_LINES", "")
	os.Unsetenv("MAX_LOG_LINES")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MAX_LOG_LINES=25\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(&cobra.Command{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxLogLines != 25 {
		t.Errorf("max lines = %d", cfg.MaxLogLines)
	}
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "4000")

	cmd := &cobra.Command{}
	cmd.Flags().IntVar(&flags.port, "port", 0, "")
	if err := cmd.ParseFlags([]string{"--port", "5000"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 5000 {
		t.Errorf("port = %d, want flag value", cfg.Port)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ALLOWED_DAEMONS", "nginx,bad name")

	if _, err := loadConfig(&cobra.Command{}); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	if newLogger("nonsense") == nil {
		t.Fatal("nil logger")
	}
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
