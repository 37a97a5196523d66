package procfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadSelf(t *testing.T) {
	st, err := Read(os.Getpid())
	if err != nil {
		t.Fatal(err)
	}
	if st.RSSBytes == 0 {
		t.Error("expected non-zero RSS")
	}
	if st.Cmdline == "" {
		t.Error("expected a command line")
	}
}

func TestReadFakeRoot(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "42")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "cmdline"), []byte("journalctl\x00-u\x00nginx\x00-f\x00"), 0o644)
	os.WriteFile(filepath.Join(dir, "statm"), []byte("5000 300 200 10 0 400 0\n"), 0o644)

	old := Root
	Root = root
	t.Cleanup(func() { Root = old })

	st, err := Read(42)
	if err != nil {
		t.Fatal(err)
	}
	if st.Cmdline != "journalctl -u nginx -f" {
		t.Errorf("cmdline = %q", st.Cmdline)
	}
	if st.RSSBytes != 300*uint64(os.Getpagesize()) {
		t.Errorf("rss = %d", st.RSSBytes)
	}
}

func TestReadMissingProcess(t *testing.T) {
	old := Root
	Root = t.TempDir()
	t.Cleanup(func() { Root = old })

	if _, err := Read(99999); err == nil || !strings.Contains(err.Error(), "cmdline") {
		t.Errorf("expected cmdline error, got %v", err)
	}
}

func TestParseStatmShort(t *testing.T) {
	if _, err := parseStatm("12"); err == nil {
		t.Error("expected error")
	}
}
