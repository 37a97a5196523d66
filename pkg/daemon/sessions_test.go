package daemon

import (
	"context"
	"testing"
)

func spawnSleeper(t *testing.T) *Process {
	t.Helper()
	p, err := NewSupervisor(0, testLogger()).Spawn(context.Background(), []string{"sleep", "30"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(p.Terminate)
	return p
}

func TestActiveSessionsAddRemove(t *testing.T) {
	a := NewActiveSessions()
	p1, p2 := spawnSleeper(t), spawnSleeper(t)

	a.Add("docker:abc", "s1", p1)
	a.Add("docker:abc", "s2", p2)
	if a.Len() != 2 || !a.Contains("docker:abc") {
		t.Fatalf("len=%d", a.Len())
	}

	a.Remove("docker:abc", "s1")
	if !a.Contains("docker:abc") {
		t.Error("removing one session must keep the other")
	}
	a.Remove("docker:abc", "s2")
	a.Remove("docker:abc", "s2")
	a.Remove("systemd:missing", "s9")
	if a.Contains("docker:abc") || a.Len() != 0 {
		t.Errorf("len=%d", a.Len())
	}
}

func TestActiveSessionsSnapshot(t *testing.T) {
	a := NewActiveSessions()
	p := spawnSleeper(t)
	a.Add("systemd:nginx", "s1", p)

	infos := a.Snapshot()
	if len(infos) != 1 {
		t.Fatalf("snapshot: %+v", infos)
	}
	got := infos[0]
	if got.ID != "s1" || got.Kind != "systemd" || got.SourceID != "nginx" || got.PID != p.Pid() {
		t.Errorf("info: %+v", got)
	}
	if got.StartedAt == "" {
		t.Error("missing start time")
	}
	if got.RSSBytes == 0 {
		t.Error("missing follower RSS")
	}
}

func TestActiveSessionsTerminateAll(t *testing.T) {
	a := NewActiveSessions()
	p1, p2 := spawnSleeper(t), spawnSleeper(t)
	a.Add("docker:abc", "s1", p1)
	a.Add("systemd:nginx", "s2", p2)

	if n := a.TerminateAll(); n != 2 {
		t.Errorf("terminated %d, want 2", n)
	}
	eventually(t, "followers exit", func() bool {
		return processGone(p1.Pid()) && processGone(p2.Pid())
	})
	if n := NewActiveSessions().TerminateAll(); n != 0 {
		t.Errorf("empty registry terminated %d", n)
	}
}
