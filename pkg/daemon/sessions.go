package daemon

import (
	"sort"
	"sync"
	"time"

	"github.com/modoterra/logtap/pkg/core"
	"github.com/modoterra/logtap/pkg/providers/procfs"
	"github.com/modoterra/logtap/pkg/transport/uds"
)

// ActiveSessions tracks every running follower by source key and session id.
// Only session start and teardown mutate it; shutdown uses it to make sure no
// follower outlives the server.
type ActiveSessions struct {
	mu      sync.Mutex
	entries map[string]map[string]*Process // source key -> session id -> follower
}

// NewActiveSessions creates an empty registry.
func NewActiveSessions() *ActiveSessions {
	return &ActiveSessions{entries: make(map[string]map[string]*Process)}
}

// Add records a follower for a session.
func (a *ActiveSessions) Add(key, sessionID string, p *Process) {
	a.mu.Lock()
	defer a.mu.Unlock()
	byID, ok := a.entries[key]
	if !ok {
		byID = make(map[string]*Process)
		a.entries[key] = byID
	}
	byID[sessionID] = p
}

// Remove forgets a session's follower. Other sessions on the same source are
// left alone.
func (a *ActiveSessions) Remove(key, sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	byID, ok := a.entries[key]
	if !ok {
		return
	}
	delete(byID, sessionID)
	if len(byID) == 0 {
		delete(a.entries, key)
	}
}

// Contains reports whether any session follows the source key.
func (a *ActiveSessions) Contains(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries[key]) > 0
}

// Len returns the number of tracked sessions.
func (a *ActiveSessions) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, byID := range a.entries {
		n += len(byID)
	}
	return n
}

// TerminateAll signals every tracked follower and returns how many there were.
// Entries are removed by their sessions as they tear down.
func (a *ActiveSessions) TerminateAll() int {
	a.mu.Lock()
	procs := make([]*Process, 0)
	for _, byID := range a.entries {
		for _, p := range byID {
			procs = append(procs, p)
		}
	}
	a.mu.Unlock()

	for _, p := range procs {
		p.Terminate()
	}
	return len(procs)
}

// Snapshot lists the tracked sessions ordered by start time.
func (a *ActiveSessions) Snapshot() []uds.SessionInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	infos := make([]uds.SessionInfo, 0)
	for key, byID := range a.entries {
		kind, id, err := core.ParseSourceKey(key)
		if err != nil {
			continue
		}
		for sessionID, p := range byID {
			info := uds.SessionInfo{
				ID:        sessionID,
				Kind:      string(kind),
				SourceID:  id,
				PID:       p.Pid(),
				StartedAt: p.StartedAt.UTC().Format(time.RFC3339),
				UptimeSec: uint64(time.Since(p.StartedAt).Seconds()),
			}
			// The follower may have just exited; leave RSS empty then.
			if st, err := procfs.Read(p.Pid()); err == nil {
				info.RSSBytes = st.RSSBytes
			}
			infos = append(infos, info)
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].StartedAt != infos[j].StartedAt {
			return infos[i].StartedAt < infos[j].StartedAt
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}
