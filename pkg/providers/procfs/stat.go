// Package procfs reads follower process details from /proc.
package procfs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Root is the procfs mount point.
var Root = "/proc"

// Stat is a point-in-time view of one process.
type Stat struct {
	PID      int
	Cmdline  string
	RSSBytes uint64
}

// Read returns the command line and resident set size of pid.
func Read(pid int) (Stat, error) {
	st := Stat{PID: pid}

	cmdline, err := os.ReadFile(fmt.Sprintf("%s/%d/cmdline", Root, pid))
	if err != nil {
		return st, fmt.Errorf("read cmdline: %w", err)
	}
	st.Cmdline = strings.TrimSpace(strings.ReplaceAll(string(cmdline), "\x00", " "))

	statm, err := os.ReadFile(fmt.Sprintf("%s/%d/statm", Root, pid))
	if err != nil {
		return st, fmt.Errorf("read statm: %w", err)
	}
	rss, err := parseStatm(string(statm))
	if err != nil {
		return st, err
	}
	st.RSSBytes = rss * uint64(os.Getpagesize())
	return st, nil
}

// parseStatm returns the resident page count, the second field of statm.
func parseStatm(s string) (uint64, error) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return 0, fmt.Errorf("statm: expected at least 2 fields, got %d", len(fields))
	}
	pages, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("statm resident: %w", err)
	}
	return pages, nil
}
