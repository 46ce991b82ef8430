// Package proc reads the few process statistics the launcher surfaces for
// running nodes from /proc.
package proc

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Stats is a single sample for one node process.
type Stats struct {
	PID      int    `json:"pid"`
	State    string `json:"state"` // R, S, D, Z, T, ...
	Threads  int    `json:"threads"`
	MemoryMB int64  `json:"memory_mb"` // resident set, megabytes
}

// ReadStats samples /proc/<pid>/stat for one PID.
func ReadStats(pid int) (*Stats, error) {
	if pid <= 0 {
		return nil, errors.New("invalid PID")
	}

	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return nil, errors.Wrap(err, "read stat file")
	}

	// Format: pid (comm) state ... — comm may contain spaces and parens,
	// so parse from the last ')'.
	content := string(data)
	closeParen := strings.LastIndex(content, ")")
	if closeParen < 0 {
		return nil, errors.New("malformed stat file: no closing paren")
	}
	fields := strings.Fields(strings.TrimSpace(content[closeParen+1:]))

	// Fields after comm (0-based): 0 state, 17 num_threads, 21 rss.
	if len(fields) < 22 {
		return nil, errors.Errorf("malformed stat file: expected 22+ fields, got %d", len(fields))
	}

	threads, err := strconv.Atoi(fields[17])
	if err != nil {
		return nil, errors.Wrap(err, "parse num_threads")
	}
	rssPages, err := strconv.ParseInt(fields[21], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "parse rss")
	}

	return &Stats{
		PID:      pid,
		State:    string(fields[0][0]),
		Threads:  threads,
		MemoryMB: rssPages * int64(os.Getpagesize()) / (1024 * 1024),
	}, nil
}
