// Package state persists the record of a launched test network: which node
// indices were spawned, where, and with which PIDs. The orchestrator is
// fire-and-forget, so this record is informational only; status and watch
// poll it against the live process table.
package state

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

// NetworkFilename is the record file stored inside the nodes directory.
const NetworkFilename = "network.json"

type Network struct {
	NodesDir  string       `json:"nodes_dir"`
	CreatedAt time.Time    `json:"created_at"`
	Nodes     []NodeRecord `json:"nodes"`
}

type NodeRecord struct {
	Index     int       `json:"index"`
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Dir       string    `json:"dir"`
	Genesis   bool      `json:"genesis,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

func Path(nodesDir string) string {
	return filepath.Join(nodesDir, NetworkFilename)
}

func Load(nodesDir string) (*Network, error) {
	b, err := os.ReadFile(Path(nodesDir))
	if err != nil {
		return nil, errors.Wrap(err, "read network state")
	}
	var n Network
	if err := json.Unmarshal(b, &n); err != nil {
		return nil, errors.Wrap(err, "parse network state")
	}
	return &n, nil
}

// LoadOrNew returns the existing record for nodesDir, or a fresh one when
// none exists yet (extending appends to the prior run's record).
func LoadOrNew(nodesDir string) *Network {
	n, err := Load(nodesDir)
	if err != nil {
		return &Network{NodesDir: nodesDir, CreatedAt: time.Now()}
	}
	return n
}

func Save(nodesDir string, n *Network) error {
	if n == nil {
		return errors.New("nil network state")
	}
	if err := os.MkdirAll(nodesDir, 0o755); err != nil {
		return errors.Wrap(err, "mkdir nodes dir")
	}
	b, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal network state")
	}
	if err := os.WriteFile(Path(nodesDir), b, 0o644); err != nil {
		return errors.Wrap(err, "write network state")
	}
	return nil
}

// ProcessAlive reports whether pid refers to a live, non-zombie process.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if isZombie(pid) {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return stderrors.Is(err, syscall.EPERM)
}

func isZombie(pid int) bool {
	b, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	// Format: pid (comm) state ...; comm may contain spaces, so scan from
	// the last ')'.
	i := bytes.LastIndexByte(b, ')')
	if i < 0 {
		return false
	}
	fields := bytes.Fields(bytes.TrimSpace(b[i+1:]))
	if len(fields) < 1 || len(fields[0]) < 1 {
		return false
	}
	return fields[0][0] == 'Z'
}
