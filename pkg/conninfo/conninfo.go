// Package conninfo reads and writes the genesis connection-info file: the
// on-disk record of bootstrap addresses the rest of the network joins
// through. The file is a JSON array of "host:port" strings.
package conninfo

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// DefaultRelPath is where the genesis node writes its connection info,
// relative to the user's home directory.
const DefaultRelPath = ".testnet/node/node_connection_info.config"

var (
	// ErrNotFound means the genesis node has not written the file yet.
	ErrNotFound = errors.New("connection info file not found")

	// ErrMalformed means the file exists but does not deserialize into a
	// valid address list.
	ErrMalformed = errors.New("connection info file is malformed")
)

// DefaultPath resolves the well-known connection-info location under the
// user's home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(home, DefaultRelPath), nil
}

// Read loads the connection-info file at path and returns the deduplicated,
// sorted set of bootstrap addresses. It does not retry or poll; the caller
// is expected to have given genesis time to publish the file.
func Read(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "read connection info at %s", path)
	}

	var addrs []string
	if err := json.Unmarshal(b, &addrs); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "%s: %v", path, err)
	}
	for _, a := range addrs {
		if _, _, err := net.SplitHostPort(a); err != nil {
			return nil, errors.Wrapf(ErrMalformed, "%s: bad address %q", path, a)
		}
	}

	return Dedupe(addrs), nil
}

// Write stores the address set at path, creating parent directories as
// needed. Used by tests and stand-in node binaries; the real worker writes
// this file itself.
func Write(path string, addrs []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir connection info dir")
	}
	b, err := json.Marshal(Dedupe(addrs))
	if err != nil {
		return errors.Wrap(err, "marshal connection info")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrap(err, "write connection info")
	}
	return nil
}

// Dedupe collapses duplicate addresses and sorts the result. The registry
// is conceptually a set; a stable order keeps downstream composition
// deterministic.
func Dedupe(addrs []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
