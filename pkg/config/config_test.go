package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(
		"node_path: /opt/testnet/testnet-node\ninterval: 2s\nnode_log: node=trace\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "/opt/testnet/testnet-node", cfg.NodePath)
	require.Equal(t, "2s", cfg.Interval)
	require.Equal(t, "node=trace", cfg.NodeLog)
	require.Empty(t, cfg.NodesDir)
}

func TestLoadOptional_MissingFile(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, &File{}, cfg)
}

func TestLoadFromFile_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
}
