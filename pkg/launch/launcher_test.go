package launch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLaunch_LongRunningProcessPassesLivenessCheck(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "node-1")
	l := New(Options{LivenessWindow: 200 * time.Millisecond, Stderr: io.Discard})

	h, err := l.Launch(context.Background(), "bash", dir, []string{"-c", "sleep 10"}, nil)
	require.NoError(t, err)
	require.Greater(t, h.PID, 0)
	require.Equal(t, dir, h.Dir)

	// Node dir must have been created for the process.
	_, statErr := os.Stat(dir)
	require.NoError(t, statErr)

	_ = syscall.Kill(h.PID, syscall.SIGKILL)
}

func TestLaunch_MissingBinaryIsSpawnFailure(t *testing.T) {
	l := New(Options{LivenessWindow: 100 * time.Millisecond, Stderr: io.Discard})

	_, err := l.Launch(context.Background(), "/nonexistent/testnet-node", t.TempDir(), nil, nil)
	require.ErrorIs(t, err, ErrSpawnFailed)
}

func TestLaunch_EarlyExitIsDetected(t *testing.T) {
	l := New(Options{LivenessWindow: 500 * time.Millisecond, Stderr: io.Discard})

	_, err := l.Launch(context.Background(), "bash", t.TempDir(), []string{"-c", "exit 3"}, nil)
	require.ErrorIs(t, err, ErrExitedEarly)

	var ee *EarlyExitError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, 3, ee.Status)
}

func TestLaunch_ZeroStatusExitIsStillEarlyExit(t *testing.T) {
	l := New(Options{LivenessWindow: 500 * time.Millisecond, Stderr: io.Discard})

	_, err := l.Launch(context.Background(), "true", t.TempDir(), nil, nil)
	require.ErrorIs(t, err, ErrExitedEarly)
}

func TestLaunch_CancelledContextAbortsWait(t *testing.T) {
	l := New(Options{LivenessWindow: 10 * time.Second, Stderr: io.Discard})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := l.Launch(ctx, "bash", t.TempDir(), []string{"-c", "sleep 10"}, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestVersion(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-node")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho testnet-node 0.3.1\n"), 0o755))

	v, err := Version(context.Background(), script)
	require.NoError(t, err)
	require.Equal(t, "testnet-node 0.3.1", v)
}

func TestVersion_MissingBinary(t *testing.T) {
	_, err := Version(context.Background(), "/nonexistent/testnet-node")
	require.ErrorIs(t, err, ErrSpawnFailed)
}
