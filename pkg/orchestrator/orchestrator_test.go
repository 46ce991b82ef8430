package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/testnetctl/pkg/conninfo"
	"github.com/go-go-golems/testnetctl/pkg/launch"
	"github.com/go-go-golems/testnetctl/pkg/plan"
)

type spawnCall struct {
	bin  string
	dir  string
	args []string
}

type fakeLauncher struct {
	calls  []spawnCall
	failAt int // 1-based call number that fails; 0 means never
}

var _ Launcher = (*fakeLauncher)(nil)

func (f *fakeLauncher) Launch(ctx context.Context, bin, dir string, args, env []string) (launch.Handle, error) {
	f.calls = append(f.calls, spawnCall{bin: bin, dir: dir, args: args})
	if f.failAt > 0 && len(f.calls) == f.failAt {
		return launch.Handle{}, &launch.EarlyExitError{Path: bin, Status: 1}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return launch.Handle{}, err
	}
	return launch.Handle{PID: 1000 + len(f.calls), Dir: dir}, nil
}

func testOrchestrator(t *testing.T, f *fakeLauncher, contacts []string, readErr error) (*Orchestrator, string) {
	t.Helper()
	nodesDir := filepath.Join(t.TempDir(), "nodes")
	p := &plan.Plan{
		NodePath: "/opt/testnet/testnet-node",
		NodesDir: nodesDir,
		Interval: 0,
	}
	o, err := New(f, Options{
		Plan:         p,
		ConnInfoPath: filepath.Join(nodesDir, "conn.config"),
		ReadContacts: func(string) ([]string, error) {
			if readErr != nil {
				return nil, readErr
			}
			return contacts, nil
		},
	})
	require.NoError(t, err)
	return o, nodesDir
}

func contactsArg(t *testing.T, args []string) string {
	t.Helper()
	for i, a := range args {
		if a == "--hard-coded-contacts" {
			require.Less(t, i+1, len(args))
			return args[i+1]
		}
	}
	t.Fatalf("no --hard-coded-contacts in %v", args)
	return ""
}

func TestRun_FreshNetworkDispatchesGenesisPlusCount(t *testing.T) {
	f := &fakeLauncher{}
	o, nodesDir := testOrchestrator(t, f, []string{"127.0.0.1:1000", "127.0.0.1:2000"}, nil)

	net, err := o.Run(context.Background(), 3, false)
	require.NoError(t, err)

	require.Len(t, f.calls, 4)
	require.Equal(t, filepath.Join(nodesDir, "node-genesis"), f.calls[0].dir)
	require.Contains(t, f.calls[0].args, "--first")

	for i, call := range f.calls[1:] {
		require.Equal(t, filepath.Join(nodesDir, fmt.Sprintf("node-%d", i+2)), call.dir)
		enc := contactsArg(t, call.args)
		require.Equal(t, 1, strings.Count(enc, "127.0.0.1:1000"))
		require.Equal(t, 1, strings.Count(enc, "127.0.0.1:2000"))
		require.NotContains(t, call.args, "--first")
	}

	require.Len(t, net.Nodes, 4)
	require.True(t, net.Nodes[0].Genesis)
	require.Equal(t, 2, net.Nodes[1].Index)
	require.Equal(t, 4, net.Nodes[3].Index)
}

func TestRun_ExtendStartsAfterHighestExistingIndex(t *testing.T) {
	f := &fakeLauncher{}
	o, nodesDir := testOrchestrator(t, f, []string{"127.0.0.1:1000"}, nil)

	for _, d := range []string{"node-genesis", "node-2", "node-3"} {
		require.NoError(t, os.MkdirAll(filepath.Join(nodesDir, d), 0o755))
	}

	_, err := o.Run(context.Background(), 2, true)
	require.NoError(t, err)

	require.Len(t, f.calls, 2)
	require.Equal(t, filepath.Join(nodesDir, "node-4"), f.calls[0].dir)
	require.Equal(t, filepath.Join(nodesDir, "node-5"), f.calls[1].dir)
	for _, call := range f.calls {
		require.NotContains(t, call.args, "--first")
	}
}

func TestRun_ExtendWithoutExistingNetworkFailsBeforeSpawning(t *testing.T) {
	f := &fakeLauncher{}
	o, _ := testOrchestrator(t, f, []string{"127.0.0.1:1000"}, nil)

	_, err := o.Run(context.Background(), 2, true)
	require.ErrorIs(t, err, ErrNoExistingNetwork)
	require.Empty(t, f.calls)
}

func TestRun_FailureStopsDispatching(t *testing.T) {
	// Genesis is call 1; node 3 overall is call 3. Nodes 4 and 5 must
	// never be attempted.
	f := &fakeLauncher{failAt: 3}
	o, _ := testOrchestrator(t, f, []string{"127.0.0.1:1000"}, nil)

	net, err := o.Run(context.Background(), 4, false)
	require.ErrorIs(t, err, launch.ErrExitedEarly)
	require.Len(t, f.calls, 3)
	// Partial progress stays on record: genesis and node 2 launched.
	require.Len(t, net.Nodes, 2)
}

func TestRun_EmptyContactsFailsRun(t *testing.T) {
	f := &fakeLauncher{}
	o, _ := testOrchestrator(t, f, nil, nil)

	_, err := o.Run(context.Background(), 2, false)
	require.ErrorIs(t, err, ErrNoContacts)
	// Only genesis was spawned before the registry check.
	require.Len(t, f.calls, 1)
}

func TestRun_MissingConnInfoFailsRun(t *testing.T) {
	f := &fakeLauncher{}
	o, _ := testOrchestrator(t, f, nil, conninfo.ErrNotFound)

	_, err := o.Run(context.Background(), 2, false)
	require.ErrorIs(t, err, conninfo.ErrNotFound)
	require.Len(t, f.calls, 1)
}

func TestRun_RejectsNonPositiveCount(t *testing.T) {
	f := &fakeLauncher{}
	o, _ := testOrchestrator(t, f, []string{"127.0.0.1:1000"}, nil)

	_, err := o.Run(context.Background(), 0, false)
	require.Error(t, err)
	require.Empty(t, f.calls)
}

func TestJoin_EmptyContactListIsNoOp(t *testing.T) {
	f := &fakeLauncher{}
	o, _ := testOrchestrator(t, f, nil, nil)

	require.NoError(t, o.Join(context.Background(), nil, nil))
	require.Empty(t, f.calls)
}

func TestJoin_SpawnsExactlyOneNodeWithDedupedContacts(t *testing.T) {
	f := &fakeLauncher{}
	o, nodesDir := testOrchestrator(t, f, nil, nil)

	contacts := []string{"10.0.0.2:12000", "10.0.0.1:12000", "10.0.0.2:12000"}
	require.NoError(t, o.Join(context.Background(), contacts, []string{"--clear-data"}))

	require.Len(t, f.calls, 1)
	call := f.calls[0]
	require.Equal(t, nodesDir, call.dir)
	require.Contains(t, call.args, "--clear-data")

	enc := contactsArg(t, call.args)
	require.Equal(t, 1, strings.Count(enc, "10.0.0.1:12000"))
	require.Equal(t, 1, strings.Count(enc, "10.0.0.2:12000"))
}

func TestJoin_LaunchFailurePropagates(t *testing.T) {
	f := &fakeLauncher{failAt: 1}
	o, _ := testOrchestrator(t, f, nil, nil)

	err := o.Join(context.Background(), []string{"10.0.0.1:12000"}, nil)
	require.ErrorIs(t, err, launch.ErrExitedEarly)
}
