// Package launch spawns individual worker node processes. Nodes are
// launched detached and never supervised past a short liveness window that
// turns startup misconfiguration into an immediate failure.
package launch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultLivenessWindow is how long a freshly spawned node is watched for
// an early exit before the launcher lets go of it.
const DefaultLivenessWindow = 2 * time.Second

var (
	// ErrSpawnFailed means the OS could not create the process at all.
	ErrSpawnFailed = errors.New("node spawn failed")

	// ErrExitedEarly means the node ran but exited within the liveness
	// window, almost always due to bad arguments or a broken binary.
	ErrExitedEarly = errors.New("node exited early")
)

// SpawnError wraps an OS-level spawn failure.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %q: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

func (e *SpawnError) Is(target error) bool { return target == ErrSpawnFailed }

// EarlyExitError reports a node that died inside the liveness window.
type EarlyExitError struct {
	Path   string
	Status int
}

func (e *EarlyExitError) Error() string {
	return fmt.Sprintf("%q exited early (status: %d)", e.Path, e.Status)
}

func (e *EarlyExitError) Is(target error) bool { return target == ErrExitedEarly }

// Handle identifies a node that survived its liveness window. The launcher
// keeps no reference to the process afterwards.
type Handle struct {
	PID int
	Dir string
}

type Options struct {
	// LivenessWindow overrides DefaultLivenessWindow (tests use a short
	// one).
	LivenessWindow time.Duration

	// Stderr receives the node's standard error. Defaults to the
	// orchestrator's own stderr so startup failures are visible.
	Stderr io.Writer
}

type Launcher struct {
	opts Options
}

func New(opts Options) *Launcher {
	if opts.LivenessWindow <= 0 {
		opts.LivenessWindow = DefaultLivenessWindow
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return &Launcher{opts: opts}
}

// Launch creates dir, spawns bin there with the given arguments and extra
// environment, and blocks for the liveness window. On success exactly one
// OS process outlives the call; it is not tracked further. Cancelling ctx
// aborts the wait but does not kill an already-spawned node.
func (l *Launcher) Launch(ctx context.Context, bin, dir string, args, env []string) (Handle, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Handle{}, errors.Wrapf(err, "mkdir node dir %s", dir)
	}

	log.Trace().Str("bin", bin).Strs("args", args).Msg("spawning node")

	// #nosec G204 -- the binary and arguments come from the launch plan.
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = nil // discard
	cmd.Stderr = l.opts.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return Handle{}, &SpawnError{Path: bin, Err: err}
	}

	pid := cmd.Process.Pid

	// Reaps the child whenever it eventually exits; also carries the
	// early-exit signal for the window below.
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	t := time.NewTimer(l.opts.LivenessWindow)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return Handle{}, errors.Wrap(ctx.Err(), "liveness check interrupted")
	case <-done:
		status := -1
		if cmd.ProcessState != nil {
			status = cmd.ProcessState.ExitCode()
		}
		return Handle{}, &EarlyExitError{Path: bin, Status: status}
	case <-t.C:
	}

	log.Debug().Str("bin", bin).Str("dir", dir).Int("pid", pid).Msg("node started")
	return Handle{PID: pid, Dir: dir}, nil
}

// Version probes the worker binary with -V and returns the trimmed version
// line. Run once per orchestration so a missing or broken binary fails the
// run before any node directory is touched.
func Version(ctx context.Context, bin string) (string, error) {
	out, err := exec.CommandContext(ctx, bin, "-V").Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return "", errors.Wrapf(err, "%q -V exited with status %d (stderr: %s)",
				bin, ee.ExitCode(), strings.TrimSpace(string(ee.Stderr)))
		}
		return "", &SpawnError{Path: bin, Err: err}
	}
	return strings.TrimSpace(string(out)), nil
}
