package server

import (
	"context"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/flyctl-dev/flymcp/internal/resources"
)

// killGrace is how long a terminated subprocess gets to exit before being
// force-killed (spec §5's cancellation discipline).
const killGrace = 2 * time.Second

// runProcess executes name with args, streaming combined stdout/stderr to
// out, and honors ctx cancellation by sending SIGTERM then, after
// killGrace, SIGKILL (spec §5, §6's "must not block the reactor").
func runProcess(ctx context.Context, out io.Writer, dir, name string, args ...string) (int, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return -1, err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return exitCode(cmd, err), err
	case <-ctx.Done():
		_ = cmd.Process.Signal(syscall.SIGTERM)
		select {
		case err := <-done:
			return exitCode(cmd, err), ctx.Err()
		case <-time.After(killGrace):
			_ = cmd.Process.Kill()
			<-done
			return -1, ctx.Err()
		}
	}
}

// runWithLogRing runs name under a freshly minted process id, streaming
// its combined output into rings under logs://<kind>/<id> (spec §4.4,
// §6's "all stdout/stderr streams are attached to log rings"). The id is
// a synthetic identifier, not the OS pid, so callers can register the
// ring before the process produces any output.
func runWithLogRing(ctx context.Context, rings *resources.LogRings, kind, dir, name string, args ...string) (id string, exitCode int, err error) {
	id = uuid.NewString()
	ring := rings.Writer(kind, id)
	code, runErr := runProcess(ctx, ring, dir, name, args...)
	return id, code, runErr
}

func exitCode(cmd *exec.Cmd, err error) int {
	if err == nil {
		return 0
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}
