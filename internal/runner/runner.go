// Package runner executes shell command lines with a deadline, output
// size limits and a command policy.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// DefaultShell is used when Runner.Shell is empty.
const DefaultShell = "/bin/sh"

// waitDelay bounds how long Wait keeps reading pipes held open by
// orphaned descendants after the shell itself has exited or been killed.
const waitDelay = 2 * time.Second

var (
	// ErrEmptyCommand is returned for an empty command line.
	ErrEmptyCommand = errors.New("empty command")
	// ErrDenied is returned when the policy rejects a command line.
	ErrDenied = errors.New("command denied by policy")
)

// Runner executes command lines through a shell, one process per call.
// A Runner holds no per-call state and is safe for concurrent use.
type Runner struct {
	Shell     string        // interpreter, invoked as <Shell> -c <command>
	Dir       string        // working directory; empty means the current one
	Env       []string      // nil inherits the gateway environment
	Timeout   time.Duration // zero disables the deadline
	MaxOutput int           // bytes per stream; zero or less means unlimited
	Policy    Policy        // nil allows every command

	// OnStart is called once the process is running.
	OnStart func(runID string, pid int)
}

// Run executes command and waits for it to terminate.
//
// Refusals (empty command, policy denial) are returned as errors and no
// process is created. Everything after that, including spawn failures,
// timeouts and cancellation, is reported through Result.Outcome.
func (r *Runner) Run(ctx context.Context, command string) (*Result, error) {
	if command == "" {
		return nil, ErrEmptyCommand
	}
	if r.Policy != nil {
		if err := r.Policy.Check(command); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDenied, err)
		}
	}

	shell := r.Shell
	if shell == "" {
		shell = DefaultShell
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	res := &Result{
		RunID:   uuid.New().String(),
		Command: command,
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = r.Dir
	cmd.Env = r.Env
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	outW := &limitWriter{buf: &stdout, limit: r.MaxOutput}
	errW := &limitWriter{buf: &stderr, limit: r.MaxOutput}
	cmd.Stdout = outW
	cmd.Stderr = errW

	res.Started = time.Now().UTC()
	if err := cmd.Start(); err != nil {
		res.finish()
		res.Outcome = SpawnFailed
		res.Failed = true
		res.Err = fmt.Sprintf("spawning %s: %v", shell, err)
		return res, nil
	}
	res.PID = cmd.Process.Pid
	if r.OnStart != nil {
		r.OnStart(res.RunID, res.PID)
	}

	waitErr := cmd.Wait()
	res.finish()

	// The shell is gone; take any descendants it left behind with it.
	_ = killProcessGroup(res.PID)

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Truncated = outW.truncated || errW.truncated
	res.Outcome = classify(ctx, waitErr, res)
	res.Failed = res.Outcome != Completed

	if ps := cmd.ProcessState; ps != nil && ps.ExitCode() >= 0 && res.Outcome != TimedOut && res.Outcome != Canceled {
		code := ps.ExitCode()
		res.ExitCode = &code
	}

	switch res.Outcome {
	case TimedOut:
		res.Err = fmt.Sprintf("command timed out after %s", r.Timeout)
	case Canceled:
		res.Err = fmt.Sprintf("command canceled: %v", context.Cause(ctx))
	case SpawnFailed:
		res.Err = fmt.Sprintf("%s could not run the command (exit %d)", shell, cmd.ProcessState.ExitCode())
	}
	return res, nil
}

// classify maps the Wait error and context state to an Outcome.
func classify(ctx context.Context, waitErr error, res *Result) Outcome {
	if waitErr == nil {
		return Completed
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return TimedOut
	case errors.Is(ctx.Err(), context.Canceled):
		return Canceled
	case errors.Is(waitErr, exec.ErrWaitDelay):
		return Completed
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		// POSIX shells report "not found" as 127 and "not executable" as
		// 126. With nothing on stdout the command never really ran.
		code := exitErr.ExitCode()
		if (code == 127 || code == 126) && res.Stdout == "" {
			return SpawnFailed
		}
	}
	return Completed
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf       *bytes.Buffer
	limit     int
	truncated bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return w.buf.Write(p)
	}
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		w.truncated = w.truncated || len(p) > 0
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		w.truncated = true
		return len(p), nil
	}
	return w.buf.Write(p)
}
