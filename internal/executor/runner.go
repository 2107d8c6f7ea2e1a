package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"sync-shuttle/internal/shuttle"
)

// StderrExcerpt bounds, in characters, how much of the executor's stderr is
// surfaced in errors.
const StderrExcerpt = 80

// waitDelay bounds how long Run waits for output pipes after a kill.
const waitDelay = 2 * time.Second

// Result is the captured output of a finished executor run.
type Result struct {
	Stdout  string
	Stderr  string
	Elapsed time.Duration
}

// ExitError reports a run that finished with a non-zero status.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if r := []rune(msg); len(r) > StderrExcerpt {
		msg = string(r[:StderrExcerpt])
	}
	if msg == "" {
		return fmt.Sprintf("executor exited with status %d", e.Code)
	}
	return fmt.Sprintf("executor exited with status %d: %s", e.Code, msg)
}

// Runner invokes the external transfer executor as a subprocess.
// Arguments go straight to argv; nothing is interpreted by a shell.
type Runner struct {
	script string
	env    []string
	logger shuttle.Logger
}

// NewRunner creates a Runner for script. env entries (KEY=VALUE) are added
// to the inherited environment.
func NewRunner(script string, env []string, logger shuttle.Logger) *Runner {
	return &Runner{script: script, env: env, logger: logger}
}

// Run executes the script with args and waits at most timeout for it to
// finish. A run that outlives timeout is killed and reported as ErrTimeout.
func (r *Runner) Run(ctx context.Context, timeout time.Duration, args ...string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.script, args...)
	cmd.Stdin = nil
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), r.env...)
	cmd.WaitDelay = waitDelay

	start := time.Now()
	r.logger.Info("running executor", "script", r.script, "args", strings.Join(args, " "), "timeout", timeout)
	err := cmd.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String(), Elapsed: time.Since(start)}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		r.logger.Error("executor timed out", "script", r.script, "elapsed", res.Elapsed)
		return res, fmt.Errorf("%w: %s after %s", shuttle.ErrTimeout, r.script, timeout)
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("executor %s: %w", r.script, ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			e := &ExitError{Code: exitErr.ExitCode(), Stderr: res.Stderr}
			r.logger.Error("executor failed", "script", r.script, "code", e.Code, "elapsed", res.Elapsed)
			return res, e
		}
		return res, fmt.Errorf("starting executor %s: %w", r.script, err)
	}
	r.logger.Info("executor finished", "script", r.script, "elapsed", res.Elapsed)
	return res, nil
}
