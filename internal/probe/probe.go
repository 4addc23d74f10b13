// Package probe runs short-lived, time-bounded host commands. Every probe
// reports a plain result; callers decide what a failure means.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/strongdm/devshell/internal/hostenv"
)

// ToolTimeout bounds a single tool lookup.
const ToolTimeout = 3 * time.Second

// outputWaitDelay bounds how long Run waits for output pipes after the
// command was killed or exited. Descendants holding stdout open are cut off.
const outputWaitDelay = 500 * time.Millisecond

// Result is the outcome of a finished command.
type Result struct {
	Output   string
	ExitCode int
}

// Runner executes a command and waits for it, killing it once timeout
// elapses. A nil error means the command exited with status zero.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error)
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Output  string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Output)
	if msg != "" {
		return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.Code, msg)
	}
	return fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	cmd.WaitDelay = outputWaitDelay
	err := cmd.Run()
	res := Result{Output: buf.String(), ExitCode: -1}
	if err == nil {
		res.ExitCode = 0
		return res, nil
	}

	line := commandLine(name, args)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", line, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Command: line, Code: res.ExitCode, Output: res.Output}
	}
	return res, fmt.Errorf("%s: %w", line, err)
}

// ToolAvailable reports whether name resolves on the host's search path. It
// never fails: a missing lookup utility, a timeout and a non-zero exit all
// read as absent.
func ToolAvailable(ctx context.Context, env hostenv.Env, r Runner, name string) bool {
	if strings.TrimSpace(name) == "" || r == nil {
		return false
	}
	lookup := "which"
	if env.IsWindows() {
		lookup = "where"
	}
	_, err := r.Run(ctx, ToolTimeout, lookup, name)
	return err == nil
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
