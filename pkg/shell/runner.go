package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner executes a command and reports its outcome.
//
// Exec returns a Result whenever the command was started, together with an
// *ExitError if it exited non-zero. A nil Result means the command never ran.
type Runner interface {
	Exec(ctx context.Context, name string, args ...string) (*Result, error)
}

// Result describes a finished command.
type Result struct {
	Command  []string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Check converts a Runner outcome into a single error: any non-zero exit
// is a failure.
func Check(res *Result, err error) error {
	if err != nil {
		return err
	}
	if res != nil && res.ExitCode != 0 {
		return &ExitError{Command: res.Command, Code: res.ExitCode, Stderr: res.Stderr}
	}
	return nil
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Dir is the working directory for commands. Empty means the current
	// directory of the calling process.
	Dir string

	// Env, when non-nil, replaces the environment of commands.
	Env []string

	// Stdout and Stderr receive a copy of command output as it is produced.
	Stdout io.Writer
	Stderr io.Writer

	// DryRun logs commands instead of running them; every command succeeds.
	DryRun bool

	// Logger is the optional logger for debug output.
	Logger *slog.Logger
}

// NewExecRunner returns an ExecRunner with default settings.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Exec runs name with args and waits for it to finish. Cancelling ctx kills
// the command.
func (r *ExecRunner) Exec(ctx context.Context, name string, args ...string) (*Result, error) {
	if name == "" {
		return nil, ErrEmptyCommand
	}
	argv := append([]string{name}, args...)
	logger := r.logger()

	if r.DryRun {
		logger.Info("dry run", "command", strings.Join(argv, " "))
		return &Result{Command: argv}, nil
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Env = r.Env
	cmd.Stdout = tee(&stdout, r.Stdout)
	cmd.Stderr = tee(&stderr, r.Stderr)

	logger.Debug("exec", "command", strings.Join(argv, " "), "dir", r.Dir)
	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Command:  argv,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err == nil {
		logger.Debug("exec finished", "command", name, "duration", res.Duration)
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("%s: %w", name, ctxErr)
		}
		logger.Debug("exec failed", "command", name, "exit_code", res.ExitCode)
		return res, &ExitError{Command: argv, Code: res.ExitCode, Stderr: res.Stderr}
	}

	return nil, &StartError{Command: argv, Err: err}
}

func (r *ExecRunner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

var _ Runner = (*ExecRunner)(nil)
