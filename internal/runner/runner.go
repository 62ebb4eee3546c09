// Package runner invokes the Kaggle CLI as an external process.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"kagglesync/internal/core/logger"
)

// Runner executes one CLI invocation. A non-zero exit status is reported
// through Result, not as an error; the error is reserved for invocations
// that could not run at all.
type Runner interface {
	Run(ctx context.Context, args []string) (*Result, error)
}

// Func adapts a plain function to the Runner interface.
type Func func(ctx context.Context, args []string) (*Result, error)

func (f Func) Run(ctx context.Context, args []string) (*Result, error) { return f(ctx, args) }

// Result holds the captured outcome of an invocation.
type Result struct {
	Args     []string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Success reports whether the process exited with status 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Output returns stdout followed by stderr, trimmed.
func (r *Result) Output() string {
	out := strings.TrimSpace(string(r.Stdout))
	errOut := strings.TrimSpace(string(r.Stderr))
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

type ExecOption func(*Exec)

// WithExecDir sets the working directory of the CLI process.
func WithExecDir(dir string) ExecOption {
	return func(e *Exec) {
		e.dir = dir
	}
}

// WithExecEnv adds variables on top of the host environment.
func WithExecEnv(env map[string]string) ExecOption {
	return func(e *Exec) {
		e.env = env
	}
}

func WithExecLogger(log *logger.Logger) ExecOption {
	return func(e *Exec) {
		e.logger = log
	}
}

// Exec runs the configured binary with os/exec. The process runs until it
// exits; no timeout is applied, only context cancellation kills it.
type Exec struct {
	binary string
	dir    string
	env    map[string]string
	logger *logger.Logger
}

// NewExec creates an Exec runner for binary.
func NewExec(binary string, opts ...ExecOption) *Exec {
	e := &Exec{
		binary: binary,
		logger: logger.NewLogger(logger.WithName("runner")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exec) Run(ctx context.Context, args []string) (*Result, error) {
	if e.binary == "" {
		return nil, fmt.Errorf("runner binary is empty")
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Dir = e.dir
	cmd.Env = buildEnv(e.env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("running external tool", "binary", e.binary, "args", args, "dir", e.dir)

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Args:     slices.Clone(args),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to execute %s: %w", e.binary, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s cancelled: %w", e.binary, ctxErr)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	e.logger.Debug("external tool finished",
		"binary", e.binary,
		"exit_code", result.ExitCode,
		"duration", result.Duration,
	)
	return result, nil
}

// buildEnv returns the host environment with extra appended in a stable order.
func buildEnv(extra map[string]string) []string {
	env := os.Environ()
	if len(extra) == 0 {
		return env
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, extra[k]))
	}
	return env
}
