package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/caarlos0/go-shellwords"

	"github.com/Norgate-AV/assetc/internal/registry"
)

// Result holds what a finished compiler process produced
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes a compiler process. A non-zero exit status is reported through
// Result.ExitCode; the error is reserved for processes that could not run to completion.
type Runner interface {
	Run(ctx context.Context, args []string) (*Result, error)
}

// ExecRunner runs compilers as child processes with stdin closed
type ExecRunner struct{}

// Run starts args[0] with the remaining arguments and waits for it to exit
func (ExecRunner) Run(ctx context.Context, args []string) (*Result, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// bound the wait on grandchildren that still hold the output pipes
	cmd.WaitDelay = time.Second

	err := cmd.Run()

	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: -1}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return res, ErrTimeout
			}

			return res, ctxErr
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, nil
		}

		return res, err
	}

	return res, nil
}

// CommandBuilder turns compiler specs into argument vectors and runs them
type CommandBuilder struct {
	runner  Runner
	timeout time.Duration
}

// NewCommandBuilder creates a new command builder. A nil runner selects ExecRunner;
// a zero timeout lets the compiler run indefinitely.
func NewCommandBuilder(runner Runner, timeout time.Duration) *CommandBuilder {
	if runner == nil {
		runner = ExecRunner{}
	}

	return &CommandBuilder{
		runner:  runner,
		timeout: timeout,
	}
}

// BuildCommandArgs tokenizes the spec's command with shell quoting rules and
// appends the source path as a single final argument
func (cb *CommandBuilder) BuildCommandArgs(spec registry.CompilerSpec, sourcePath string) ([]string, error) {
	args, err := shellwords.Parse(spec.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse command %q: %v", ErrNoCompilerConfigured, spec.Command, err)
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty command for %q", ErrNoCompilerConfigured, spec.SourceExtension)
	}

	return append(args, sourcePath), nil
}

// ExecuteCommand runs the compiler and returns its stdout.
// Any failure is reported as a *CompilationFailedError.
func (cb *CommandBuilder) ExecuteCommand(ctx context.Context, sourcePath string, args []string) ([]byte, error) {
	if cb.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cb.timeout)
		defer cancel()
	}

	res, err := cb.runner.Run(ctx, args)
	if res == nil {
		res = &Result{ExitCode: -1}
	}

	if err != nil || !IsSuccess(res.ExitCode, res.Stderr) {
		return nil, &CompilationFailedError{
			Source:   sourcePath,
			Args:     args,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			Err:      err,
		}
	}

	return res.Stdout, nil
}

// FormatArgs renders args the way they would be typed in a shell, for logging
func FormatArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\n'\"\\$`") {
			quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
			continue
		}

		quoted[i] = a
	}

	return strings.Join(quoted, " ")
}
