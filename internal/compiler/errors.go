package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Norgate-AV/assetc/internal/fingerprint"
)

var (
	// ErrNotFound is returned when the source file is missing or unreadable
	ErrNotFound = fingerprint.ErrNotFound

	// ErrNoCompilerConfigured is returned when no usable spec applies to a source
	ErrNoCompilerConfigured = errors.New("no compiler configured")

	// ErrInvalidDirectory is returned when a batch target is not a directory
	ErrInvalidDirectory = errors.New("not a directory")

	// ErrCompilationFailed matches every *CompilationFailedError
	ErrCompilationFailed = errors.New("compilation failed")

	// ErrNotCompiled is returned when compiled data is requested before the artifact is known to exist
	ErrNotCompiled = errors.New("asset has not been compiled")

	// ErrTimeout is wrapped by a *CompilationFailedError when the compiler ran out of time
	ErrTimeout = errors.New("compiler timed out")
)

// CompilationFailedError describes a compiler invocation that did not succeed.
// Both captured streams are kept for diagnostics.
type CompilationFailedError struct {
	Source   string
	Args     []string
	ExitCode int
	Stdout   []byte
	Stderr   []byte

	// Err is the underlying cause when the process could not run to completion
	Err error
}

func (e *CompilationFailedError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "compilation of %s failed", e.Source)

	switch {
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	case e.ExitCode != 0:
		fmt.Fprintf(&b, " (exit code %d: %s)", e.ExitCode, GetErrorMessage(e.ExitCode))
	default:
		b.WriteString(" (compiler wrote to stderr)")
	}

	if msg := strings.TrimSpace(string(e.Stderr)); msg != "" {
		fmt.Fprintf(&b, "\n\n%s", msg)
	}

	return b.String()
}

func (e *CompilationFailedError) Is(target error) bool {
	return target == ErrCompilationFailed
}

func (e *CompilationFailedError) Unwrap() error {
	return e.Err
}
