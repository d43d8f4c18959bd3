package facter

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks. Each typed error below matches
// exactly one of them.
var (
	// ErrInvocation indicates the facter executable could not be started.
	ErrInvocation = errors.New("facter could not be started")

	// ErrExecution indicates facter ran but exited with a non-zero status.
	ErrExecution = errors.New("facter command failed")

	// ErrParse indicates facter output did not match the expected format.
	ErrParse = errors.New("facter output could not be parsed")

	// ErrNotFound indicates the requested fact is absent.
	ErrNotFound = errors.New("unknown fact")
)

// InvocationError is returned when the executable cannot be located or
// started.
type InvocationError struct {
	Path string
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrInvocation, e.Path, e.Err)
}

func (e *InvocationError) Unwrap() []error { return []error{ErrInvocation, e.Err} }

// ExecutionError is returned when facter exits non-zero or is killed by
// the invocation timeout. Stderr holds the trimmed standard error output.
type ExecutionError struct {
	Path     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExecutionError) Error() string {
	var b strings.Builder
	b.WriteString(ErrExecution.Error())
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	} else {
		fmt.Fprintf(&b, " with exit status %d", e.ExitCode)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, ": %s", e.Stderr)
	}
	return b.String()
}

func (e *ExecutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExecution}
	}
	return []error{ErrExecution, e.Err}
}

// ParseError is returned when output cannot be parsed in Format.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s as %s: %v", ErrParse, e.Format, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// NotFoundError is returned by Lookup when Name is absent from the facts.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %q", ErrNotFound, e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
