package model

import (
	"fmt"
	"strings"
)

// ExitCode defines standard CLI exit codes.
// These codes allow scripts and CI systems to programmatically determine
// the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitDockerNotRunning indicates the Docker daemon is not accessible
	// when a container execution target is configured.
	ExitDockerNotRunning ExitCode = 3

	// ExitGitError indicates the git process exited non-zero or could
	// not be spawned.
	ExitGitError ExitCode = 5

	// ExitInvalidConfig indicates the configuration files, environment
	// variables or flags could not be loaded or failed validation.
	ExitInvalidConfig ExitCode = 8

	// ExitInvalidPlan indicates a plan file could not be parsed or
	// contains an invalid step.
	ExitInvalidPlan ExitCode = 9
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// SpawnFailureStatus is the ExitStatus reported when the process never ran
// (shell not found, permission denied, container API unreachable).
const SpawnFailureStatus = -1

// ProcessFailure is returned by every executor when a rendered command
// exits non-zero or cannot be started. It is passed through the command
// builder unchanged.
type ProcessFailure struct {
	// Command is the rendered command string that was executed.
	Command string

	// ExitStatus is the process exit status, or SpawnFailureStatus when
	// the process could not be started.
	ExitStatus int

	// Stderr is the captured standard error output, trimmed.
	Stderr string

	// Err is the underlying error reported by the process layer.
	Err error
}

// Error renders the failure as "<command>: exit status N: <stderr>".
func (e *ProcessFailure) Error() string {
	var b strings.Builder
	b.WriteString(e.Command)
	if e.ExitStatus == SpawnFailureStatus {
		b.WriteString(": failed to start")
		if e.Err != nil {
			fmt.Fprintf(&b, ": %v", e.Err)
		}
		return b.String()
	}
	fmt.Fprintf(&b, ": exit status %d", e.ExitStatus)
	if e.Stderr != "" {
		b.WriteString(": ")
		b.WriteString(e.Stderr)
	}
	return b.String()
}

// Unwrap returns the underlying process error.
func (e *ProcessFailure) Unwrap() error {
	return e.Err
}

// IsSpawnFailure reports whether the process never started.
func (e *ProcessFailure) IsSpawnFailure() bool {
	return e.ExitStatus == SpawnFailureStatus
}
