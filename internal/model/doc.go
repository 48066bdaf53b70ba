// Package model defines the domain types and value objects for the
// gitkit CLI.
//
// This package contains pure data structures with no external dependencies:
// the git subcommand vocabulary (Verb), the shell used to run rendered
// command strings (ShellType), process exit codes (ExitCode), and the two
// error types that cross package boundaries.
//
// ProcessFailure is the single failure kind produced by command execution.
// CLIError carries an exit code so the CLI layer can translate domain
// errors into proper OS process exit codes.
package model
