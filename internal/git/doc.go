// Package git renders semantic git operations into literal shell command
// strings and dispatches them to a terminal.Executor.
//
// The package never runs processes itself. Operation values describe one
// action each (commit, push, create-branch, ...); Git holds the
// caller-owned session (working path, verbosity, logger, executor) and
// offers a blocking Run and a callback-based RunAsync over the same
// rendering.
//
// Rendering is bit-exact with what the git CLI expects:
//
//	[mkdir -p <path> &&] [cd <path> &&] git <verb> [args...]
package git
