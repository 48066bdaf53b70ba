package git

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shinji-kodama/gitkit/internal/terminal"
)

// Binary is the executable name placed before every operation.
const Binary = "git"

// Git is the caller-owned session for rendering and running operations.
//
// Path and Verbose are plain fields and may be reassigned between calls;
// Git itself never writes to them. Concurrent calls are safe as long as
// the caller does not mutate the fields while a call is in flight.
type Git struct {
	// Path is the working directory the command changes into. Empty means
	// the command runs wherever the executor runs it.
	Path string

	// Verbose makes every Render emit the rendered command to Logger,
	// regardless of the logger's level.
	Verbose bool

	// Logger is the sink for verbose emissions.
	Logger zerolog.Logger

	// executor runs rendered commands. It owns the shell type and the
	// environment mapping.
	executor terminal.Executor
}

// New creates a session bound to executor with the given working path.
// The logger defaults to a no-op logger; assign Logger to observe
// verbose output.
func New(executor terminal.Executor, path string) *Git {
	return &Git{
		Path:     path,
		Logger:   zerolog.Nop(),
		executor: executor,
	}
}

// Executor returns the executor the session dispatches to.
func (g *Git) Executor() terminal.Executor {
	return g.executor
}

// Render returns the full command string for op under the current
// session. When Verbose is set the string is logged exactly once.
func (g *Git) Render(op Operation) string {
	command := RenderCommand(g.Path, op)
	if g.Verbose {
		// Log() bypasses the level filter; only a disabled logger drops it.
		g.Logger.Log().
			Str(zerolog.LevelFieldName, zerolog.InfoLevel.String()).
			Msg(command)
	}
	return command
}

// RenderCommand is the pure rendering function behind Render.
//
// With a non-empty path every command is prefixed with "cd <path> &&";
// init and clone additionally get "mkdir -p <path> &&" in front so the
// directory exists first.
func RenderCommand(path string, op Operation) string {
	tokens := make([]string, 0, 8)
	if path != "" {
		if createsDirectory(op) {
			tokens = append(tokens, "mkdir", "-p", path, "&&")
		}
		tokens = append(tokens, "cd", path, "&&")
	}
	tokens = append(tokens, Binary)
	tokens = append(tokens, op.Tokens()...)
	return strings.Join(tokens, " ")
}

// Run renders op and executes it, blocking until the process exits.
// Errors from the executor are returned unchanged.
func (g *Git) Run(ctx context.Context, op Operation) (string, error) {
	return g.executor.Execute(ctx, g.Render(op))
}

// RunAsync renders op on the calling goroutine, then executes it in the
// background. completion is invoked exactly once, from another goroutine,
// with either the output or the error.
func (g *Git) RunAsync(ctx context.Context, op Operation, completion terminal.Completion) {
	terminal.Go(ctx, g.executor, g.Render(op), completion)
}
