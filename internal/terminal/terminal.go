package terminal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shinji-kodama/gitkit/internal/model"
)

// pipeWaitDelay caps how long Execute waits for output pipes to close once
// the shell process has exited or been killed.
const pipeWaitDelay = 2 * time.Second

// Executor runs a complete command string and returns its captured
// standard output. Failures are reported as *model.ProcessFailure.
type Executor interface {
	Execute(ctx context.Context, command string) (string, error)
}

// Completion receives the result of a non-blocking execution. Exactly one
// of output and err is meaningful: on failure output is empty.
type Completion func(output string, err error)

// Terminal executes commands on the local host via "<shell> -c".
//
// The zero value runs commands through sh in the current directory with
// the inherited environment and no timeout.
type Terminal struct {
	// Shell selects the interpreter. Empty means sh.
	Shell model.ShellType

	// Env is added on top of os.Environ() for every command.
	Env map[string]string

	// Dir is the working directory of the shell process. Empty means the
	// current directory of this process.
	Dir string

	// Timeout bounds each command when the context carries no deadline.
	// Zero disables the timeout.
	Timeout time.Duration

	// Logger receives debug traces of spawned processes.
	Logger zerolog.Logger
}

// New creates a Terminal for the given shell and environment mapping.
func New(shell model.ShellType, env map[string]string) *Terminal {
	return &Terminal{Shell: shell, Env: env, Logger: zerolog.Nop()}
}

// Execute runs command through the configured shell and returns its
// standard output with surrounding whitespace trimmed.
func (t *Terminal) Execute(ctx context.Context, command string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, ok := ctx.Deadline(); !ok && t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	// #nosec G204 -- running the rendered command is the purpose of this type
	cmd := exec.CommandContext(ctx, t.Shell.Binary(), "-c", command)
	if t.Dir != "" {
		cmd.Dir = t.Dir
	}
	if len(t.Env) > 0 {
		cmd.Env = append(os.Environ(), EnvList(t.Env)...)
	}

	// Children of the shell can outlive it and hold the output pipes open
	// after a timeout kill.
	cmd.WaitDelay = pipeWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	t.Logger.Debug().
		Str("shell", t.Shell.Binary()).
		Str("command", command).
		Dur("elapsed", time.Since(start)).
		Err(err).
		Msg("process finished")

	if err != nil {
		return "", newFailure(ctx, command, stderr.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// newFailure classifies an exec error into a ProcessFailure. Anything other
// than an *exec.ExitError means the process never ran to completion on its
// own terms and is reported with SpawnFailureStatus.
func newFailure(ctx context.Context, command, stderr string, err error) *model.ProcessFailure {
	failure := &model.ProcessFailure{
		Command:    command,
		ExitStatus: model.SpawnFailureStatus,
		Stderr:     strings.TrimSpace(stderr),
		Err:        err,
	}

	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		failure.Err = ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		failure.ExitStatus = exitErr.ExitCode()
	}
	return failure
}

// EnvList converts an environment mapping to sorted KEY=VALUE entries so
// the child environment is deterministic.
func EnvList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// Go runs command on executor in a new goroutine and invokes completion
// exactly once with either the output or the error.
func Go(ctx context.Context, executor Executor, command string, completion Completion) {
	go func() {
		output, err := executor.Execute(ctx, command)
		if err != nil {
			completion("", err)
			return
		}
		completion(output, nil)
	}()
}
