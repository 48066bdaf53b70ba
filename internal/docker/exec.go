package docker

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"

	"github.com/shinji-kodama/gitkit/internal/model"
	"github.com/shinji-kodama/gitkit/internal/terminal"
)

// inspectPollInterval is how often Execute re-checks an exec session that
// still reports Running after its output stream closed.
const inspectPollInterval = 50 * time.Millisecond

// ExecAPI is the subset of the Docker SDK client used to run commands in
// a container. *client.Client satisfies it.
type ExecAPI interface {
	ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, options container.ExecAttachOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
}

// Executor runs rendered command strings inside a running container via
// the Docker exec API. It implements terminal.Executor, so a command
// builder can target a container the same way it targets the host.
type Executor struct {
	api ExecAPI

	// Container is the ID or name of the target container.
	Container string

	// Shell selects the interpreter inside the container. Empty means sh.
	Shell model.ShellType

	// Env is added to the container's environment for every command.
	Env map[string]string

	// WorkingDir is the initial directory of the exec session. Empty uses
	// the container's configured working directory.
	WorkingDir string

	// Timeout bounds each command when the context carries no deadline.
	// Zero disables the timeout.
	Timeout time.Duration

	// Logger receives debug traces of exec sessions.
	Logger zerolog.Logger
}

var _ terminal.Executor = (*Executor)(nil)

// NewExecutor creates an Executor that runs commands in containerName.
func NewExecutor(api ExecAPI, containerName string, shell model.ShellType, env map[string]string) *Executor {
	return &Executor{
		api:       api,
		Container: containerName,
		Shell:     shell,
		Env:       env,
		Logger:    zerolog.Nop(),
	}
}

// Execute runs command as "<shell> -c <command>" in the container and
// returns its trimmed standard output.
//
// A non-zero exit yields a *model.ProcessFailure with the exit code and
// captured stderr. Failures of the Docker API itself yield a
// ProcessFailure with model.SpawnFailureStatus.
func (e *Executor) Execute(ctx context.Context, command string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	created, err := e.api.ContainerExecCreate(ctx, e.Container, container.ExecOptions{
		Cmd:          []string{e.Shell.Binary(), "-c", command},
		Env:          terminal.EnvList(e.Env),
		WorkingDir:   e.WorkingDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", e.apiFailure(command, "create exec", err)
	}

	attached, err := e.api.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", e.apiFailure(command, "attach exec", err)
	}
	defer attached.Close()

	// Reads on the hijacked connection ignore ctx; closing it unblocks
	// StdCopy when the command outlives its deadline.
	stop := context.AfterFunc(ctx, attached.Close)
	defer stop()

	// Without a TTY the stream is multiplexed; StdCopy splits it back into
	// stdout and stderr.
	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attached.Reader); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", e.apiFailure(command, "read exec output", err)
	}

	inspect, err := e.waitExit(ctx, created.ID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", e.apiFailure(command, "inspect exec", err)
	}

	e.Logger.Debug().
		Str("container", e.Container).
		Str("exec_id", created.ID).
		Str("command", command).
		Int("exit_code", inspect.ExitCode).
		Msg("exec finished")

	if inspect.ExitCode != 0 {
		return "", &model.ProcessFailure{
			Command:    command,
			ExitStatus: inspect.ExitCode,
			Stderr:     strings.TrimSpace(stderr.String()),
			Err:        fmt.Errorf("exec in container %q exited with status %d", e.Container, inspect.ExitCode),
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// waitExit inspects the exec session until it reports it is no longer
// running. The output stream usually closes after the process exits, so
// the first inspect normally suffices.
func (e *Executor) waitExit(ctx context.Context, execID string) (container.ExecInspect, error) {
	for {
		inspect, err := e.api.ContainerExecInspect(ctx, execID)
		if err != nil {
			return container.ExecInspect{}, err
		}
		if !inspect.Running {
			return inspect, nil
		}

		select {
		case <-ctx.Done():
			return container.ExecInspect{}, ctx.Err()
		case <-time.After(inspectPollInterval):
		}
	}
}

func (e *Executor) apiFailure(command, step string, err error) *model.ProcessFailure {
	return &model.ProcessFailure{
		Command:    command,
		ExitStatus: model.SpawnFailureStatus,
		Err:        fmt.Errorf("%s in container %q: %w", step, e.Container, err),
	}
}
