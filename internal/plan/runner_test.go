package plan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/gitkit/internal/git"
	"github.com/shinji-kodama/gitkit/internal/model"
)

// scriptedExecutor echoes every command back as its output and fails any
// command containing failOn.
type scriptedExecutor struct {
	mu       sync.Mutex
	failOn   string
	commands []string
}

func (s *scriptedExecutor) Execute(_ context.Context, command string) (string, error) {
	s.mu.Lock()
	s.commands = append(s.commands, command)
	s.mu.Unlock()

	if s.failOn != "" && strings.Contains(command, s.failOn) {
		return "", &model.ProcessFailure{Command: command, ExitStatus: 1, Stderr: "rejected"}
	}
	return "ran: " + command, nil
}

func (s *scriptedExecutor) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func newRunner(exec *scriptedExecutor) *Runner {
	return &Runner{
		NewSession: func(target Target) *git.Git {
			return git.New(exec, target.Path)
		},
		Logger: zerolog.Nop(),
	}
}

func TestRunner_RunsAllTargets(t *testing.T) {
	p, err := Parse(strings.NewReader(samplePlan))
	require.NoError(t, err)

	exec := &scriptedExecutor{}
	result, err := newRunner(exec).Run(context.Background(), p)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(result.RunID)
	assert.NoError(t, parseErr, "run ID should be a UUID")

	require.Len(t, result.Targets, 2)

	app := result.Targets[0]
	assert.Equal(t, "app", app.Target)
	assert.Empty(t, app.Error)
	require.Len(t, app.Steps, 4)
	assert.Equal(t, "mkdir -p /work/app && cd /work/app && git clone https://example.com/app.git", app.Steps[0].Command)
	assert.Equal(t, "cd /work/app && git checkout -b release", app.Steps[1].Command)
	assert.Equal(t, `cd /work/app && git commit -m "bump version" --allow-empty`, app.Steps[2].Command)
	assert.Equal(t, "cd /work/app && git push origin release", app.Steps[3].Command)
	assert.Equal(t, "ran: "+app.Steps[3].Command, app.Steps[3].Output)

	lib := result.Targets[1]
	require.Len(t, lib.Steps, 2)
	assert.Equal(t, "cd /work/lib && git fetch --all", lib.Steps[0].Command)
	assert.Equal(t, "cd /work/lib && git log -3", lib.Steps[1].Command)

	assert.Len(t, exec.recorded(), 6)
}

func TestRunner_StopsTargetAtFirstFailure(t *testing.T) {
	p := &Plan{
		Concurrency: 1,
		Targets: []Target{
			{Name: "first", Path: "/a", Steps: []Step{
				{Op: OpAddAll},
				{Op: OpPush, Remote: "origin"},
				{Op: OpTag, Name: "never"},
			}},
			{Name: "second", Path: "/b", Steps: []Step{
				{Op: OpAddAll},
			}},
		},
	}

	exec := &scriptedExecutor{failOn: "git push"}
	result, err := newRunner(exec).Run(context.Background(), p)
	require.Error(t, err)

	var pf *model.ProcessFailure
	require.True(t, errors.As(err, &pf), "the process failure must survive wrapping")
	assert.Contains(t, err.Error(), `target "first": step 2`)

	first := result.Targets[0]
	require.Len(t, first.Steps, 2)
	assert.Empty(t, first.Steps[0].Error)
	assert.Contains(t, first.Steps[1].Error, "rejected")
	assert.Empty(t, first.Steps[1].Output)
	assert.NotEmpty(t, first.Error)

	for _, cmd := range exec.recorded() {
		assert.NotContains(t, cmd, "never", "steps after a failure must not run")
		assert.NotContains(t, cmd, "/b", "with concurrency 1 the next target is cancelled")
	}
	assert.Empty(t, result.Targets[1].Steps)
	assert.Equal(t, "second", result.Targets[1].Target)
}

func TestRunner_CancelledContext(t *testing.T) {
	p := &Plan{Targets: []Target{{Path: "/a", Steps: []Step{{Op: OpAddAll}}}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &scriptedExecutor{}
	result, err := newRunner(exec).Run(ctx, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, exec.recorded())
	assert.Empty(t, result.Targets[0].Steps)
}

func TestRunner_VerboseSessionsEmitOncePerStep(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	sink := zerolog.New(zerolog.SyncWriter(writerFunc(func(b []byte) {
		mu.Lock()
		lines = append(lines, string(b))
		mu.Unlock()
	})))

	exec := &scriptedExecutor{}
	r := &Runner{
		NewSession: func(target Target) *git.Git {
			g := git.New(exec, target.Path)
			g.Verbose = true
			g.Logger = sink
			return g
		},
		Logger: zerolog.Nop(),
	}

	p := &Plan{Targets: []Target{{Path: "/a", Steps: []Step{{Op: OpAddAll}, {Op: OpTag, Name: "v1"}}}}}
	_, err := r.Run(context.Background(), p)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, lines, 2)
}

// writerFunc adapts a function to io.Writer.
type writerFunc func([]byte)

func (f writerFunc) Write(b []byte) (int, error) {
	f(append([]byte(nil), b...))
	return len(b), nil
}
