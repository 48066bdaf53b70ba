package terminal

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/gitkit/internal/model"
)

// requireShell skips the test when no POSIX shell is on PATH, which keeps
// the suite usable on minimal CI images.
func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecute_ReturnsTrimmedStdout(t *testing.T) {
	requireShell(t)
	term := New(model.ShellSh, nil)

	out, err := term.Execute(context.Background(), "echo hello && echo world")
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", out)
}

func TestExecute_NonZeroExit(t *testing.T) {
	requireShell(t)
	term := New(model.ShellSh, nil)

	out, err := term.Execute(context.Background(), "echo partial; echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Empty(t, out, "output must be empty on failure")

	var pf *model.ProcessFailure
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, 3, pf.ExitStatus)
	assert.Equal(t, "boom", pf.Stderr)
	assert.Equal(t, "echo partial; echo boom >&2; exit 3", pf.Command)
	assert.False(t, pf.IsSpawnFailure())
}

func TestExecute_AppliesEnvironment(t *testing.T) {
	requireShell(t)
	term := New(model.ShellSh, map[string]string{
		"GITKIT_TEST_A": "alpha",
		"GITKIT_TEST_B": "beta",
	})

	out, err := term.Execute(context.Background(), `echo "$GITKIT_TEST_A-$GITKIT_TEST_B"`)
	require.NoError(t, err)
	assert.Equal(t, "alpha-beta", out)
}

func TestExecute_UsesDir(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o644))

	term := New(model.ShellSh, nil)
	term.Dir = dir

	out, err := term.Execute(context.Background(), "ls")
	require.NoError(t, err)
	assert.Equal(t, "marker.txt", out)
}

func TestExecute_SpawnFailure(t *testing.T) {
	term := New(model.ShellType("gitkit-no-such-shell"), nil)

	out, err := term.Execute(context.Background(), "echo hi")
	require.Error(t, err)
	assert.Empty(t, out)

	var pf *model.ProcessFailure
	require.True(t, errors.As(err, &pf))
	assert.True(t, pf.IsSpawnFailure())
	assert.Equal(t, model.SpawnFailureStatus, pf.ExitStatus)
}

func TestExecute_Timeout(t *testing.T) {
	requireShell(t)
	term := New(model.ShellSh, nil)
	term.Timeout = 50 * time.Millisecond

	_, err := term.Execute(context.Background(), "sleep 5")
	require.Error(t, err)

	var pf *model.ProcessFailure
	require.True(t, errors.As(err, &pf))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEnvList_Sorted(t *testing.T) {
	got := EnvList(map[string]string{"B": "2", "A": "1", "C": "x=y"})
	assert.Equal(t, []string{"A=1", "B=2", "C=x=y"}, got)
	assert.Empty(t, EnvList(nil))
}

// stubExecutor returns a canned result and counts invocations.
type stubExecutor struct {
	output string
	err    error
	calls  int
}

func (s *stubExecutor) Execute(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.output, s.err
}

func TestGo_InvokesCompletionOnce(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		stub := &stubExecutor{output: "ok"}
		done := make(chan struct{}, 2)

		var gotOut string
		var gotErr error
		Go(context.Background(), stub, "git status", func(out string, err error) {
			gotOut, gotErr = out, err
			done <- struct{}{}
		})

		<-done
		assert.Equal(t, "ok", gotOut)
		assert.NoError(t, gotErr)
		assert.Len(t, done, 0, "completion must run exactly once")
		assert.Equal(t, 1, stub.calls)
	})

	t.Run("failure drops output", func(t *testing.T) {
		failure := &model.ProcessFailure{Command: "git push", ExitStatus: 1}
		stub := &stubExecutor{output: "ignored", err: failure}
		done := make(chan struct{}, 2)

		var gotOut string
		var gotErr error
		Go(context.Background(), stub, "git push", func(out string, err error) {
			gotOut, gotErr = out, err
			done <- struct{}{}
		})

		<-done
		assert.Empty(t, gotOut)
		assert.Same(t, failure, gotErr)
		assert.Len(t, done, 0)
	})
}
