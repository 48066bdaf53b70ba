package docker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/gitkit/internal/model"
)

func TestSocketCandidates(t *testing.T) {
	tests := []struct {
		name       string
		goos       string
		home       string
		runtimeDir string
		want       []string
	}{
		{"linux", "linux", "/home/u", "", []string{"/var/run/docker.sock"}},
		{"linux rootless", "linux", "/home/u", "/run/user/1000", []string{"/run/user/1000/docker.sock", "/var/run/docker.sock"}},
		{"darwin", "darwin", "/Users/u", "", []string{"/var/run/docker.sock", "/Users/u/.docker/run/docker.sock"}},
		{"darwin without home", "darwin", "", "", []string{"/var/run/docker.sock"}},
		{"unsupported", "plan9", "/u", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, socketCandidates(tt.goos, tt.home, tt.runtimeDir))
		})
	}
}

func TestDetectUnixSocket(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "docker.sock")
	require.NoError(t, os.WriteFile(present, nil, 0o600))

	host, err := detectUnixSocket([]string{filepath.Join(dir, "missing.sock"), present})
	require.NoError(t, err)
	assert.Equal(t, "unix://"+present, host)

	_, err = detectUnixSocket([]string{filepath.Join(dir, "missing.sock")})
	assert.Error(t, err)
}

func TestNewClient_UsesDockerHost(t *testing.T) {
	t.Setenv("DOCKER_HOST", "tcp://127.0.0.1:1")

	c, err := NewClient()
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "tcp://127.0.0.1:1", c.Inner().DaemonHost())
}

func TestNewClient_InvalidHost(t *testing.T) {
	t.Setenv("DOCKER_HOST", "not a host")

	_, err := NewClient()
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)
}

func TestPing_Unreachable(t *testing.T) {
	c, err := newClientWithHost("tcp://127.0.0.1:1")
	require.NoError(t, err)
	defer c.Close()

	err = c.Ping(context.Background())
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)
}

func TestClose_ZeroValue(t *testing.T) {
	assert.NoError(t, (&Client{}).Close())
}

type fakeInspectAPI struct {
	resp container.InspectResponse
	err  error
}

func (f fakeInspectAPI) ContainerInspect(_ context.Context, _ string) (container.InspectResponse, error) {
	return f.resp, f.err
}

func inspectWithState(state *container.State) container.InspectResponse {
	return container.InspectResponse{ContainerJSONBase: &container.ContainerJSONBase{State: state}}
}

func TestEnsureRunning(t *testing.T) {
	tests := []struct {
		name    string
		api     fakeInspectAPI
		wantErr string
	}{
		{"running", fakeInspectAPI{resp: inspectWithState(&container.State{Running: true})}, ""},
		{"stopped", fakeInspectAPI{resp: inspectWithState(&container.State{Running: false})}, `container "dev" is not running`},
		{"no state", fakeInspectAPI{resp: container.InspectResponse{}}, `container "dev" is not running`},
		{"missing", fakeInspectAPI{err: errors.New("No such container: dev")}, `container "dev" not found`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ensureRunning(context.Background(), tt.api, "dev")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var cliErr *model.CLIError
			require.True(t, errors.As(err, &cliErr))
			assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
