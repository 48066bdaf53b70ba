package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/shinji-kodama/gitkit/internal/model"
)

// defaultPingTimeout bounds Ping. Docker Desktop on macOS can take a few
// seconds to answer.
const defaultPingTimeout = 5 * time.Second

// windowsPipe is the default Docker Engine named pipe on Windows.
const windowsPipe = `//./pipe/docker_engine`

// Client wraps the Docker Engine SDK client used to reach the container
// that commands run in.
//
//	c, err := docker.NewClient()
//	if err != nil { /* handle */ }
//	defer c.Close()
//	if err := c.EnsureRunning(ctx, "dev"); err != nil { /* handle */ }
type Client struct {
	inner *client.Client
}

// NewClient connects to DOCKER_HOST when set, otherwise to the first
// platform socket that exists (see socketCandidates). Failures are
// returned as a model.CLIError with ExitDockerNotRunning.
func NewClient() (*Client, error) {
	if host := os.Getenv("DOCKER_HOST"); host != "" {
		return newClientWithHost(host)
	}

	host, err := detectDockerHost()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning, "Docker socket not found", err)
	}
	return newClientWithHost(host)
}

// newClientWithHost creates a client for host with API version
// negotiation. No connection is made until the first request.
func newClientWithHost(host string) (*Client, error) {
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host),
			err,
		)
	}
	return &Client{inner: c}, nil
}

// socketCandidates lists the unix socket paths probed on goos, most
// specific first. Rootless Docker listens under XDG_RUNTIME_DIR and newer
// Docker Desktop releases under the home directory.
func socketCandidates(goos, home, runtimeDir string) []string {
	var paths []string
	switch goos {
	case "linux":
		if runtimeDir != "" {
			paths = append(paths, filepath.Join(runtimeDir, "docker.sock"))
		}
		paths = append(paths, "/var/run/docker.sock")
	case "darwin":
		paths = append(paths, "/var/run/docker.sock")
		if home != "" {
			paths = append(paths, filepath.Join(home, ".docker", "run", "docker.sock"))
		}
	}
	return paths
}

// detectDockerHost returns the Docker host URI for this platform.
// Connectivity is verified later by Ping.
func detectDockerHost() (string, error) {
	if runtime.GOOS == "windows" {
		// os.Stat does not work on named pipes, so dial briefly instead.
		conn, err := net.DialTimeout("pipe", windowsPipe, time.Second)
		if err != nil {
			return "", fmt.Errorf("Docker named pipe not found at %s: %w", windowsPipe, err)
		}
		_ = conn.Close()
		return "npipe://" + windowsPipe, nil
	}

	home, _ := os.UserHomeDir()
	paths := socketCandidates(runtime.GOOS, home, os.Getenv("XDG_RUNTIME_DIR"))
	if len(paths) == 0 {
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return detectUnixSocket(paths)
}

// detectUnixSocket returns the host URI of the first existing path.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("Docker socket not found at any of: %v, is Docker running?", paths)
}

// Ping checks that the daemon answers within defaultPingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(model.ExitDockerNotRunning, "Docker daemon is not responding, is Docker running?", err)
	}
	return nil
}

// InspectAPI is the part of the Docker client EnsureRunning needs.
type InspectAPI interface {
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
}

// EnsureRunning pings the daemon and checks that name is a running
// container, so a bad --container fails before any command is rendered.
func (c *Client) EnsureRunning(ctx context.Context, name string) error {
	if err := c.Ping(ctx); err != nil {
		return err
	}
	return ensureRunning(ctx, c.inner, name)
}

func ensureRunning(ctx context.Context, api InspectAPI, name string) error {
	resp, err := api.ContainerInspect(ctx, name)
	if err != nil {
		return model.WrapCLIError(model.ExitDockerNotRunning, fmt.Sprintf("container %q not found", name), err)
	}
	if resp.ContainerJSONBase == nil || resp.State == nil || !resp.State.Running {
		return model.NewCLIError(model.ExitDockerNotRunning, fmt.Sprintf("container %q is not running", name))
	}
	return nil
}

// Close releases the client. It is safe to call more than once.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// Inner returns the underlying SDK client. It satisfies ExecAPI and is
// what NewExecutor is normally given.
func (c *Client) Inner() *client.Client {
	return c.inner
}
