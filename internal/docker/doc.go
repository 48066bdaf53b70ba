// Package docker provides Docker Engine API wrappers that let gitkit run
// rendered git commands inside a running container.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Daemon connectivity and container state checks (Ping, EnsureRunning)
//   - Exec sessions: create, attach, demultiplex output, read exit code
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
// Executor implements terminal.Executor, so the command builder does not
// know whether it targets the host or a container.
package docker
