// Package terminal runs rendered command strings on the host through a
// shell and reports failures as model.ProcessFailure.
//
// The Executor interface is the seam between the command builder and the
// process layer. Terminal is the local implementation; internal/docker
// provides one that runs inside a container. Go adapts any Executor to a
// callback-based, non-blocking call.
package terminal
