// Package main is the entry point for the gitkit CLI.
//
// All commands live in internal/cli. version, commit and date are set at
// build time via -ldflags "-X main.version=...".
package main

import (
	"github.com/shinji-kodama/gitkit/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
