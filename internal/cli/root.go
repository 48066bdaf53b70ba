// Package cli implements the cobra-based CLI commands for gitkit.
//
// Every git operation the builder knows is exposed as a subcommand that
// renders the command and runs it through the session's executor. This
// file defines the root command, the global flags and the error-to-exit
// code translation.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/gitkit/internal/model"
)

// globalFlags holds the persistent flags shared by every subcommand.
// Each field is bound to a cobra persistent flag on the root command.
type globalFlags struct {
	// configFile is an explicit config file; empty means discovery.
	configFile string

	path      string
	verbose   bool
	shell     string
	env       []string
	container string
	timeout   time.Duration

	// dryRun prints the rendered command instead of executing it.
	dryRun bool

	// jsonOutput switches command output and errors to JSON.
	jsonOutput bool
}

// global is the flag state of the most recently built root command.
var global = &globalFlags{}

// Version, Commit and Date are set at build time via ldflags and injected
// from the main package.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates the root cobra command with all subcommands
// registered.
func NewRootCommand() *cobra.Command {
	global = &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "gitkit",
		Short: "Render and run git commands in a working directory",
		Long: `gitkit renders git command lines of the form

  [mkdir -p <path> &&] [cd <path> &&] git <verb> [args...]

and runs them through a shell on this host or inside a Docker container.
Use --dry-run to print the rendered command without running it.`,

		// Errors are formatted by Execute, in text or JSON.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&global.configFile, "config", "", "Config file (default: .gitkit.yaml, then ~/.config/gitkit/config.yaml)")
	pf.StringVarP(&global.path, "path", "C", "", "Working directory the git command changes into")
	pf.BoolVarP(&global.verbose, "verbose", "v", false, "Log every rendered command before it runs")
	pf.StringVar(&global.shell, "shell", "", "Shell that runs commands: sh, bash, zsh")
	pf.StringArrayVar(&global.env, "env", nil, "Extra environment entry KEY=VALUE (repeatable)")
	pf.StringVar(&global.container, "container", "", "Run commands inside this Docker container")
	pf.DurationVar(&global.timeout, "timeout", 0, "Per-command timeout, e.g. 30s (0 disables)")
	pf.BoolVar(&global.dryRun, "dry-run", false, "Print the rendered command without running it")
	pf.BoolVar(&global.jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewAddCommand())
	rootCmd.AddCommand(NewCommitCommand())
	rootCmd.AddCommand(NewCloneCommand())
	rootCmd.AddCommand(NewCheckoutCommand())
	rootCmd.AddCommand(NewLogCommand())
	rootCmd.AddCommand(NewPushCommand())
	rootCmd.AddCommand(NewPullCommand())
	rootCmd.AddCommand(NewMergeCommand())
	rootCmd.AddCommand(NewBranchCommand())
	rootCmd.AddCommand(NewTagCommand())
	rootCmd.AddCommand(NewExecCommand())
	rootCmd.AddCommand(NewRawCommand())
	rootCmd.AddCommand(NewApplyCommand())

	return rootCmd
}

// Execute runs the root command and exits with the code that matches the
// returned error.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(int(exitCodeFor(err)))
	}
}

// exitCodeFor maps an error to a process exit code. CLIError carries its
// own code; a failed git process maps to ExitGitError.
func exitCodeFor(err error) model.ExitCode {
	if err == nil {
		return model.ExitSuccess
	}
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	var failure *model.ProcessFailure
	if errors.As(err, &failure) {
		return model.ExitGitError
	}
	return model.ExitGeneralError
}

// errorJSON is the JSON shape of an error written with --json.
type errorJSON struct {
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	Code       int    `json:"code"`
	Command    string `json:"command,omitempty"`
	ExitStatus *int   `json:"exitStatus,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
}

// printError writes err to w, as "Error: ..." text or as a JSON object
// depending on the --json flag.
func printError(w io.Writer, err error) {
	message := err.Error()
	var detail string
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		message = cliErr.Message
		if cliErr.Err != nil {
			detail = cliErr.Err.Error()
		}
	}

	if !global.jsonOutput {
		if detail != "" {
			fmt.Fprintf(w, "Error: %s: %s\n", message, detail)
		} else {
			fmt.Fprintf(w, "Error: %s\n", message)
		}
		return
	}

	obj := errorJSON{Message: message, Detail: detail, Code: int(exitCodeFor(err))}
	var failure *model.ProcessFailure
	if errors.As(err, &failure) {
		status := failure.ExitStatus
		obj.Command = failure.Command
		obj.ExitStatus = &status
		obj.Stderr = failure.Stderr
	}

	// stdout stays reserved for command output, even in JSON mode.
	data, _ := json.MarshalIndent(map[string]errorJSON{"error": obj}, "", "  ")
	fmt.Fprintln(w, string(data))
}

// IsJSONOutput reports whether the --json flag is set.
func IsJSONOutput() bool {
	return global.jsonOutput
}
