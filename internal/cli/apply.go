package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/gitkit/internal/git"
	"github.com/shinji-kodama/gitkit/internal/plan"
)

// NewApplyCommand creates the "apply" command, which runs a plan file.
func NewApplyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <plan.yaml>",
		Short: "Run a batch of git operations from a plan file",
		Long: `Run a batch of git operations from a YAML plan file.

Targets run concurrently up to the plan's concurrency; the steps of one
target run in order and stop at the first failure. A target without a
path uses --path.

Examples:
  gitkit apply release.yaml
  gitkit apply release.yaml --dry-run
  gitkit apply release.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, args[0])
		},
	}
}

func runApply(cmd *cobra.Command, path string) error {
	p, err := plan.Load(path)
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	out := cmd.OutOrStdout()
	targetPath := func(t plan.Target) string {
		if t.Path != "" {
			return t.Path
		}
		return s.cfg.Path
	}

	newGit := func(t plan.Target) *git.Git {
		return s.newGit(targetPath(t))
	}

	if global.dryRun {
		return printPlanCommands(out, p, newGit)
	}

	runner := &plan.Runner{
		NewSession: newGit,
		Logger:     s.logger.With().Str("component", "plan").Logger(),
	}

	result, runErr := runner.Run(cmd.Context(), p)
	if IsJSONOutput() {
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		printPlanResult(out, result)
	}
	return runErr
}

// printPlanCommands prints the rendered command of every step without
// running anything. Rendering goes through each target's session, so
// verbose mode emits every command exactly as a real run would.
func printPlanCommands(out io.Writer, p *plan.Plan, newGit plan.SessionFactory) error {
	type dryRunJSON struct {
		Target   string   `json:"target"`
		Commands []string `json:"commands"`
	}

	targets := make([]dryRunJSON, 0, len(p.Targets))
	for i, t := range p.Targets {
		entry := dryRunJSON{Target: t.Label(i), Commands: make([]string, 0, len(t.Steps))}
		session := newGit(t)
		for _, step := range t.Steps {
			// Steps were validated by plan.Load.
			op, err := step.Operation()
			if err != nil {
				return err
			}
			entry.Commands = append(entry.Commands, session.Render(op))
		}
		targets = append(targets, entry)
	}

	if IsJSONOutput() {
		return writeJSON(out, map[string]any{"dryRun": true, "targets": targets})
	}
	for _, t := range targets {
		fmt.Fprintf(out, "# %s\n", t.Target)
		for _, c := range t.Commands {
			fmt.Fprintln(out, c)
		}
	}
	return nil
}

// printPlanResult prints each step as "[target] command", followed by its
// output or error.
func printPlanResult(out io.Writer, result *plan.Result) {
	for _, t := range result.Targets {
		for _, step := range t.Steps {
			fmt.Fprintf(out, "[%s] %s\n", t.Target, step.Command)
			switch {
			case step.Error != "":
				fmt.Fprintf(out, "  failed: %s\n", step.Error)
			case step.Output != "":
				fmt.Fprintln(out, indent(step.Output, "  "))
			}
		}
	}
}

// indent prefixes every line of s with prefix.
func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
