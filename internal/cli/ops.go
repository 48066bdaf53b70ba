package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/gitkit/internal/git"
	"github.com/shinji-kodama/gitkit/internal/model"
)

// NewInitCommand creates the "init" command. Extra arguments are passed to
// git init as-is. With --path the directory is created first.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [args...]",
		Short: "Create an empty repository",
		Long: `Create an empty repository in the working path.

Examples:
  gitkit -C ./work/app init
  gitkit -C ./work/app init -- --initial-branch=main`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, git.Passthrough{Verb: model.VerbInit, Args: strings.Join(args, " ")})
		},
	}
}

// NewAddCommand creates the "add" command, which stages everything.
func NewAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Stage all changes (git add .)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, git.AddAll{})
		},
	}
}

// commitFlags holds the flag values for the commit command.
type commitFlags struct {
	message    string
	allowEmpty bool
}

// NewCommitCommand creates the "commit" command.
func NewCommitCommand() *cobra.Command {
	flags := &commitFlags{}

	cmd := &cobra.Command{
		Use:   "commit -m <message>",
		Short: "Record staged changes",
		Long: `Record staged changes with a message.

The message is wrapped in double quotes without escaping, so it must not
itself contain double quotes.

Examples:
  gitkit commit -m "initial import"
  gitkit commit -m checkpoint --allow-empty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.message == "" {
				return model.NewCLIError(model.ExitGeneralError, "commit message must not be empty")
			}
			return runOperation(cmd, git.Commit{Message: flags.message, AllowEmpty: flags.allowEmpty})
		},
	}

	cmd.Flags().StringVarP(&flags.message, "message", "m", "", "Commit message")
	cmd.Flags().BoolVar(&flags.allowEmpty, "allow-empty", false, "Allow a commit with no changes")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

// NewCloneCommand creates the "clone" command.
func NewCloneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clone <url>",
		Short: "Clone a repository into the working path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, git.Clone{URL: args[0]})
		},
	}
}

// NewCheckoutCommand creates the "checkout" command.
func NewCheckoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <branch>",
		Short: "Switch to a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, git.Checkout{Branch: args[0]})
		},
	}
}

// NewLogCommand creates the "log" command.
func NewLogCommand() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show commit history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 0 {
				return model.NewCLIError(model.ExitGeneralError, fmt.Sprintf("--max-count must not be negative, got %d", count))
			}
			return runOperation(cmd, git.Log{Count: count})
		},
	}

	cmd.Flags().IntVarP(&count, "max-count", "n", 0, "Limit the number of commits (0 shows all)")
	return cmd
}

// remoteArgs splits the optional [remote [branch]] arguments of push and
// pull.
func remoteArgs(args []string) (remote, branch string) {
	if len(args) > 0 {
		remote = args[0]
	}
	if len(args) > 1 {
		branch = args[1]
	}
	return remote, branch
}

// NewPushCommand creates the "push" command.
func NewPushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push [remote [branch]]",
		Short: "Update the remote",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			remote, branch := remoteArgs(args)
			return runOperation(cmd, git.Push{Remote: remote, Branch: branch})
		},
	}
}

// NewPullCommand creates the "pull" command.
func NewPullCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pull [remote [branch]]",
		Short: "Fetch from and integrate with the remote",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			remote, branch := remoteArgs(args)
			return runOperation(cmd, git.Pull{Remote: remote, Branch: branch})
		},
	}
}

// NewMergeCommand creates the "merge" command.
func NewMergeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <branch>",
		Short: "Merge a branch into the current branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, git.Merge{Branch: args[0]})
		},
	}
}

// NewBranchCommand creates the "branch" command group with its create and
// delete subcommands.
func NewBranchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Create or delete branches",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a branch and switch to it (git checkout -b)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, git.CreateBranch{Branch: args[0]})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Force-delete a branch (git branch -D)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, git.DeleteBranch{Branch: args[0]})
		},
	})

	return cmd
}

// NewTagCommand creates the "tag" command.
func NewTagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tag <name>",
		Short: "Create a lightweight tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, git.Tag{Name: args[0]})
		},
	}
}

// NewExecCommand creates the "exec" command, which runs any supported
// verb with free-form arguments.
func NewExecCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <verb> [args...]",
		Short: "Run a git verb with raw arguments",
		Long: `Run a git verb with raw arguments. The arguments are joined with
single spaces and are not quoted.

Valid verbs: ` + verbList() + `

Examples:
  gitkit exec status -- --short
  gitkit exec fetch -- --all --prune`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verb, err := model.ParseVerb(args[0])
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "unsupported verb", err)
			}
			return runOperation(cmd, git.Passthrough{Verb: verb, Args: strings.Join(args[1:], " ")})
		},
	}
}

// NewRawCommand creates the "raw" command, which appends its text after
// "git" verbatim.
func NewRawCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "raw <text...>",
		Short: "Run git with a verbatim argument string",
		Long: `Run git with a verbatim argument string.

Examples:
  gitkit raw "status --porcelain"
  gitkit raw -- rev-parse --abbrev-ref HEAD`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, git.Raw{Text: strings.Join(args, " ")})
		},
	}
}

func verbList() string {
	verbs := model.Verbs()
	names := make([]string, len(verbs))
	for i, v := range verbs {
		names[i] = v.String()
	}
	return strings.Join(names, ", ")
}
