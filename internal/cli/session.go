package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/gitkit/internal/config"
	"github.com/shinji-kodama/gitkit/internal/docker"
	"github.com/shinji-kodama/gitkit/internal/git"
	"github.com/shinji-kodama/gitkit/internal/logging"
	"github.com/shinji-kodama/gitkit/internal/model"
	"github.com/shinji-kodama/gitkit/internal/terminal"
)

// session bundles everything a subcommand needs to run operations: the
// resolved configuration, the logger and a git session bound to an
// executor.
type session struct {
	cfg      *config.Config
	logger   zerolog.Logger
	executor terminal.Executor
	git      *git.Git
	closers  []io.Closer
}

// overridesFromFlags collects the global flags the user set explicitly so
// unset flags do not mask config files or GITKIT_* variables.
func overridesFromFlags(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	flags := cmd.Flags()
	if flags.Changed("path") {
		o.Path = &global.path
	}
	if flags.Changed("verbose") {
		o.Verbose = &global.verbose
	}
	if flags.Changed("shell") {
		o.Shell = &global.shell
	}
	if flags.Changed("env") {
		o.Env = global.env
	}
	if flags.Changed("container") {
		o.Container = &global.container
	}
	if flags.Changed("timeout") {
		o.Timeout = &global.timeout
	}
	return o
}

// newSession loads the configuration and builds the logger, the executor
// and the git session. The caller must call close.
func newSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, config.Options{
		File:      global.configFile,
		Overrides: overridesFromFlags(cmd),
	})
	if err != nil {
		return nil, err
	}

	logOpts := logging.FromConfig(cfg.Log)
	logOpts.Console = cmd.ErrOrStderr()
	logger, logCloser, err := logging.New(logOpts)
	if err != nil {
		logger.Warn().Err(err).Str("file", cfg.Log.File).Msg("log file unavailable, logging to console only")
	}

	s := &session{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	executor, err := s.newExecutor(ctx)
	if err != nil {
		s.close()
		return nil, err
	}
	s.executor = executor
	s.git = s.newGit(cfg.Path)

	return s, nil
}

// newExecutor returns a Docker exec executor when a container is
// configured, otherwise a local terminal. Dry runs never touch Docker.
func (s *session) newExecutor(ctx context.Context) (terminal.Executor, error) {
	env, err := s.cfg.EnvMap()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidConfig, "invalid env entries", err)
	}
	shell := s.cfg.ShellType()

	if s.cfg.Container == "" || global.dryRun {
		t := terminal.New(shell, env)
		t.Timeout = s.cfg.Timeout
		t.Logger = s.logger.With().Str("component", "terminal").Logger()
		return t, nil
	}

	client, err := docker.NewClient()
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, client)

	if err := client.EnsureRunning(ctx, s.cfg.Container); err != nil {
		return nil, err
	}

	e := docker.NewExecutor(client.Inner(), s.cfg.Container, shell, env)
	e.Timeout = s.cfg.Timeout
	e.Logger = s.logger.With().Str("component", "docker").Str("container", s.cfg.Container).Logger()
	s.logger.Debug().Str("container", s.cfg.Container).Msg("using container executor")
	return e, nil
}

// newGit creates a git session for path that shares the session executor
// and verbose setting.
func (s *session) newGit(path string) *git.Git {
	g := git.New(s.executor, path)
	g.Verbose = s.cfg.Verbose
	g.Logger = s.logger.With().Str("component", "git").Logger()
	return g
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
}

// operationJSON is the --json output of a single operation.
type operationJSON struct {
	Command string `json:"command"`
	Output  string `json:"output"`
	DryRun  bool   `json:"dryRun,omitempty"`
}

// runOperation renders op and, unless --dry-run is set, runs it. The
// command output goes to the command's stdout.
func runOperation(cmd *cobra.Command, op git.Operation) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	out := cmd.OutOrStdout()

	if global.dryRun {
		command := s.git.Render(op)
		if IsJSONOutput() {
			return writeJSON(out, operationJSON{Command: command, DryRun: true})
		}
		fmt.Fprintln(out, command)
		return nil
	}

	output, err := s.git.Run(cmd.Context(), op)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return writeJSON(out, operationJSON{Command: git.RenderCommand(s.git.Path, op), Output: output})
	}
	if output != "" {
		fmt.Fprintln(out, output)
	}
	return nil
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
