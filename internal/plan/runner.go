package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/shinji-kodama/gitkit/internal/git"
)

// SessionFactory returns the git session a target runs in. The factory
// is called once per target, from the goroutine that runs it.
type SessionFactory func(target Target) *git.Git

// Runner executes plans.
type Runner struct {
	NewSession SessionFactory
	Logger     zerolog.Logger
}

// StepResult records one executed step.
type StepResult struct {
	Index    int           `json:"index"`
	Command  string        `json:"command"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// TargetResult records the steps that ran for one target. Steps after a
// failure are not run and do not appear.
type TargetResult struct {
	Target string       `json:"target"`
	Steps  []StepResult `json:"steps"`
	Error  string       `json:"error,omitempty"`
}

// Result is the outcome of a plan run.
type Result struct {
	RunID   string         `json:"runId"`
	Targets []TargetResult `json:"targets"`
}

// Run executes every target of p. Targets run concurrently up to
// p.Concurrency. The first failing step stops its target and cancels the
// remaining targets before their next step; that first error is returned
// together with the partial result.
func (r *Runner) Run(ctx context.Context, p *Plan) (*Result, error) {
	runID := uuid.NewString()
	logger := r.Logger.With().Str("run_id", runID).Logger()

	result := &Result{
		RunID:   runID,
		Targets: make([]TargetResult, len(p.Targets)),
	}

	limit := p.Concurrency
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, target := range p.Targets {
		result.Targets[i].Target = target.Label(i)

		g.Go(func() error {
			tr := &result.Targets[i]
			err := r.runTarget(gctx, logger, target, tr)
			if err != nil {
				tr.Error = err.Error()
				return fmt.Errorf("target %q: %w", tr.Target, err)
			}
			return nil
		})
	}

	err := g.Wait()
	logger.Debug().Int("targets", len(p.Targets)).Err(err).Msg("plan finished")
	return result, err
}

// runTarget runs the steps of one target in order, appending a StepResult
// for each step that was attempted.
func (r *Runner) runTarget(ctx context.Context, logger zerolog.Logger, target Target, tr *TargetResult) error {
	session := r.NewSession(target)
	logger = logger.With().Str("target", tr.Target).Logger()

	for i, step := range target.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		op, err := step.Operation()
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}

		start := time.Now()
		output, runErr := session.Run(ctx, op)
		sr := StepResult{
			Index:    i + 1,
			Command:  git.RenderCommand(session.Path, op),
			Output:   output,
			Duration: time.Since(start),
		}
		if runErr != nil {
			sr.Error = runErr.Error()
		}
		tr.Steps = append(tr.Steps, sr)

		logger.Debug().Int("step", sr.Index).Str("command", sr.Command).Err(runErr).Msg("step finished")

		if runErr != nil {
			return fmt.Errorf("step %d: %w", i+1, runErr)
		}
	}
	return nil
}
