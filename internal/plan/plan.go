// Package plan loads and runs batch files of git operations.
//
// A plan is a YAML document listing targets (working paths) and, for each
// target, an ordered list of steps. Every step maps to exactly one
// git.Operation. Targets run concurrently up to a configured limit; steps
// within a target run in order.
//
//	concurrency: 2
//	targets:
//	  - path: ./work/app
//	    steps:
//	      - op: clone
//	        url: https://example.com/app.git
//	      - op: commit
//	        message: initial
//	        allow_empty: true
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/gitkit/internal/git"
	"github.com/shinji-kodama/gitkit/internal/model"
)

// Step op names.
const (
	OpExec         = "exec"
	OpInit         = "init"
	OpAddAll       = "add-all"
	OpCommit       = "commit"
	OpClone        = "clone"
	OpCheckout     = "checkout"
	OpLog          = "log"
	OpPush         = "push"
	OpPull         = "pull"
	OpMerge        = "merge"
	OpCreateBranch = "create-branch"
	OpDeleteBranch = "delete-branch"
	OpTag          = "tag"
	OpRaw          = "raw"
)

// Plan is a parsed plan file.
type Plan struct {
	// Concurrency is the maximum number of targets running at once.
	// Values below 1 are treated as 1.
	Concurrency int `yaml:"concurrency"`

	Targets []Target `yaml:"targets"`
}

// Target is one working path and the steps to run in it.
type Target struct {
	// Name labels the target in results and logs. Defaults to Path.
	Name string `yaml:"name,omitempty"`

	// Path has the same meaning as git.Git.Path; empty runs in the
	// executor's directory.
	Path string `yaml:"path,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step is the YAML form of one operation. Only the fields relevant to Op
// are read.
type Step struct {
	Op string `yaml:"op"`

	Verb       string `yaml:"verb,omitempty"`
	Args       string `yaml:"args,omitempty"`
	Message    string `yaml:"message,omitempty"`
	AllowEmpty bool   `yaml:"allow_empty,omitempty"`
	URL        string `yaml:"url,omitempty"`
	Branch     string `yaml:"branch,omitempty"`
	Remote     string `yaml:"remote,omitempty"`
	Count      int    `yaml:"count,omitempty"`
	Name       string `yaml:"name,omitempty"`
	Text       string `yaml:"text,omitempty"`
}

// Label returns the target name, falling back to its path and then to
// "target-<index>".
func (t Target) Label(index int) string {
	switch {
	case t.Name != "":
		return t.Name
	case t.Path != "":
		return t.Path
	default:
		return fmt.Sprintf("target-%d", index)
	}
}

// Operation converts the step into a git.Operation, checking that the
// fields required by its op are present.
func (s Step) Operation() (git.Operation, error) {
	switch s.Op {
	case OpExec:
		verb, err := model.ParseVerb(s.Verb)
		if err != nil {
			return nil, err
		}
		return git.Passthrough{Verb: verb, Args: s.Args}, nil
	case OpInit:
		return git.Passthrough{Verb: model.VerbInit, Args: s.Args}, nil
	case OpAddAll:
		return git.AddAll{}, nil
	case OpCommit:
		if s.Message == "" {
			return nil, missingField(s.Op, "message")
		}
		return git.Commit{Message: s.Message, AllowEmpty: s.AllowEmpty}, nil
	case OpClone:
		if s.URL == "" {
			return nil, missingField(s.Op, "url")
		}
		return git.Clone{URL: s.URL}, nil
	case OpCheckout:
		if s.Branch == "" {
			return nil, missingField(s.Op, "branch")
		}
		return git.Checkout{Branch: s.Branch}, nil
	case OpLog:
		if s.Count < 0 {
			return nil, fmt.Errorf("%s: count must not be negative", s.Op)
		}
		return git.Log{Count: s.Count}, nil
	case OpPush:
		if s.Branch != "" && s.Remote == "" {
			return nil, missingField(s.Op, "remote (required when branch is set)")
		}
		return git.Push{Remote: s.Remote, Branch: s.Branch}, nil
	case OpPull:
		if s.Branch != "" && s.Remote == "" {
			return nil, missingField(s.Op, "remote (required when branch is set)")
		}
		return git.Pull{Remote: s.Remote, Branch: s.Branch}, nil
	case OpMerge:
		if s.Branch == "" {
			return nil, missingField(s.Op, "branch")
		}
		return git.Merge{Branch: s.Branch}, nil
	case OpCreateBranch:
		if s.Branch == "" {
			return nil, missingField(s.Op, "branch")
		}
		return git.CreateBranch{Branch: s.Branch}, nil
	case OpDeleteBranch:
		if s.Branch == "" {
			return nil, missingField(s.Op, "branch")
		}
		return git.DeleteBranch{Branch: s.Branch}, nil
	case OpTag:
		if s.Name == "" {
			return nil, missingField(s.Op, "name")
		}
		return git.Tag{Name: s.Name}, nil
	case OpRaw:
		if s.Text == "" {
			return nil, missingField(s.Op, "text")
		}
		return git.Raw{Text: s.Text}, nil
	case "":
		return nil, errors.New("step is missing op")
	default:
		return nil, fmt.Errorf("unknown op %q", s.Op)
	}
}

func missingField(op, field string) error {
	return fmt.Errorf("%s: missing %s", op, field)
}

// Validate converts every step once so a plan with a bad step fails
// before anything runs.
func (p *Plan) Validate() error {
	if len(p.Targets) == 0 {
		return errors.New("plan has no targets")
	}
	for ti, target := range p.Targets {
		if len(target.Steps) == 0 {
			return fmt.Errorf("target %q has no steps", target.Label(ti))
		}
		for si, step := range target.Steps {
			if _, err := step.Operation(); err != nil {
				return fmt.Errorf("target %q step %d: %w", target.Label(ti), si+1, err)
			}
		}
	}
	return nil
}

// Parse decodes and validates a plan. Unknown YAML fields are rejected so
// typos in step fields do not silently drop arguments.
func Parse(r io.Reader) (*Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("plan is empty")
		}
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load reads and parses a plan file. Failures are returned as a
// model.CLIError with ExitInvalidPlan.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidPlan, fmt.Sprintf("failed to read plan %s", path), err)
	}
	p, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidPlan, fmt.Sprintf("invalid plan %s", path), err)
	}
	return p, nil
}
