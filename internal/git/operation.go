package git

import (
	"strconv"
	"strings"

	"github.com/shinji-kodama/gitkit/internal/model"
)

// Operation is one semantic git action. The set of implementations is
// closed: every variant lives in this file.
//
// Tokens returns the argument tokens that follow the "git" binary name.
// Each token is emitted verbatim; a token may itself contain spaces (Raw,
// Passthrough args) and is never split or quoted further.
type Operation interface {
	Tokens() []string
	operation()
}

// Text renders the operation's tokens joined with single spaces.
func Text(op Operation) string {
	return strings.Join(op.Tokens(), " ")
}

// Passthrough runs an arbitrary verb from the fixed vocabulary with an
// optional argument string appended as a single token.
type Passthrough struct {
	Verb model.Verb
	Args string
}

func (o Passthrough) Tokens() []string {
	tokens := []string{o.Verb.String()}
	if o.Args != "" {
		tokens = append(tokens, o.Args)
	}
	return tokens
}

// AddAll stages every change in the working tree.
type AddAll struct{}

func (AddAll) Tokens() []string {
	return []string{model.VerbAdd.String(), "."}
}

// Commit records staged changes with a message.
//
// The message is wrapped in double quotes without escaping, so a message
// containing '"' produces a broken command line.
type Commit struct {
	Message    string
	AllowEmpty bool
}

func (o Commit) Tokens() []string {
	tokens := []string{model.VerbCommit.String(), "-m", `"` + o.Message + `"`}
	if o.AllowEmpty {
		tokens = append(tokens, "--allow-empty")
	}
	return tokens
}

// Clone copies a remote repository.
type Clone struct {
	URL string
}

func (o Clone) Tokens() []string {
	return []string{model.VerbClone.String(), o.URL}
}

// Checkout switches to an existing branch.
type Checkout struct {
	Branch string
}

func (o Checkout) Tokens() []string {
	return []string{model.VerbCheckout.String(), o.Branch}
}

// Log shows history. Count > 0 limits output to the last Count commits;
// zero and negative values render plain "git log", so "git log -0" cannot
// be expressed with Log. Use Raw{"log -0"} for that.
type Log struct {
	Count int
}

func (o Log) Tokens() []string {
	tokens := []string{model.VerbLog.String()}
	if o.Count > 0 {
		tokens = append(tokens, "-"+strconv.Itoa(o.Count))
	}
	return tokens
}

// Push uploads commits. Remote and Branch are appended only when set.
type Push struct {
	Remote string
	Branch string
}

func (o Push) Tokens() []string {
	return remoteTokens(model.VerbPush, o.Remote, o.Branch)
}

// Pull fetches and integrates. Remote and Branch are appended only when set.
type Pull struct {
	Remote string
	Branch string
}

func (o Pull) Tokens() []string {
	return remoteTokens(model.VerbPull, o.Remote, o.Branch)
}

func remoteTokens(verb model.Verb, remote, branch string) []string {
	tokens := []string{verb.String()}
	if remote != "" {
		tokens = append(tokens, remote)
	}
	if branch != "" {
		tokens = append(tokens, branch)
	}
	return tokens
}

// Merge joins another branch into the current one.
type Merge struct {
	Branch string
}

func (o Merge) Tokens() []string {
	return []string{model.VerbMerge.String(), o.Branch}
}

// CreateBranch creates a branch and switches to it.
type CreateBranch struct {
	Branch string
}

func (o CreateBranch) Tokens() []string {
	return []string{model.VerbCheckout.String(), "-b", o.Branch}
}

// DeleteBranch force-deletes a local branch.
type DeleteBranch struct {
	Branch string
}

func (o DeleteBranch) Tokens() []string {
	return []string{model.VerbBranch.String(), "-D", o.Branch}
}

// Tag creates a lightweight tag.
type Tag struct {
	Name string
}

func (o Tag) Tokens() []string {
	return []string{model.VerbTag.String(), o.Name}
}

// Raw appends Text after "git" untouched, as one opaque token.
type Raw struct {
	Text string
}

func (o Raw) Tokens() []string {
	return []string{o.Text}
}

func (Passthrough) operation()  {}
func (AddAll) operation()       {}
func (Commit) operation()       {}
func (Clone) operation()        {}
func (Checkout) operation()     {}
func (Log) operation()          {}
func (Push) operation()         {}
func (Pull) operation()         {}
func (Merge) operation()        {}
func (CreateBranch) operation() {}
func (DeleteBranch) operation() {}
func (Tag) operation()          {}
func (Raw) operation()          {}

// createsDirectory reports whether the rendered operation starts with the
// init or clone verb. Only the first whitespace-separated word counts, so
// Raw{"clone url"} qualifies but Raw{"cloned"} does not.
func createsDirectory(op Operation) bool {
	fields := strings.Fields(Text(op))
	if len(fields) == 0 {
		return false
	}
	return model.Verb(fields[0]).CreatesDirectory()
}
