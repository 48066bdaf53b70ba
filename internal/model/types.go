// Package model defines the domain types for the gitkit CLI.
//
// These types are shared by the command builder, the executors and the
// CLI layer. None of them hold state beyond their own value.
package model

import (
	"fmt"
	"strings"
)

// Verb is a git subcommand keyword. The set is fixed; verbs are only ever
// used as string constants when rendering an operation.
type Verb string

const (
	VerbConfig   Verb = "config"
	VerbClean    Verb = "clean"
	VerbClone    Verb = "clone"
	VerbAdd      Verb = "add"
	VerbMv       Verb = "mv"
	VerbReset    Verb = "reset"
	VerbRm       Verb = "rm"
	VerbBisect   Verb = "bisect"
	VerbGrep     Verb = "grep"
	VerbLog      Verb = "log"
	VerbShow     Verb = "show"
	VerbStatus   Verb = "status"
	VerbBranch   Verb = "branch"
	VerbCheckout Verb = "checkout"
	VerbCommit   Verb = "commit"
	VerbDiff     Verb = "diff"
	VerbMerge    Verb = "merge"
	VerbRebase   Verb = "rebase"
	VerbTag      Verb = "tag"
	VerbFetch    Verb = "fetch"
	VerbPull     Verb = "pull"
	VerbPush     Verb = "push"

	// VerbInit initializes a repository. Together with VerbClone it is one
	// of the two verbs that create the working directory before entering it.
	VerbInit Verb = "init"
)

// allVerbs lists every known verb in declaration order. It backs IsValid
// and the error message of ParseVerb.
var allVerbs = []Verb{
	VerbConfig, VerbClean, VerbClone, VerbAdd, VerbMv, VerbReset, VerbRm,
	VerbBisect, VerbGrep, VerbLog, VerbShow, VerbStatus, VerbBranch,
	VerbCheckout, VerbCommit, VerbDiff, VerbMerge, VerbRebase, VerbTag,
	VerbFetch, VerbPull, VerbPush, VerbInit,
}

// String returns the literal subcommand keyword.
func (v Verb) String() string {
	return string(v)
}

// IsValid reports whether v is one of the predefined verbs.
func (v Verb) IsValid() bool {
	for _, known := range allVerbs {
		if v == known {
			return true
		}
	}
	return false
}

// CreatesDirectory reports whether running this verb inside a configured
// path should first create that path (init and clone).
func (v Verb) CreatesDirectory() bool {
	return v == VerbInit || v == VerbClone
}

// Verbs returns a copy of the known verb vocabulary.
func Verbs() []Verb {
	out := make([]Verb, len(allVerbs))
	copy(out, allVerbs)
	return out
}

// ParseVerb converts a string to a Verb, ignoring case.
// Returns an error if the string is not a known git subcommand.
func ParseVerb(s string) (Verb, error) {
	verb := Verb(strings.ToLower(strings.TrimSpace(s)))
	if !verb.IsValid() {
		names := make([]string, 0, len(allVerbs))
		for _, v := range allVerbs {
			names = append(names, string(v))
		}
		return "", fmt.Errorf("invalid git verb: %q (valid: %s)", s, strings.Join(names, ", "))
	}
	return verb, nil
}

// ShellType selects the shell that interprets a rendered command string.
// Rendered commands may contain "&&" chains, so they always go through a
// shell rather than being exec'd directly.
type ShellType string

const (
	// ShellSh is the POSIX shell and the default.
	ShellSh ShellType = "sh"

	// ShellBash runs commands through bash.
	ShellBash ShellType = "bash"

	// ShellZsh runs commands through zsh.
	ShellZsh ShellType = "zsh"
)

// String returns the string representation of ShellType.
func (s ShellType) String() string {
	return string(s)
}

// IsValid checks whether the ShellType value is one of the supported shells.
func (s ShellType) IsValid() bool {
	switch s {
	case ShellSh, ShellBash, ShellZsh:
		return true
	default:
		return false
	}
}

// Binary returns the executable name for the shell. An empty ShellType
// falls back to sh.
func (s ShellType) Binary() string {
	if s == "" {
		return string(ShellSh)
	}
	return string(s)
}

// ParseShellType converts a string to a ShellType.
// An empty string yields the default shell (sh).
func ParseShellType(s string) (ShellType, error) {
	if strings.TrimSpace(s) == "" {
		return ShellSh, nil
	}
	shell := ShellType(strings.ToLower(strings.TrimSpace(s)))
	if !shell.IsValid() {
		return "", fmt.Errorf("invalid shell: %q (valid: sh, bash, zsh)", s)
	}
	return shell, nil
}
