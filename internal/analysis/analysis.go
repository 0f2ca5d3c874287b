// Package analysis defines the check engines the bot runs against a pull
// request or repository. Engines are pluggable behind Runner; Inspector is
// the default engine and derives its reports from repository metadata only.
package analysis

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/robinrelay/internal/github"
)

// Kind names a check.
type Kind string

const (
	KindAnalyze      Kind = "analyze"
	KindReview       Kind = "review"
	KindTest         Kind = "test"
	KindLint         Kind = "lint"
	KindSecurity     Kind = "security"
	KindDependencies Kind = "dependencies"
)

// Target is what a check runs against. PullRequest is zero for
// repository-wide checks; Ref selects the tree to inspect (empty means the
// default branch).
type Target struct {
	Repo        github.Repo
	PullRequest int
	Ref         string
}

func (t Target) String() string {
	if t.PullRequest > 0 {
		return fmt.Sprintf("%s#%d", t.Repo, t.PullRequest)
	}
	return t.Repo.String()
}

// Fact is a labelled value shown in a report summary.
type Fact struct {
	Label string
	Value string
}

// Report is the outcome of one check.
type Report struct {
	Kind            Kind
	Target          Target
	Summary         string
	Facts           []Fact
	Findings        []string
	Positives       []string
	Recommendations []string
	// Score is out of 10; zero when the check is not scored.
	Score  int
	Passed bool
}

// Runner runs a check against a target.
type Runner interface {
	RunCheck(ctx context.Context, kind Kind, target Target) (*Report, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, kind Kind, target Target) (*Report, error)

func (f RunnerFunc) RunCheck(ctx context.Context, kind Kind, target Target) (*Report, error) {
	return f(ctx, kind, target)
}
