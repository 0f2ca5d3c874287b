package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	gh "github.com/google/go-github/v68/github"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/multierr"

	"github.com/XiaoConstantine/robinrelay/internal/analysis"
	"github.com/XiaoConstantine/robinrelay/internal/events"
	"github.com/XiaoConstantine/robinrelay/internal/github"
)

// DefaultCheckName is the name of the check run the workflow maintains.
const DefaultCheckName = "🛠️ PR Review Bot"

const (
	reactionEyes = "eyes"

	titleComplete = "Review complete"
	titleFailed   = "Review failed"
)

// StatusWorkflow reports review progress on a pull request through a check
// run and a progress comment.
type StatusWorkflow struct {
	ops       github.Operations
	runner    analysis.Runner
	checkName string
	now       func() time.Time
}

// Option configures a StatusWorkflow.
type Option func(*StatusWorkflow)

// WithCheckName overrides DefaultCheckName.
func WithCheckName(name string) Option {
	return func(w *StatusWorkflow) {
		if name != "" {
			w.checkName = name
		}
	}
}

// WithClock replaces time.Now for check run timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *StatusWorkflow) {
		w.now = now
	}
}

// New creates a workflow that reviews with runner.
func New(ops github.Operations, runner analysis.Runner, opts ...Option) *StatusWorkflow {
	w := &StatusWorkflow{
		ops:       ops,
		runner:    runner,
		checkName: DefaultCheckName,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleEvent is the router entry point for pull request lifecycle events.
func (w *StatusWorkflow) HandleEvent(ctx context.Context, ev events.Event) error {
	payload, ok := ev.Payload.(*gh.PullRequestEvent)
	if !ok {
		return fmt.Errorf("status workflow: unexpected payload %T for %s", ev.Payload, ev.Type)
	}

	pr := payload.GetPullRequest()
	repo := github.Repo{
		Owner: payload.GetRepo().GetOwner().GetLogin(),
		Name:  payload.GetRepo().GetName(),
	}
	session := NewSession(repo, pr.GetNumber(), pr.GetHead().GetSHA())
	session.Title = pr.GetTitle()
	session.Author = pr.GetUser().GetLogin()

	logging.GetLogger().Info(ctx, "[%s] Starting review of %s (%q by %s)", ev.ID, session, session.Title, session.Author)
	_, err := w.Run(ctx, session)
	return err
}

// Run executes the workflow for session. Failing to post the progress comment
// or to create the check run ends the session early. Any later failure,
// including a failed or panicking analysis, still completes the check run
// and the comment. The returned error covers the workflow's own side effects;
// an analysis failure is recorded on the session instead.
func (w *StatusWorkflow) Run(ctx context.Context, s *ReviewSession) (*analysis.Report, error) {
	logger := logging.GetLogger()

	if err := w.ops.AddReaction(ctx, s.Repo, s.PullRequest, reactionEyes); err != nil {
		logger.Warn(ctx, "Failed to add reaction to %s: %v", s, err)
	} else {
		s.ReactionPosted = true
	}
	if err := s.advance(StateReacted, w.now()); err != nil {
		return nil, err
	}

	comment, err := w.ops.CreateComment(ctx, s.Repo, s.PullRequest, progressBody(s))
	if err != nil {
		return nil, w.fail(ctx, s, fmt.Errorf("posting progress comment: %w", err))
	}
	s.ProgressCommentID = comment.ID
	if err := s.advance(StateCommentPosted, w.now()); err != nil {
		return nil, err
	}

	checkRunID, err := w.ops.CreateCheckRun(ctx, s.Repo, github.CheckRunRequest{
		Name:      w.checkName,
		HeadSHA:   s.HeadSHA,
		Status:    github.CheckStatusInProgress,
		StartedAt: w.now(),
	})
	if err != nil {
		return nil, w.fail(ctx, s, fmt.Errorf("creating check run: %w", err))
	}
	s.CheckRunID = checkRunID
	if err := s.advance(StateCheckCreated, w.now()); err != nil {
		return nil, err
	}

	if err := s.advance(StateAnalyzing, w.now()); err != nil {
		return nil, err
	}
	report := w.analyze(ctx, s)
	if s.AnalysisErr != nil {
		logger.Error(ctx, "Analysis of %s failed: %v", s, s.AnalysisErr)
		s.Conclusion = github.ConclusionFailure
		if err := s.advance(StateFailed, w.now()); err != nil {
			return nil, err
		}
	} else {
		s.Conclusion = github.ConclusionSuccess
	}

	return report, w.finalize(ctx, s, report)
}

// analyze runs the review check, capturing a panic as the analysis error.
func (w *StatusWorkflow) analyze(ctx context.Context, s *ReviewSession) *analysis.Report {
	var (
		catcher panics.Catcher
		report  *analysis.Report
		err     error
	)
	catcher.Try(func() {
		report, err = w.runner.RunCheck(ctx, analysis.KindReview, analysis.Target{
			Repo:        s.Repo,
			PullRequest: s.PullRequest,
			Ref:         s.HeadSHA,
		})
	})
	if recovered := catcher.Recovered(); recovered != nil {
		err = recovered.AsError()
	}
	if err == nil && report == nil {
		err = fmt.Errorf("analysis returned no report")
	}
	s.AnalysisErr = err
	if err != nil {
		return nil
	}
	return report
}

// finalize completes the check run and rewrites the progress comment. Both
// are attempted regardless of the other's outcome.
func (w *StatusWorkflow) finalize(ctx context.Context, s *ReviewSession, report *analysis.Report) error {
	logger := logging.GetLogger()

	title, summary := titleComplete, ""
	if report != nil {
		summary = report.Summary
	}
	if s.AnalysisErr != nil {
		title, summary = titleFailed, s.AnalysisErr.Error()
	}

	var errs error
	checkErr := w.ops.UpdateCheckRun(ctx, s.Repo, s.CheckRunID, github.CheckRunUpdate{
		Name:        w.checkName,
		Status:      github.CheckStatusCompleted,
		Conclusion:  s.Conclusion,
		CompletedAt: w.now(),
		Title:       title,
		Summary:     summary,
	})
	next := StateCheckCompleted
	if checkErr != nil {
		errs = multierr.Append(errs, fmt.Errorf("completing check run %d: %w", s.CheckRunID, checkErr))
		next = StateCheckIncomplete
	} else {
		s.CheckCompleted = true
	}
	if err := s.advance(next, w.now()); err != nil {
		return multierr.Append(errs, err)
	}

	if err := w.ops.UpdateComment(ctx, s.Repo, s.ProgressCommentID, finalBody(s, report)); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("updating progress comment %d: %w", s.ProgressCommentID, err))
	} else if s.CheckCompleted {
		if err := s.advance(StateCommentFinalized, w.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if errs != nil {
		logger.Error(ctx, "Review of %s finished with errors: %v", s, errs)
		return errs
	}
	logger.Info(ctx, "Review of %s finished: %s", s, s.Conclusion)
	return nil
}

func (w *StatusWorkflow) fail(ctx context.Context, s *ReviewSession, err error) error {
	logging.GetLogger().Error(ctx, "Review of %s aborted: %v", s, err)
	if advErr := s.advance(StateFailed, w.now()); advErr != nil {
		return multierr.Append(err, advErr)
	}
	return err
}

func progressBody(s *ReviewSession) string {
	return fmt.Sprintf("🚀 **Review in progress…**\n\nReviewing commit `%s`. This comment will be updated when the review completes.",
		github.ShortSHA(s.HeadSHA))
}

func finalBody(s *ReviewSession, report *analysis.Report) string {
	var b strings.Builder
	if s.AnalysisErr != nil {
		fmt.Fprintf(&b, "❌ **%s** for commit `%s`\n\n", titleFailed, github.ShortSHA(s.HeadSHA))
		fmt.Fprintf(&b, "```\n%s\n```\n", s.AnalysisErr)
		return b.String()
	}

	fmt.Fprintf(&b, "✅ **%s** for commit `%s`\n\n", titleComplete, github.ShortSHA(s.HeadSHA))
	if report.Summary != "" {
		b.WriteString(report.Summary + "\n\n")
	}
	sections := []struct {
		heading string
		items   []string
	}{
		{"Key Findings", report.Findings},
		{"Positive Aspects", report.Positives},
		{"Suggestions", report.Recommendations},
	}
	for _, sec := range sections {
		if len(sec.items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "**%s:**\n", sec.heading)
		for _, item := range sec.items {
			b.WriteString("- " + item + "\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
