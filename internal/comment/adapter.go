package comment

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	gh "github.com/google/go-github/v68/github"
	"github.com/sourcegraph/conc/panics"

	"github.com/XiaoConstantine/robinrelay/internal/command"
	"github.com/XiaoConstantine/robinrelay/internal/events"
	"github.com/XiaoConstantine/robinrelay/internal/github"
	"github.com/XiaoConstantine/robinrelay/internal/ratelimit"
)

// Executor runs a parsed command.
type Executor interface {
	Execute(ctx context.Context, cmd command.Command) command.Result
}

// incoming is the part of a comment event the adapter acts on.
type incoming struct {
	repo       github.Repo
	number     int
	onPull     bool
	body       string
	login      string
	authorType string
	url        string
}

// Adapter is the comment surface. It handles issue comments and pull request
// review comments.
type Adapter struct {
	ops      github.Operations
	exec     Executor
	identity *Identity
	limiter  *ratelimit.Limiter
}

// NewAdapter creates a comment surface adapter.
func NewAdapter(ops github.Operations, exec Executor, identity *Identity, limiter *ratelimit.Limiter) *Adapter {
	return &Adapter{
		ops:      ops,
		exec:     exec,
		identity: identity,
		limiter:  limiter,
	}
}

// HandleEvent is the router entry point for comment creation events. Failures
// while executing a command are reported on the thread, not returned.
func (a *Adapter) HandleEvent(ctx context.Context, ev events.Event) error {
	logger := logging.GetLogger()

	in, err := fromPayload(ev.Payload)
	if err != nil {
		return err
	}

	// Loop prevention comes first so the bot never acts on its own output.
	if a.identity.IsBot(in.login, in.authorType) {
		logger.Debug(ctx, "[%s] Ignoring comment by bot account %s", ev.ID, in.login)
		return nil
	}

	cmd, ok := command.ParseComment(in.body, a.identity.Mention)
	if !ok {
		return nil
	}
	if !in.onPull {
		logger.Debug(ctx, "[%s] Ignoring mention on plain issue %s#%d", ev.ID, in.repo, in.number)
		return nil
	}
	if allowed, wait := a.limiter.Allow(in.login); !allowed {
		logger.Info(ctx, "[%s] Dropping %s from %s: rate limited for another %s", ev.ID, cmd.Kind, in.login, wait)
		return nil
	}

	cmd.UserID = in.login
	cmd.UserMention = "@" + in.login
	cmd.PullRequest = &command.PullRequestRef{Repo: in.repo, Number: in.number}

	logger.Info(ctx, "[%s] %s asked for %s on %s#%d (%s)", ev.ID, in.login, cmd.Kind, in.repo, in.number, in.url)

	var catcher panics.Catcher
	catcher.Try(func() {
		err = a.respond(ctx, in, cmd)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		err = recovered.AsError()
	}
	if err != nil {
		logger.Error(ctx, "[%s] Command %s on %s#%d failed: %v", ev.ID, cmd.Kind, in.repo, in.number, err)
		a.reportError(ctx, in, err)
	}
	return nil
}

func fromPayload(payload interface{}) (incoming, error) {
	switch p := payload.(type) {
	case *gh.IssueCommentEvent:
		return incoming{
			repo:       repoOf(p.GetRepo()),
			number:     p.GetIssue().GetNumber(),
			onPull:     p.GetIssue().IsPullRequest(),
			body:       p.GetComment().GetBody(),
			login:      p.GetComment().GetUser().GetLogin(),
			authorType: p.GetComment().GetUser().GetType(),
			url:        p.GetComment().GetHTMLURL(),
		}, nil
	case *gh.PullRequestReviewCommentEvent:
		// Replies go to the pull request conversation, not the review thread.
		return incoming{
			repo:       repoOf(p.GetRepo()),
			number:     p.GetPullRequest().GetNumber(),
			onPull:     true,
			body:       p.GetComment().GetBody(),
			login:      p.GetComment().GetUser().GetLogin(),
			authorType: p.GetComment().GetUser().GetType(),
			url:        p.GetComment().GetHTMLURL(),
		}, nil
	default:
		return incoming{}, fmt.Errorf("comment adapter: unexpected payload %T", payload)
	}
}

func repoOf(r *gh.Repository) github.Repo {
	return github.Repo{Owner: r.GetOwner().GetLogin(), Name: r.GetName()}
}

// respond executes cmd and posts exactly one reply. Long running commands
// first post a placeholder, which the result then replaces.
func (a *Adapter) respond(ctx context.Context, in incoming, cmd command.Command) error {
	if !cmd.Kind.LongRunning() {
		result := a.exec.Execute(ctx, cmd)
		_, err := a.ops.CreateComment(ctx, in.repo, in.number, result.Text)
		return err
	}

	var placeholderID int64
	placeholder, err := a.ops.CreateComment(ctx, in.repo, in.number, cmd.Kind.Progress())
	if err != nil {
		logging.GetLogger().Warn(ctx, "Failed to post progress comment on %s#%d: %v", in.repo, in.number, err)
	} else {
		placeholderID = placeholder.ID
	}

	result := a.exec.Execute(ctx, cmd)

	if placeholderID != 0 {
		if err := a.ops.UpdateComment(ctx, in.repo, placeholderID, result.Text); err != nil {
			return fmt.Errorf("updating progress comment %d: %w", placeholderID, err)
		}
		return nil
	}
	return a.replaceLastOwnComment(ctx, in, result.Text)
}

// replaceLastOwnComment overwrites the newest comment the bot itself posted
// on the thread, or posts a new one when there is none.
func (a *Adapter) replaceLastOwnComment(ctx context.Context, in incoming, body string) error {
	comments, err := a.ops.ListComments(ctx, in.repo, in.number)
	if err != nil {
		return fmt.Errorf("listing comments: %w", err)
	}

	var latest *github.Comment
	for i := range comments {
		c := &comments[i]
		if !a.identity.IsSelf(c.Author) {
			continue
		}
		if latest == nil || !c.CreatedAt.Before(latest.CreatedAt) {
			latest = c
		}
	}

	if latest != nil {
		return a.ops.UpdateComment(ctx, in.repo, latest.ID, body)
	}
	_, err = a.ops.CreateComment(ctx, in.repo, in.number, body)
	return err
}

func (a *Adapter) reportError(ctx context.Context, in incoming, err error) {
	body := command.FormatError(command.SurfaceComment, err)
	if _, postErr := a.ops.CreateComment(ctx, in.repo, in.number, body); postErr != nil {
		logging.GetLogger().Error(ctx, "Failed to report error on %s#%d: %v", in.repo, in.number, postErr)
	}
}
