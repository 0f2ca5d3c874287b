package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"

	"github.com/XiaoConstantine/robinrelay/internal/analysis"
	"github.com/XiaoConstantine/robinrelay/internal/github"
)

func (r *Registry) help(ctx context.Context, cmd Command) (string, error) {
	return renderHelp(markup{surface: cmd.Surface}, r.cfg.Mention), nil
}

func (r *Registry) hello(ctx context.Context, cmd Command) (string, error) {
	who := cmd.UserMention
	if who == "" {
		who = "there"
	}
	return fmt.Sprintf("👋 Hello %s! I'm RobinRelay Bot. Type `help` to see what I can do.", who), nil
}

// resolveRepo turns an optional repository argument into a repo, falling back
// to the pull request the command was issued on and then to the configured
// default.
func (r *Registry) resolveRepo(kind Kind, arg string, cmd Command) (github.Repo, error) {
	if arg == "" {
		switch {
		case cmd.PullRequest != nil:
			return cmd.PullRequest.Repo, nil
		case !r.cfg.DefaultRepo.IsZero():
			return r.cfg.DefaultRepo, nil
		default:
			return github.Repo{}, invalid(kind, "No repository given and no default repository is configured.")
		}
	}
	repo, err := github.ParseRepo(arg, r.cfg.DefaultOwner)
	if err != nil {
		return github.Repo{}, invalid(kind, "Invalid repository %q.", arg)
	}
	return repo, nil
}

func parsePullNumber(kind Kind, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || n <= 0 {
		return 0, invalid(kind, "Invalid pull request number %q.", s)
	}
	return n, nil
}

func (r *Registry) checkTarget(cmd Command) (analysis.Target, error) {
	if cmd.PullRequest != nil {
		return analysis.Target{Repo: cmd.PullRequest.Repo, PullRequest: cmd.PullRequest.Number}, nil
	}

	fields := cmd.Fields()
	switch cmd.Kind {
	case KindAnalyze, KindReview:
		if len(fields) < 2 {
			return analysis.Target{}, invalid(cmd.Kind, "Please provide a repository and a pull request number.")
		}
		repo, err := r.resolveRepo(cmd.Kind, fields[0], cmd)
		if err != nil {
			return analysis.Target{}, err
		}
		number, err := parsePullNumber(cmd.Kind, fields[1])
		if err != nil {
			return analysis.Target{}, err
		}
		return analysis.Target{Repo: repo, PullRequest: number}, nil
	default:
		var arg string
		if len(fields) > 0 {
			arg = fields[0]
		}
		repo, err := r.resolveRepo(cmd.Kind, arg, cmd)
		if err != nil {
			return analysis.Target{}, err
		}
		return analysis.Target{Repo: repo}, nil
	}
}

func (r *Registry) runCheck(ctx context.Context, cmd Command) (string, error) {
	target, err := r.checkTarget(cmd)
	if err != nil {
		return "", err
	}
	report, err := r.runner.RunCheck(ctx, descriptors[cmd.Kind].check, target)
	if err != nil {
		return "", err
	}
	return renderReport(markup{surface: cmd.Surface}, cmd.Kind, report), nil
}

func (r *Registry) status(ctx context.Context, cmd Command) (string, error) {
	m := markup{surface: cmd.Surface}

	if cmd.PullRequest != nil {
		return r.pullRequestStatus(ctx, m, cmd.PullRequest.Repo, cmd.PullRequest.Number)
	}

	fields := cmd.Fields()
	var arg string
	if len(fields) > 0 {
		arg = fields[0]
	}
	repo, err := r.resolveRepo(KindStatus, arg, cmd)
	if err != nil {
		return "", err
	}
	if len(fields) > 1 {
		number, err := parsePullNumber(KindStatus, fields[1])
		if err != nil {
			return "", err
		}
		return r.pullRequestStatus(ctx, m, repo, number)
	}

	info, err := r.ops.GetRepository(ctx, repo)
	if err != nil {
		return "", err
	}
	pulls, err := r.ops.ListOpenPullRequests(ctx, repo)
	if err != nil {
		return "", err
	}
	return renderRepositoryStatus(m, info, pulls), nil
}

func (r *Registry) pullRequestStatus(ctx context.Context, m markup, repo github.Repo, number int) (string, error) {
	pr, err := r.ops.GetPullRequest(ctx, repo, number)
	if err != nil {
		return "", err
	}
	// Checks are informational; a failed lookup still yields a status.
	checks, err := r.ops.ListChecksForRef(ctx, repo, pr.HeadSHA)
	if err != nil {
		logging.GetLogger().Warn(ctx, "Failed to list checks for %s@%s: %v", repo, github.ShortSHA(pr.HeadSHA), err)
		checks = nil
	}
	return renderPullRequestStatus(m, repo, pr, checks), nil
}

func (r *Registry) listBranches(ctx context.Context, cmd Command) (string, error) {
	fields := cmd.Fields()
	var arg string
	if len(fields) > 0 {
		arg = fields[0]
	}
	repo, err := r.resolveRepo(KindListBranches, arg, cmd)
	if err != nil {
		return "", err
	}
	branches, err := r.ops.ListBranches(ctx, repo)
	if err != nil {
		return "", err
	}
	return renderBranches(markup{surface: cmd.Surface}, repo, branches), nil
}

func (r *Registry) createPullRequest(ctx context.Context, cmd Command) (string, error) {
	head, rest := splitHead(cmd.Args)
	base, rest := splitHead(rest)
	title := unquote(rest)
	if head == "" || base == "" || title == "" {
		return "", invalid(KindCreatePR, "Please provide a source branch, a target branch and a title.")
	}
	repo, err := r.resolveRepo(KindCreatePR, "", cmd)
	if err != nil {
		return "", err
	}

	body := "Created via RobinRelay Bot"
	if cmd.UserMention != "" {
		body += " by " + cmd.UserMention
	}
	pr, err := r.ops.CreatePullRequest(ctx, repo, github.NewPullRequest{
		Title: title,
		Head:  head,
		Base:  base,
		Body:  body,
	})
	if err != nil {
		return "", err
	}

	m := markup{surface: cmd.Surface}
	return fmt.Sprintf("✅ %s %s\n%s",
		m.bold(fmt.Sprintf("Pull request #%d created:", pr.Number)), pr.Title, pr.URL), nil
}

func (r *Registry) editFile(ctx context.Context, cmd Command) (string, error) {
	path, rest := splitHead(cmd.Args)
	if path == "" || strings.TrimSpace(rest) == "" {
		return "", invalid(KindEditFile, "Please provide a file path and the new content.")
	}
	content := unquote(rest)
	repo, err := r.resolveRepo(KindEditFile, "", cmd)
	if err != nil {
		return "", err
	}

	result, err := r.ops.WriteFile(ctx, repo, path, []byte(content), fmt.Sprintf("Update %s via RobinRelay Bot", path))
	if err != nil {
		return "", err
	}

	verb := "Updated"
	if result.Created {
		verb = "Created"
	}
	return fmt.Sprintf("✅ %s `%s` in %s (commit %s)", verb, path, repo, github.ShortSHA(result.CommitSHA)), nil
}
