package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/XiaoConstantine/robinrelay/internal/analysis"
	"github.com/XiaoConstantine/robinrelay/internal/github"
	"github.com/XiaoConstantine/robinrelay/internal/github/githubtest"
)

var widgets = github.Repo{Owner: "octo", Name: "widgets"}

func newTestRegistry(ops github.Operations, runner analysis.Runner) *Registry {
	if runner == nil {
		runner = analysis.RunnerFunc(func(ctx context.Context, kind analysis.Kind, target analysis.Target) (*analysis.Report, error) {
			return nil, errors.New("runner not expected")
		})
	}
	return NewRegistry(ops, runner, Config{
		Mention:      mention,
		DefaultOwner: "octo",
		DefaultRepo:  widgets,
	})
}

func chat(text string) Command {
	cmd := ParseChat(text)
	cmd.UserID = "U1"
	cmd.UserMention = "<@U1>"
	return cmd
}

func TestRegistry_CreatePullRequest(t *testing.T) {
	ops := new(githubtest.MockOperations)
	ops.On("CreatePullRequest", mock.Anything, widgets, github.NewPullRequest{
		Title: "New feature",
		Head:  "dev",
		Base:  "main",
		Body:  "Created via RobinRelay Bot by <@U1>",
	}).Return(&github.PullRequest{Number: 7, Title: "New feature", URL: "https://github.com/octo/widgets/pull/7"}, nil)

	res := newTestRegistry(ops, nil).Execute(context.Background(), chat("create pr dev main New feature"))

	assert.False(t, res.IsError)
	assert.Contains(t, res.Text, "#7")
	assert.Contains(t, res.Text, "New feature")
	ops.AssertExpectations(t)
}

func TestRegistry_CreatePullRequestQuotedTitle(t *testing.T) {
	ops := new(githubtest.MockOperations)
	ops.On("CreatePullRequest", mock.Anything, widgets, mock.MatchedBy(func(pr github.NewPullRequest) bool {
		return pr.Title == "Fix the gears"
	})).Return(&github.PullRequest{Number: 8, Title: "Fix the gears"}, nil)

	res := newTestRegistry(ops, nil).Execute(context.Background(), chat(`create pr dev main "Fix the gears"`))

	assert.False(t, res.IsError)
	ops.AssertExpectations(t)
}

// Too few arguments never reach the backend.
func TestRegistry_CreatePullRequestValidation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		args := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 0, 2).Draw(t, "args")

		ops := new(githubtest.MockOperations)
		res := newTestRegistry(ops, nil).Execute(context.Background(), chat("create pr "+strings.Join(args, " ")))

		if !res.IsError || !strings.Contains(res.Text, "Usage: `create pr <from> <to> <title>`") {
			t.Fatalf("unexpected reply %q", res.Text)
		}
		if len(ops.Calls) != 0 {
			t.Fatalf("backend called %d times", len(ops.Calls))
		}
	})
}

func TestRegistry_EditFile(t *testing.T) {
	ops := new(githubtest.MockOperations)
	ops.On("WriteFile", mock.Anything, widgets, "README.md", []byte("Hello World"), "Update README.md via RobinRelay Bot").
		Return(&github.WriteResult{Created: true, CommitSHA: "abcdef1234567"}, nil)

	res := newTestRegistry(ops, nil).Execute(context.Background(), chat(`edit README.md "Hello World"`))

	assert.False(t, res.IsError)
	assert.Equal(t, "✅ Created `README.md` in octo/widgets (commit abcdef1)", res.Text)
	ops.AssertExpectations(t)
}

func TestRegistry_EditFileValidation(t *testing.T) {
	ops := new(githubtest.MockOperations)

	res := newTestRegistry(ops, nil).Execute(context.Background(), chat("edit README.md"))

	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "edit <file> <content>")
	assert.Empty(t, ops.Calls)
}

func TestRegistry_AnalyzeFromChat(t *testing.T) {
	var got analysis.Target
	runner := analysis.RunnerFunc(func(ctx context.Context, kind analysis.Kind, target analysis.Target) (*analysis.Report, error) {
		assert.Equal(t, analysis.KindAnalyze, kind)
		got = target
		return &analysis.Report{
			Kind:     kind,
			Target:   target,
			Facts:    []analysis.Fact{{Label: "Title", Value: "Gears"}},
			Findings: []string{"Looks fine"},
			Score:    9,
			Passed:   true,
		}, nil
	})

	res := newTestRegistry(new(githubtest.MockOperations), runner).Execute(context.Background(), chat("analyze widgets #12"))

	require.False(t, res.IsError, res.Text)
	assert.Equal(t, analysis.Target{Repo: widgets, PullRequest: 12}, got)
	assert.Contains(t, res.Text, "*Code Analysis Complete*")
	assert.Contains(t, res.Text, "• *Title:* Gears")
	assert.Contains(t, res.Text, "9/10")
}

func TestRegistry_AnalyzeNeedsPullRequest(t *testing.T) {
	res := newTestRegistry(new(githubtest.MockOperations), nil).Execute(context.Background(), chat("analyze octo/widgets"))

	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "analyze <repo> <pr#>")

	res = newTestRegistry(new(githubtest.MockOperations), nil).Execute(context.Background(), chat("analyze octo/widgets abc"))
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, `Invalid pull request number "abc"`)
}

func TestRegistry_CommentCheckUsesPullRequest(t *testing.T) {
	runner := analysis.RunnerFunc(func(ctx context.Context, kind analysis.Kind, target analysis.Target) (*analysis.Report, error) {
		assert.Equal(t, analysis.KindLint, kind)
		assert.Equal(t, analysis.Target{Repo: widgets, PullRequest: 3}, target)
		return &analysis.Report{Kind: kind, Target: target, Summary: "No linting configuration found."}, nil
	})

	cmd, ok := ParseComment("@robin-relay-bot lint", mention)
	require.True(t, ok)
	cmd.PullRequest = &PullRequestRef{Repo: widgets, Number: 3}

	res := newTestRegistry(new(githubtest.MockOperations), runner).Execute(context.Background(), cmd)

	assert.False(t, res.IsError)
	assert.True(t, strings.HasPrefix(res.Text, "⚠️ **Lint Results Complete**"))
	assert.Contains(t, res.Text, "No linting configuration found.")
	assert.True(t, strings.HasSuffix(res.Text, commentFooter))
}

func TestRegistry_PullRequestStatusToleratesCheckFailure(t *testing.T) {
	ops := new(githubtest.MockOperations)
	ops.On("GetPullRequest", mock.Anything, widgets, 5).Return(&github.PullRequest{
		Number: 5, Title: "Gears", State: "open", HeadSHA: "deadbeefcafe", HeadRef: "dev", BaseRef: "main", Mergeable: true,
	}, nil)
	ops.On("ListChecksForRef", mock.Anything, widgets, "deadbeefcafe").Return(nil, errors.New("boom"))

	res := newTestRegistry(ops, nil).Execute(context.Background(), chat("status octo/widgets 5"))

	assert.False(t, res.IsError)
	assert.Contains(t, res.Text, "*Mergeable:* Yes")
	assert.Contains(t, res.Text, "*Checks:* none")
	ops.AssertExpectations(t)
}

func TestRegistry_RepositoryStatus(t *testing.T) {
	ops := new(githubtest.MockOperations)
	ops.On("GetRepository", mock.Anything, widgets).Return(&github.Repository{
		FullName: "octo/widgets", Language: "Go", DefaultBranch: "main", Stars: 42,
		UpdatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}, nil)
	ops.On("ListOpenPullRequests", mock.Anything, widgets).Return([]github.PullRequest{
		{Number: 1, Title: "One", Author: "a"},
		{Number: 2, Title: "Two", Author: "b"},
	}, nil)

	res := newTestRegistry(ops, nil).Execute(context.Background(), chat("status"))

	assert.False(t, res.IsError)
	assert.Contains(t, res.Text, "*Stars:* 42")
	assert.Contains(t, res.Text, "*Open Pull Requests:* 2")
	assert.Contains(t, res.Text, "#2 Two (b)")
	assert.Contains(t, res.Text, "2024-03-01")
	ops.AssertExpectations(t)
}

func TestRegistry_ListBranches(t *testing.T) {
	other := github.Repo{Owner: "octo", Name: "gadgets"}
	ops := new(githubtest.MockOperations)
	ops.On("ListBranches", mock.Anything, other).Return([]github.Branch{
		{Name: "main", SHA: "0123456789"},
		{Name: "dev", SHA: "abcdef0123"},
	}, nil)

	res := newTestRegistry(ops, nil).Execute(context.Background(), chat("list branches gadgets"))

	assert.False(t, res.IsError)
	assert.Contains(t, res.Text, "• `main` (0123456)")
	assert.Contains(t, res.Text, "• `dev` (abcdef0)")
	ops.AssertExpectations(t)
}

func TestRegistry_BackendErrorOnComment(t *testing.T) {
	ops := new(githubtest.MockOperations)
	ops.On("GetPullRequest", mock.Anything, widgets, 9).
		Return(nil, &github.Error{Kind: github.NotFound, Op: "get pull request", Err: errors.New("404")})

	cmd, _ := ParseComment("@robin-relay-bot status", mention)
	cmd.PullRequest = &PullRequestRef{Repo: widgets, Number: 9}

	res := newTestRegistry(ops, nil).Execute(context.Background(), cmd)

	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "❌ **Error Occurred**")
	assert.Contains(t, res.Text, "could not be found")
}

func TestRegistry_UnknownChatCommand(t *testing.T) {
	res := newTestRegistry(new(githubtest.MockOperations), nil).Execute(context.Background(), chat("deploy prod"))

	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "Unknown command: `deploy`")
}

func TestRegistry_HandlerPanicBecomesError(t *testing.T) {
	runner := analysis.RunnerFunc(func(ctx context.Context, kind analysis.Kind, target analysis.Target) (*analysis.Report, error) {
		panic("engine exploded")
	})

	res := newTestRegistry(new(githubtest.MockOperations), runner).Execute(context.Background(), chat("test"))

	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "engine exploded")
}

func TestRegistry_Help(t *testing.T) {
	reg := newTestRegistry(new(githubtest.MockOperations), nil)

	cmd, _ := ParseComment("@robin-relay-bot", mention)
	comment := reg.Execute(context.Background(), cmd)
	assert.Contains(t, comment.Text, "`@robin-relay-bot analyze`")
	assert.NotContains(t, comment.Text, "create-pr")
	assert.NotContains(t, comment.Text, "create pr")

	reply := reg.Execute(context.Background(), chat(""))
	assert.Contains(t, reply.Text, "`create pr <from> <to> <title>`")
	assert.Contains(t, reply.Text, "*Code Quality:*")
}

func TestRegistry_Hello(t *testing.T) {
	res := newTestRegistry(new(githubtest.MockOperations), nil).Execute(context.Background(), chat("hello"))
	assert.Contains(t, res.Text, "Hello <@U1>!")
}
