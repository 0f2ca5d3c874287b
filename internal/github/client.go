package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

const perPage = 100

// Client implements Operations on top of the GitHub REST API.
type Client struct {
	client            *gh.Client
	authenticatedUser string
}

var _ Operations = (*Client)(nil)

// NewClient creates a token-authenticated client. A non-empty baseURL points
// the client at a GitHub Enterprise Server instance.
func NewClient(ctx context.Context, token, baseURL string) (*Client, error) {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := gh.NewClient(httpClient)
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
	}

	return NewClientFrom(client), nil
}

// NewClientFrom wraps an already configured go-github client.
func NewClientFrom(client *gh.Client) *Client {
	return &Client{client: client}
}

// AuthenticatedUser looks up and caches the login the client acts as. The bot
// uses it to recognise its own comments.
func (c *Client) AuthenticatedUser(ctx context.Context) (string, error) {
	if c.authenticatedUser != "" {
		return c.authenticatedUser, nil
	}
	user, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", classify("get authenticated user", resp, err)
	}
	c.authenticatedUser = user.GetLogin()
	return c.authenticatedUser, nil
}

func (c *Client) GetPullRequest(ctx context.Context, repo Repo, number int) (*PullRequest, error) {
	pr, resp, err := c.client.PullRequests.Get(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return nil, classify(fmt.Sprintf("get pull request %s#%d", repo, number), resp, err)
	}
	return convertPullRequest(pr), nil
}

func (c *Client) ListChangedFiles(ctx context.Context, repo Repo, number int) ([]ChangedFile, error) {
	opts := &gh.ListOptions{PerPage: perPage}
	var files []ChangedFile
	for {
		page, resp, err := c.client.PullRequests.ListFiles(ctx, repo.Owner, repo.Name, number, opts)
		if err != nil {
			return nil, classify(fmt.Sprintf("list files of %s#%d", repo, number), resp, err)
		}
		for _, f := range page {
			files = append(files, ChangedFile{
				Filename:  f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Patch:     f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logging.GetLogger().Debug(ctx, "Retrieved %d files from %s#%d", len(files), repo, number)
	return files, nil
}

func (c *Client) CreateComment(ctx context.Context, repo Repo, number int, body string) (*Comment, error) {
	comment, resp, err := c.client.Issues.CreateComment(ctx, repo.Owner, repo.Name, number, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	if err != nil {
		return nil, classify(fmt.Sprintf("create comment on %s#%d", repo, number), resp, err)
	}
	return convertComment(comment), nil
}

func (c *Client) ListComments(ctx context.Context, repo Repo, number int) ([]Comment, error) {
	opts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	var comments []Comment
	for {
		page, resp, err := c.client.Issues.ListComments(ctx, repo.Owner, repo.Name, number, opts)
		if err != nil {
			return nil, classify(fmt.Sprintf("list comments of %s#%d", repo, number), resp, err)
		}
		for _, comment := range page {
			comments = append(comments, *convertComment(comment))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return comments, nil
}

func (c *Client) UpdateComment(ctx context.Context, repo Repo, commentID int64, body string) error {
	_, resp, err := c.client.Issues.EditComment(ctx, repo.Owner, repo.Name, commentID, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	return classify(fmt.Sprintf("update comment %d on %s", commentID, repo), resp, err)
}

func (c *Client) AddReaction(ctx context.Context, repo Repo, number int, content string) error {
	_, resp, err := c.client.Reactions.CreateIssueReaction(ctx, repo.Owner, repo.Name, number, content)
	return classify(fmt.Sprintf("add %s reaction to %s#%d", content, repo, number), resp, err)
}

func (c *Client) CreateCheckRun(ctx context.Context, repo Repo, req CheckRunRequest) (int64, error) {
	opts := gh.CreateCheckRunOptions{
		Name:    req.Name,
		HeadSHA: req.HeadSHA,
	}
	if req.Status != "" {
		opts.Status = gh.Ptr(req.Status)
	}
	if !req.StartedAt.IsZero() {
		opts.StartedAt = &gh.Timestamp{Time: req.StartedAt}
	}

	run, resp, err := c.client.Checks.CreateCheckRun(ctx, repo.Owner, repo.Name, opts)
	if err != nil {
		return 0, classify(fmt.Sprintf("create check run on %s@%s", repo, ShortSHA(req.HeadSHA)), resp, err)
	}
	return run.GetID(), nil
}

func (c *Client) UpdateCheckRun(ctx context.Context, repo Repo, checkRunID int64, update CheckRunUpdate) error {
	opts := gh.UpdateCheckRunOptions{Name: update.Name}
	if update.Status != "" {
		opts.Status = gh.Ptr(update.Status)
	}
	if update.Conclusion != "" {
		opts.Conclusion = gh.Ptr(update.Conclusion)
	}
	if !update.CompletedAt.IsZero() {
		opts.CompletedAt = &gh.Timestamp{Time: update.CompletedAt}
	}
	if update.Title != "" || update.Summary != "" {
		opts.Output = &gh.CheckRunOutput{
			Title:   gh.Ptr(update.Title),
			Summary: gh.Ptr(update.Summary),
		}
	}

	_, resp, err := c.client.Checks.UpdateCheckRun(ctx, repo.Owner, repo.Name, checkRunID, opts)
	return classify(fmt.Sprintf("update check run %d on %s", checkRunID, repo), resp, err)
}

func (c *Client) ListChecksForRef(ctx context.Context, repo Repo, ref string) ([]CheckRun, error) {
	opts := &gh.ListCheckRunsOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	var runs []CheckRun
	for {
		result, resp, err := c.client.Checks.ListCheckRunsForRef(ctx, repo.Owner, repo.Name, ref, opts)
		if err != nil {
			return nil, classify(fmt.Sprintf("list checks for %s@%s", repo, ShortSHA(ref)), resp, err)
		}
		for _, run := range result.CheckRuns {
			runs = append(runs, CheckRun{
				ID:         run.GetID(),
				Name:       run.GetName(),
				Status:     run.GetStatus(),
				Conclusion: run.GetConclusion(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return runs, nil
}

func (c *Client) ListBranches(ctx context.Context, repo Repo) ([]Branch, error) {
	opts := &gh.BranchListOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	var branches []Branch
	for {
		page, resp, err := c.client.Repositories.ListBranches(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, classify(fmt.Sprintf("list branches of %s", repo), resp, err)
		}
		for _, b := range page {
			branches = append(branches, Branch{
				Name: b.GetName(),
				SHA:  b.GetCommit().GetSHA(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return branches, nil
}

func (c *Client) CreatePullRequest(ctx context.Context, repo Repo, req NewPullRequest) (*PullRequest, error) {
	pr, resp, err := c.client.PullRequests.Create(ctx, repo.Owner, repo.Name, &gh.NewPullRequest{
		Title: gh.Ptr(req.Title),
		Head:  gh.Ptr(req.Head),
		Base:  gh.Ptr(req.Base),
		Body:  gh.Ptr(req.Body),
	})
	if err != nil {
		return nil, classify(fmt.Sprintf("create pull request %s -> %s on %s", req.Head, req.Base, repo), resp, err)
	}
	return convertPullRequest(pr), nil
}

func (c *Client) ReadFile(ctx context.Context, repo Repo, path, ref string) (*File, error) {
	op := fmt.Sprintf("read %s from %s", path, repo)
	content, _, resp, err := c.client.Repositories.GetContents(ctx, repo.Owner, repo.Name, path,
		&gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, classify(op, resp, err)
	}

	// content is nil for directories
	if content == nil {
		return nil, &Error{Kind: NotFound, Op: op, Err: fmt.Errorf("%s is a directory", path)}
	}

	decoded, err := content.GetContent()
	if err != nil {
		return nil, &Error{Kind: Transient, Op: op, Err: fmt.Errorf("failed to decode content: %w", err)}
	}
	return &File{
		Path:    content.GetPath(),
		SHA:     content.GetSHA(),
		Content: []byte(decoded),
	}, nil
}

// WriteFile creates or replaces a file on the default branch. The current blob
// SHA is read first and sent with the write so the host rejects the update if
// the file changed in between; a missing file is written without a SHA.
func (c *Client) WriteFile(ctx context.Context, repo Repo, path string, content []byte, message string) (*WriteResult, error) {
	logger := logging.GetLogger()

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: content,
	}

	current, err := c.ReadFile(ctx, repo, path, "")
	switch {
	case err == nil:
		opts.SHA = gh.Ptr(current.SHA)
	case IsNotFound(err):
		logger.Debug(ctx, "File %s does not exist in %s, creating it", path, repo)
	default:
		return nil, err
	}

	var (
		result *gh.RepositoryContentResponse
		resp   *gh.Response
	)
	if opts.SHA == nil {
		result, resp, err = c.client.Repositories.CreateFile(ctx, repo.Owner, repo.Name, path, opts)
	} else {
		result, resp, err = c.client.Repositories.UpdateFile(ctx, repo.Owner, repo.Name, path, opts)
	}
	if err != nil {
		return nil, classify(fmt.Sprintf("write %s to %s", path, repo), resp, err)
	}

	return &WriteResult{
		Created:   opts.SHA == nil,
		CommitSHA: result.Commit.GetSHA(),
		URL:       result.GetContent().GetHTMLURL(),
	}, nil
}

func (c *Client) GetRepository(ctx context.Context, repo Repo) (*Repository, error) {
	r, resp, err := c.client.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		return nil, classify(fmt.Sprintf("get repository %s", repo), resp, err)
	}
	return &Repository{
		FullName:      r.GetFullName(),
		Description:   r.GetDescription(),
		Language:      r.GetLanguage(),
		DefaultBranch: r.GetDefaultBranch(),
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		OpenIssues:    r.GetOpenIssuesCount(),
		UpdatedAt:     r.GetUpdatedAt().Time,
	}, nil
}

func (c *Client) ListOpenPullRequests(ctx context.Context, repo Repo) ([]PullRequest, error) {
	opts := &gh.PullRequestListOptions{
		State:       "open",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	var prs []PullRequest
	for {
		page, resp, err := c.client.PullRequests.List(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, classify(fmt.Sprintf("list pull requests of %s", repo), resp, err)
		}
		for _, pr := range page {
			prs = append(prs, *convertPullRequest(pr))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return prs, nil
}

func (c *Client) ListDirectory(ctx context.Context, repo Repo, path, ref string) ([]DirEntry, error) {
	op := fmt.Sprintf("list %q in %s", path, repo)
	_, dir, resp, err := c.client.Repositories.GetContents(ctx, repo.Owner, repo.Name, path,
		&gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, classify(op, resp, err)
	}

	entries := make([]DirEntry, 0, len(dir))
	for _, item := range dir {
		entries = append(entries, DirEntry{
			Name: item.GetName(),
			Path: item.GetPath(),
			Type: item.GetType(),
		})
	}
	return entries, nil
}

func convertPullRequest(pr *gh.PullRequest) *PullRequest {
	return &PullRequest{
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Author:       pr.GetUser().GetLogin(),
		State:        pr.GetState(),
		URL:          pr.GetHTMLURL(),
		HeadSHA:      pr.GetHead().GetSHA(),
		HeadRef:      pr.GetHead().GetRef(),
		BaseRef:      pr.GetBase().GetRef(),
		Mergeable:    pr.GetMergeable(),
		Commits:      pr.GetCommits(),
		ChangedFiles: pr.GetChangedFiles(),
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		Reviewers:    len(pr.RequestedReviewers),
		CreatedAt:    pr.GetCreatedAt().Time,
	}
}

func convertComment(c *gh.IssueComment) *Comment {
	return &Comment{
		ID:        c.GetID(),
		Body:      c.GetBody(),
		Author:    c.GetUser().GetLogin(),
		URL:       c.GetHTMLURL(),
		CreatedAt: c.GetCreatedAt().Time,
	}
}
