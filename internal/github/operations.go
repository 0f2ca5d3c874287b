// Package github provides the backend operations used by every surface of the
// bot: pull request, comment, check run, branch and file access on the code host.
package github

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Operations is the capability set the bot needs from the code host. Every
// method maps to a single API call (WriteFile does a read first) and fails with
// a *Error rather than returning empty values.
type Operations interface {
	GetPullRequest(ctx context.Context, repo Repo, number int) (*PullRequest, error)
	ListChangedFiles(ctx context.Context, repo Repo, number int) ([]ChangedFile, error)

	CreateComment(ctx context.Context, repo Repo, number int, body string) (*Comment, error)
	ListComments(ctx context.Context, repo Repo, number int) ([]Comment, error)
	UpdateComment(ctx context.Context, repo Repo, commentID int64, body string) error
	AddReaction(ctx context.Context, repo Repo, number int, content string) error

	CreateCheckRun(ctx context.Context, repo Repo, req CheckRunRequest) (int64, error)
	UpdateCheckRun(ctx context.Context, repo Repo, checkRunID int64, update CheckRunUpdate) error
	ListChecksForRef(ctx context.Context, repo Repo, ref string) ([]CheckRun, error)

	ListBranches(ctx context.Context, repo Repo) ([]Branch, error)
	CreatePullRequest(ctx context.Context, repo Repo, req NewPullRequest) (*PullRequest, error)

	ReadFile(ctx context.Context, repo Repo, path, ref string) (*File, error)
	WriteFile(ctx context.Context, repo Repo, path string, content []byte, message string) (*WriteResult, error)

	GetRepository(ctx context.Context, repo Repo) (*Repository, error)
	ListOpenPullRequests(ctx context.Context, repo Repo) ([]PullRequest, error)
	ListDirectory(ctx context.Context, repo Repo, path, ref string) ([]DirEntry, error)
}

// Repo identifies a repository as owner/name.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// IsZero reports whether the repo has not been set.
func (r Repo) IsZero() bool {
	return r.Owner == "" && r.Name == ""
}

// ParseRepo accepts "owner/name" or a bare "name", in which case defaultOwner
// is used as the owner.
func ParseRepo(s, defaultOwner string) (Repo, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Repo{}, fmt.Errorf("empty repository name")
	}

	owner, name, found := strings.Cut(s, "/")
	if !found {
		if defaultOwner == "" {
			return Repo{}, fmt.Errorf("repository %q must be given as owner/name", s)
		}
		return Repo{Owner: defaultOwner, Name: s}, nil
	}
	if owner == "" || name == "" || strings.Contains(name, "/") {
		return Repo{}, fmt.Errorf("invalid repository %q", s)
	}
	return Repo{Owner: owner, Name: name}, nil
}

// PullRequest is the subset of pull request fields the bot reports on.
type PullRequest struct {
	Number       int
	Title        string
	Author       string
	State        string
	URL          string
	HeadSHA      string
	HeadRef      string
	BaseRef      string
	Mergeable    bool
	Commits      int
	ChangedFiles int
	Additions    int
	Deletions    int
	Reviewers    int
	CreatedAt    time.Time
}

// ChangedFile is one file touched by a pull request.
type ChangedFile struct {
	Filename  string
	Status    string
	Additions int
	Deletions int
	Patch     string
}

// Comment is an issue (conversation) comment.
type Comment struct {
	ID        int64
	Body      string
	Author    string
	URL       string
	CreatedAt time.Time
}

// Check run status and conclusion values.
const (
	CheckStatusInProgress = "in_progress"
	CheckStatusCompleted  = "completed"

	ConclusionSuccess = "success"
	ConclusionFailure = "failure"
)

// CheckRunRequest creates a check run on a commit.
type CheckRunRequest struct {
	Name      string
	HeadSHA   string
	Status    string
	StartedAt time.Time
}

// CheckRunUpdate moves a check run forward. A zero CompletedAt is left unset.
type CheckRunUpdate struct {
	Name        string
	Status      string
	Conclusion  string
	CompletedAt time.Time
	Title       string
	Summary     string
}

// CheckRun is a check run as listed for a ref.
type CheckRun struct {
	ID         int64
	Name       string
	Status     string
	Conclusion string
}

// Branch is a repository branch with its tip commit.
type Branch struct {
	Name string
	SHA  string
}

// NewPullRequest describes a pull request to open.
type NewPullRequest struct {
	Title string
	Head  string
	Base  string
	Body  string
}

// File is a decoded repository file together with its blob SHA, which acts as
// the revision marker for compare-and-swap writes.
type File struct {
	Path    string
	SHA     string
	Content []byte
}

// WriteResult describes a committed file write.
type WriteResult struct {
	Created   bool
	CommitSHA string
	URL       string
}

// Repository is the subset of repository metadata used for status reports.
type Repository struct {
	FullName      string
	Description   string
	Language      string
	DefaultBranch string
	Stars         int
	Forks         int
	OpenIssues    int
	UpdatedAt     time.Time
}

// DirEntry is one entry of a directory listing.
type DirEntry struct {
	Name string
	Path string
	Type string
}

// ShortSHA trims a commit SHA to the seven characters shown in chat replies.
func ShortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
