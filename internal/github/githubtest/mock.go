// Package githubtest provides a testify mock of github.Operations.
package githubtest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/XiaoConstantine/robinrelay/internal/github"
)

// MockOperations records every backend call made through it.
type MockOperations struct {
	mock.Mock
}

var _ github.Operations = (*MockOperations)(nil)

func (m *MockOperations) GetPullRequest(ctx context.Context, repo github.Repo, number int) (*github.PullRequest, error) {
	args := m.Called(ctx, repo, number)
	pr, _ := args.Get(0).(*github.PullRequest)
	return pr, args.Error(1)
}

func (m *MockOperations) ListChangedFiles(ctx context.Context, repo github.Repo, number int) ([]github.ChangedFile, error) {
	args := m.Called(ctx, repo, number)
	files, _ := args.Get(0).([]github.ChangedFile)
	return files, args.Error(1)
}

func (m *MockOperations) CreateComment(ctx context.Context, repo github.Repo, number int, body string) (*github.Comment, error) {
	args := m.Called(ctx, repo, number, body)
	comment, _ := args.Get(0).(*github.Comment)
	return comment, args.Error(1)
}

func (m *MockOperations) ListComments(ctx context.Context, repo github.Repo, number int) ([]github.Comment, error) {
	args := m.Called(ctx, repo, number)
	comments, _ := args.Get(0).([]github.Comment)
	return comments, args.Error(1)
}

func (m *MockOperations) UpdateComment(ctx context.Context, repo github.Repo, commentID int64, body string) error {
	args := m.Called(ctx, repo, commentID, body)
	return args.Error(0)
}

func (m *MockOperations) AddReaction(ctx context.Context, repo github.Repo, number int, content string) error {
	args := m.Called(ctx, repo, number, content)
	return args.Error(0)
}

func (m *MockOperations) CreateCheckRun(ctx context.Context, repo github.Repo, req github.CheckRunRequest) (int64, error) {
	args := m.Called(ctx, repo, req)
	id, _ := args.Get(0).(int64)
	return id, args.Error(1)
}

func (m *MockOperations) UpdateCheckRun(ctx context.Context, repo github.Repo, checkRunID int64, update github.CheckRunUpdate) error {
	args := m.Called(ctx, repo, checkRunID, update)
	return args.Error(0)
}

func (m *MockOperations) ListChecksForRef(ctx context.Context, repo github.Repo, ref string) ([]github.CheckRun, error) {
	args := m.Called(ctx, repo, ref)
	runs, _ := args.Get(0).([]github.CheckRun)
	return runs, args.Error(1)
}

func (m *MockOperations) ListBranches(ctx context.Context, repo github.Repo) ([]github.Branch, error) {
	args := m.Called(ctx, repo)
	branches, _ := args.Get(0).([]github.Branch)
	return branches, args.Error(1)
}

func (m *MockOperations) CreatePullRequest(ctx context.Context, repo github.Repo, req github.NewPullRequest) (*github.PullRequest, error) {
	args := m.Called(ctx, repo, req)
	pr, _ := args.Get(0).(*github.PullRequest)
	return pr, args.Error(1)
}

func (m *MockOperations) ReadFile(ctx context.Context, repo github.Repo, path, ref string) (*github.File, error) {
	args := m.Called(ctx, repo, path, ref)
	file, _ := args.Get(0).(*github.File)
	return file, args.Error(1)
}

func (m *MockOperations) WriteFile(ctx context.Context, repo github.Repo, path string, content []byte, message string) (*github.WriteResult, error) {
	args := m.Called(ctx, repo, path, content, message)
	result, _ := args.Get(0).(*github.WriteResult)
	return result, args.Error(1)
}

func (m *MockOperations) GetRepository(ctx context.Context, repo github.Repo) (*github.Repository, error) {
	args := m.Called(ctx, repo)
	r, _ := args.Get(0).(*github.Repository)
	return r, args.Error(1)
}

func (m *MockOperations) ListOpenPullRequests(ctx context.Context, repo github.Repo) ([]github.PullRequest, error) {
	args := m.Called(ctx, repo)
	prs, _ := args.Get(0).([]github.PullRequest)
	return prs, args.Error(1)
}

func (m *MockOperations) ListDirectory(ctx context.Context, repo github.Repo, path, ref string) ([]github.DirEntry, error) {
	args := m.Called(ctx, repo, path, ref)
	entries, _ := args.Get(0).([]github.DirEntry)
	return entries, args.Error(1)
}
