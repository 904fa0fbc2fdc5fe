// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/review-action/internal/core"
)

// listFilesPageSize is the largest page the pull request files API returns.
const listFilesPageSize = 100

// Client defines the subset of the GitHub API the review action talks to:
// pull request files, review comments, repository contents and check runs.
//
//go:generate mockgen -destination=../../mocks/mock_github_client.go -package=mocks . Client
type Client interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	ListFiles(ctx context.Context, owner, repo string, number int) ([]core.ChangedFile, error)
	CreateReviewComment(ctx context.Context, owner, repo string, number int, comment *github.PullRequestComment) error
	CreateReview(ctx context.Context, owner, repo string, number int, review *github.PullRequestReviewRequest) error
	GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error)
	CreateCheckRun(ctx context.Context, owner, repo string, opts github.CreateCheckRunOptions) (*github.CheckRun, error)
	UpdateCheckRun(ctx context.Context, owner, repo string, checkRunID int64, opts github.UpdateCheckRunOptions) (*github.CheckRun, error)
}

type gitHubClient struct {
	client *github.Client
	logger *slog.Logger
}

// NewGitHubClient wraps the official go-github client to provide a focused,
// testable interface for application-specific GitHub operations.
func NewGitHubClient(client *github.Client, logger *slog.Logger) Client {
	return &gitHubClient{client: client, logger: logger}
}

// NewPATClient creates a new GitHub client authenticated with a token, either
// a Personal Access Token or the workflow's GITHUB_TOKEN.
func NewPATClient(ctx context.Context, token string, logger *slog.Logger) Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)
	return &gitHubClient{client: client, logger: logger}
}

// GetPullRequest retrieves a single pull request by its number.
func (g *gitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		g.logger.Error("failed to get pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
		return nil, err
	}
	return pr, nil
}

// ListFiles retrieves the first page of files changed in a pull request,
// up to listFilesPageSize entries. Later pages are not requested.
func (g *gitHubClient) ListFiles(ctx context.Context, owner, repo string, number int) ([]core.ChangedFile, error) {
	opts := &github.ListOptions{PerPage: listFilesPageSize}
	files, resp, err := g.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
	if err != nil {
		g.logger.Error("failed to list files for pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
		return nil, err
	}
	if resp != nil && resp.NextPage != 0 {
		g.logger.Warn("pull request has more changed files than one page, reviewing the first page only",
			"owner", owner, "repo", repo, "pr", number, "page_size", listFilesPageSize)
	}

	changed := make([]core.ChangedFile, 0, len(files))
	for _, file := range files {
		changed = append(changed, core.ChangedFile{
			Filename: file.GetFilename(),
			Status:   core.FileStatus(file.GetStatus()),
			Patch:    file.GetPatch(),
		})
	}
	return changed, nil
}

// CreateReviewComment posts a single review comment on a pull request.
func (g *gitHubClient) CreateReviewComment(ctx context.Context, owner, repo string, number int, comment *github.PullRequestComment) error {
	_, _, err := g.client.PullRequests.CreateComment(ctx, owner, repo, number, comment)
	if err != nil {
		g.logger.Error("failed to create review comment", "owner", owner, "repo", repo, "pr", number, "path", comment.GetPath(), "error", err)
	}
	return err
}

// CreateReview creates a new pull request review with line-specific comments.
func (g *gitHubClient) CreateReview(ctx context.Context, owner, repo string, number int, review *github.PullRequestReviewRequest) error {
	_, _, err := g.client.PullRequests.CreateReview(ctx, owner, repo, number, review)
	if err != nil {
		g.logger.Error("failed to create pull request review", "owner", owner, "repo", repo, "pr", number, "error", err)
	}
	return err
}

// GetFileContent downloads a file from the repository at ref.
// A missing file is reported as core.ErrFileNotFound.
func (g *gitHubClient) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	file, _, _, err := g.client.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s@%s: %w", path, ref, core.ErrFileNotFound)
		}
		g.logger.Error("failed to get file content", "owner", owner, "repo", repo, "path", path, "ref", ref, "error", err)
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return []byte(content), nil
}

// CreateCheckRun creates a new check run.
func (g *gitHubClient) CreateCheckRun(ctx context.Context, owner, repo string, opts github.CreateCheckRunOptions) (*github.CheckRun, error) {
	checkRun, _, err := g.client.Checks.CreateCheckRun(ctx, owner, repo, opts)
	if err != nil {
		g.logger.Error("failed to create check run", "owner", owner, "repo", repo, "error", err)
		return nil, err
	}
	return checkRun, nil
}

// UpdateCheckRun updates an existing check run.
func (g *gitHubClient) UpdateCheckRun(ctx context.Context, owner, repo string, checkRunID int64, opts github.UpdateCheckRunOptions) (*github.CheckRun, error) {
	checkRun, _, err := g.client.Checks.UpdateCheckRun(ctx, owner, repo, checkRunID, opts)
	if err != nil {
		g.logger.Error("failed to update check run", "owner", owner, "repo", repo, "checkRunID", checkRunID, "error", err)
	}
	return checkRun, err
}
