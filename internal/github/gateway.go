package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/review-action/internal/core"
	"github.com/sevigo/review-action/internal/metrics"
	"github.com/sevigo/review-action/internal/retry"
)

// GatewayOptions configures the retry behavior of the gateway.
type GatewayOptions struct {
	// Retry applies to listing files and reading repository contents.
	Retry retry.Policy
	// CommentRetry applies to publishing comments and reviews.
	CommentRetry retry.Policy
}

// DefaultGatewayOptions uses the default policy for reads and a higher
// attempt bound for publishing.
func DefaultGatewayOptions() GatewayOptions {
	return GatewayOptions{
		Retry:        retry.Default(),
		CommentRetry: retry.Default().WithMaxAttempts(5),
	}
}

// PullRequestGateway implements core.PullRequestService on top of a Client.
// Every networked call goes through the configured retry policies.
type PullRequestGateway struct {
	client  Client
	opts    GatewayOptions
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewPullRequestGateway creates the gateway. m may be nil.
func NewPullRequestGateway(client Client, opts GatewayOptions, logger *slog.Logger, m *metrics.Metrics) *PullRequestGateway {
	if client == nil || logger == nil {
		panic("NewPullRequestGateway: client and logger are required")
	}
	return &PullRequestGateway{client: client, opts: opts, logger: logger, metrics: m}
}

var _ core.PullRequestService = (*PullRequestGateway)(nil)

// ListFilesForReview fetches the changed files of a pull request and keeps the
// ones that match none of excludePatterns and are added, modified or changed.
func (g *PullRequestGateway) ListFilesForReview(ctx context.Context, owner, repo string, number int, excludePatterns []string) ([]core.ChangedFile, error) {
	files, err := retry.Do(ctx, g.policy(g.opts.Retry, "list_files"), func(ctx context.Context) ([]core.ChangedFile, error) {
		return g.client.ListFiles(ctx, owner, repo, number)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s/%s#%d: %w", owner, repo, number, err)
	}

	filtered := FilterReviewable(files, excludePatterns)
	for range len(files) - len(filtered) {
		g.metrics.File("excluded")
	}

	g.logger.Info("filtered pull request files",
		"pr", number,
		"original", len(files),
		"filtered", len(filtered),
		"files", filenames(filtered),
		"exclude_patterns", excludePatterns,
	)
	return filtered, nil
}

// CreateReviewComment posts a file-level review comment.
func (g *PullRequestGateway) CreateReviewComment(ctx context.Context, c core.ReviewComment) error {
	comment := &github.PullRequestComment{
		CommitID: github.Ptr(c.CommitID),
		Path:     github.Ptr(c.Path),
		Body:     github.Ptr(c.Body),
	}
	if c.SubjectType != "" {
		comment.SubjectType = github.Ptr(c.SubjectType)
	}

	err := retry.Run(ctx, g.policy(g.opts.CommentRetry, "create_review_comment"), func(ctx context.Context) error {
		return g.client.CreateReviewComment(ctx, c.Owner, c.Repo, c.PRNumber, comment)
	})
	g.metrics.Comment(err)
	if err != nil {
		return fmt.Errorf("failed to comment on %s: %w", c.Path, err)
	}
	return nil
}

// CreateReview posts a review with several inline comments in one request.
func (g *PullRequestGateway) CreateReview(ctx context.Context, r core.Review) error {
	event := r.Event
	if event == "" {
		event = "COMMENT"
	}
	comments := make([]*github.DraftReviewComment, 0, len(r.Comments))
	for _, c := range r.Comments {
		draft := &github.DraftReviewComment{
			Path: github.Ptr(c.Path),
			Line: github.Ptr(c.Line),
			Body: github.Ptr(c.Body),
		}
		if c.Side != "" {
			draft.Side = github.Ptr(c.Side)
		}
		comments = append(comments, draft)
	}
	req := &github.PullRequestReviewRequest{
		CommitID: github.Ptr(r.CommitID),
		Event:    github.Ptr(event),
		Comments: comments,
	}
	if r.Body != "" {
		req.Body = github.Ptr(r.Body)
	}

	err := retry.Run(ctx, g.policy(g.opts.CommentRetry, "create_review"), func(ctx context.Context) error {
		return g.client.CreateReview(ctx, r.Owner, r.Repo, r.PRNumber, req)
	})
	for range r.Comments {
		g.metrics.Comment(err)
	}
	if err != nil {
		return fmt.Errorf("failed to create review on %s/%s#%d: %w", r.Owner, r.Repo, r.PRNumber, err)
	}
	return nil
}

// GetFileContent reads a file at ref. A missing file is not retried.
func (g *PullRequestGateway) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	return retry.Do(ctx, g.policy(g.opts.Retry, "get_file_content"), func(ctx context.Context) ([]byte, error) {
		data, err := g.client.GetFileContent(ctx, owner, repo, path, ref)
		if errors.Is(err, core.ErrFileNotFound) {
			return nil, retry.Permanent(err)
		}
		return data, err
	})
}

// GetPullRequestEvent builds a pull_request event for an existing pull request
// so that a review can be started outside of a workflow run.
func (g *PullRequestGateway) GetPullRequestEvent(ctx context.Context, owner, repo string, number int) (*core.PullRequestEvent, error) {
	pr, err := retry.Do(ctx, g.policy(g.opts.Retry, "get_pull_request"), func(ctx context.Context) (*github.PullRequest, error) {
		return g.client.GetPullRequest(ctx, owner, repo, number)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pull request %s/%s#%d: %w", owner, repo, number, err)
	}
	if pr.GetHead().GetSHA() == "" {
		return nil, fmt.Errorf("PR %d has no valid head SHA", number)
	}
	return &core.PullRequestEvent{
		EventName: core.PullRequestEventName,
		Action:    "manual",
		RepoOwner: owner,
		RepoName:  repo,
		PRNumber:  number,
		PRTitle:   pr.GetTitle(),
		HeadSHA:   pr.GetHead().GetSHA(),
	}, nil
}

func (g *PullRequestGateway) policy(p retry.Policy, operation string) retry.Policy {
	return p.WithNotify(func(attempt int, err error, wait time.Duration) {
		g.metrics.Retry(operation)
		g.logger.Warn("retrying GitHub call", "operation", operation, "attempt", attempt, "wait", wait, "error", err)
	})
}

func filenames(files []core.ChangedFile) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Filename)
	}
	return names
}
