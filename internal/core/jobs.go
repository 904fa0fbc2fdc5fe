package core

import (
	"context"
)

// Job represents a single, executable unit of work triggered by one event.
type Job interface {
	// Run executes the job's logic and reports what happened to each file.
	// It returns an error if the run as a whole must be reported as failed.
	Run(ctx context.Context, event *PullRequestEvent) (*RunSummary, error)
}

// PullRequestService lists the files of a pull request that are eligible for
// review and publishes review feedback back to the platform.
type PullRequestService interface {
	// ListFilesForReview returns the changed files that match none of the
	// exclusion patterns and whose status is added, modified or changed.
	ListFilesForReview(ctx context.Context, owner, repo string, number int, excludePatterns []string) ([]ChangedFile, error)
	// CreateReviewComment posts one comment anchored to a commit and a file.
	CreateReviewComment(ctx context.Context, comment ReviewComment) error
	// CreateReview posts a consolidated review with several comments in one call.
	CreateReview(ctx context.Context, review Review) error
	// GetFileContent returns the decoded content of a file at ref.
	// It returns an error wrapping ErrFileNotFound if the file does not exist.
	GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error)
	// GetPullRequestEvent builds a pull_request event for an existing pull request.
	GetPullRequestEvent(ctx context.Context, owner, repo string, number int) (*PullRequestEvent, error)
}

// CodeReviewer generates review feedback for changed files.
type CodeReviewer interface {
	// ReviewFile reviews the whole patch of a file in one backend call.
	ReviewFile(ctx context.Context, file ChangedFile) (ReviewResult, error)
	// ReviewChunks reviews each hunk of a file's patch separately and returns
	// one result per hunk in patch order, or an error if any hunk failed.
	ReviewChunks(ctx context.Context, file ChangedFile) ([]ReviewResult, error)
	// WithInstructions returns a reviewer that appends the given repository
	// specific instructions to every prompt.
	WithInstructions(instructions []string) CodeReviewer
}

// StatusReporter surfaces the progress of a run on the pull request's head commit.
type StatusReporter interface {
	InProgress(ctx context.Context, event *PullRequestEvent, title, summary string) (int64, error)
	Completed(ctx context.Context, event *PullRequestEvent, checkRunID int64, conclusion, title, summary string) error
}
