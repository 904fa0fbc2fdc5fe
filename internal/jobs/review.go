// Package jobs defines the review pipeline run for one pull request event.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/review-action/internal/config"
	"github.com/sevigo/review-action/internal/core"
	"github.com/sevigo/review-action/internal/github"
	"github.com/sevigo/review-action/internal/metrics"
)

const subjectTypeFile = "file"

// ReviewJob validates the triggering event, lists the reviewable files of the
// pull request, reviews each one and publishes the results.
type ReviewJob struct {
	cfg      *config.Config
	prs      core.PullRequestService
	reviewer core.CodeReviewer
	status   core.StatusReporter
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewReviewJob creates a new ReviewJob. status and m may be nil.
func NewReviewJob(
	cfg *config.Config,
	prs core.PullRequestService,
	reviewer core.CodeReviewer,
	status core.StatusReporter,
	logger *slog.Logger,
	m *metrics.Metrics,
) *ReviewJob {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if prs == nil {
		panic("pull request service cannot be nil")
	}
	if reviewer == nil {
		panic("code reviewer cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ReviewJob{cfg: cfg, prs: prs, reviewer: reviewer, status: status, logger: logger, metrics: m}
}

var _ core.Job = (*ReviewJob)(nil)

// fileOutcome is what happened to one file.
type fileOutcome struct {
	comments int
	skipped  bool
	err      error
}

// Run executes the review pipeline for a pull request event. Files are
// processed independently: a failed file does not stop the others, and the
// run reports failure afterwards with every cause attached.
func (j *ReviewJob) Run(ctx context.Context, event *core.PullRequestEvent) (*core.RunSummary, error) {
	if err := j.validateInputs(ctx, event); err != nil {
		j.logger.Error("Input validation failed", "error", err)
		return nil, err
	}

	j.logger.Info("Starting review job", "repo", event.RepoFullName(), "pr", event.PRNumber, "head", event.HeadSHA, "mode", j.cfg.Review.Mode)
	start := time.Now()

	// A status that cannot be created (for example a token without
	// checks:write) is not reported at all; the review still runs.
	status := j.status
	var checkRunID int64
	if status != nil {
		id, err := status.InProgress(ctx, event, github.CheckRunName, "Reviewing changed files...")
		if err != nil {
			j.logger.Warn("Failed to set in-progress status, continuing without it", "error", err)
			status = nil
		}
		checkRunID = id
	}

	summary, failures, err := j.run(ctx, event)
	j.metrics.ObserveRun(time.Since(start), err)
	j.logSummary(event, summary, err)

	if status != nil {
		j.reportCompletion(ctx, status, event, checkRunID, summary, failures, err)
	}
	return summary, err
}

func (j *ReviewJob) run(ctx context.Context, event *core.PullRequestEvent) (*core.RunSummary, []string, error) {
	repoCfg, err := j.loadRepoConfig(ctx, event)
	if err != nil {
		return nil, nil, err
	}

	patterns := append(append([]string{}, j.cfg.Review.ExcludeFiles...), repoCfg.ExcludeFiles...)
	files, err := j.prs.ListFilesForReview(ctx, event.RepoOwner, event.RepoName, event.PRNumber, patterns)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list files: %w", err)
	}

	summary := &core.RunSummary{Listed: len(files)}
	eligible := make([]core.ChangedFile, 0, len(files))
	for _, f := range files {
		if !f.HasPatch() {
			j.logger.Info("Skipping file without patch", "file", f.Filename, "status", f.Status)
			j.metrics.File("no_patch")
			continue
		}
		eligible = append(eligible, f)
	}
	summary.Eligible = len(eligible)

	reviewer := j.reviewer
	if len(repoCfg.CustomInstructions) > 0 {
		reviewer = reviewer.WithInstructions(repoCfg.CustomInstructions)
	}

	workers := j.cfg.Review.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	outcomes := make([]fileOutcome, len(eligible))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, file := range eligible {
		g.Go(func() error {
			outcomes[i] = j.processFile(ctx, reviewer, event, file)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	var failures []string
	for i, o := range outcomes {
		switch {
		case o.err != nil:
			summary.Failed++
			errs = append(errs, o.err)
			failures = append(failures, fmt.Sprintf("`%s`: %v", eligible[i].Filename, o.err))
			j.metrics.File("failed")
		case o.skipped:
			summary.Skipped++
			j.metrics.File("skipped")
		default:
			summary.Reviewed++
			j.metrics.File("reviewed")
		}
		summary.Comments += o.comments
	}

	if len(errs) > 0 {
		return summary, failures, fmt.Errorf("review failed for %d of %d files: %w", summary.Failed, summary.Eligible, errors.Join(errs...))
	}
	return summary, nil, nil
}

func (j *ReviewJob) processFile(ctx context.Context, reviewer core.CodeReviewer, event *core.PullRequestEvent, file core.ChangedFile) fileOutcome {
	if j.cfg.Review.Mode == config.ReviewModeChunks {
		return j.processChunks(ctx, reviewer, event, file)
	}

	result, err := reviewer.ReviewFile(ctx, file)
	if errors.Is(err, core.ErrLanguageNotDetected) {
		j.logger.Info("Skipping file, language not detected", "file", file.Filename)
		return fileOutcome{skipped: true}
	}
	if err != nil {
		j.logger.Error("Failed to review file", "file", file.Filename, "error", err)
		return fileOutcome{err: err}
	}

	if err := j.prs.CreateReviewComment(ctx, j.fileComment(event, file.Filename, result.Body)); err != nil {
		j.logger.Error("Failed to post review comment", "file", file.Filename, "error", err)
		return fileOutcome{err: err}
	}
	j.logger.Info("Posted review comment", "file", file.Filename, "language", result.Language)
	return fileOutcome{comments: 1}
}

func (j *ReviewJob) processChunks(ctx context.Context, reviewer core.CodeReviewer, event *core.PullRequestEvent, file core.ChangedFile) fileOutcome {
	results, err := reviewer.ReviewChunks(ctx, file)
	if errors.Is(err, core.ErrLanguageNotDetected) {
		j.logger.Info("Skipping file, language not detected", "file", file.Filename)
		return fileOutcome{skipped: true}
	}
	if err != nil {
		j.logger.Error("Failed to review file chunks", "file", file.Filename, "error", err)
		return fileOutcome{err: err}
	}

	inline, offDiff := splitChunkComments(j.logger, file.Filename, results)
	posted := 0
	if len(inline) > 0 {
		review := core.Review{
			Owner:    event.RepoOwner,
			Repo:     event.RepoName,
			PRNumber: event.PRNumber,
			CommitID: event.HeadSHA,
			Event:    "COMMENT",
			Comments: inline,
		}
		if err := j.prs.CreateReview(ctx, review); err != nil {
			j.logger.Error("Failed to post chunk review", "file", file.Filename, "error", err)
			return fileOutcome{err: err}
		}
		posted += len(inline)
	}
	for _, r := range offDiff {
		if err := j.prs.CreateReviewComment(ctx, j.fileComment(event, file.Filename, r.Body)); err != nil {
			j.logger.Error("Failed to post review comment", "file", file.Filename, "error", err)
			return fileOutcome{comments: posted, err: err}
		}
		posted++
	}

	j.logger.Info("Posted chunk reviews", "file", file.Filename, "chunks", len(results), "comments", posted)
	return fileOutcome{comments: posted}
}

func (j *ReviewJob) fileComment(event *core.PullRequestEvent, path, body string) core.ReviewComment {
	return core.ReviewComment{
		Owner:       event.RepoOwner,
		Repo:        event.RepoName,
		PRNumber:    event.PRNumber,
		CommitID:    event.HeadSHA,
		Path:        path,
		Body:        body,
		SubjectType: subjectTypeFile,
	}
}

// loadRepoConfig reads the repository config at the head commit. A missing
// file or a failed download yields the defaults; a malformed file fails the run.
func (j *ReviewJob) loadRepoConfig(ctx context.Context, event *core.PullRequestEvent) (*core.RepoConfig, error) {
	path := j.cfg.Review.RepoConfigPath
	if path == "" {
		return core.DefaultRepoConfig(), nil
	}

	data, err := j.prs.GetFileContent(ctx, event.RepoOwner, event.RepoName, path, event.HeadSHA)
	if errors.Is(err, core.ErrFileNotFound) {
		j.logger.Debug("No repository config found, using defaults", "path", path)
		return core.DefaultRepoConfig(), nil
	}
	if err != nil {
		j.logger.Warn("Failed to fetch repository config, using defaults", "path", path, "error", err)
		return core.DefaultRepoConfig(), nil
	}

	repoCfg, err := config.ParseRepoConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	j.logger.Info("Loaded repository config", "path", path,
		"exclude_files", len(repoCfg.ExcludeFiles),
		"custom_instructions", len(repoCfg.CustomInstructions),
	)
	return repoCfg, nil
}

// validateInputs ensures the event is a pull request event carrying all
// required fields. It runs before any network call.
func (j *ReviewJob) validateInputs(ctx context.Context, event *core.PullRequestEvent) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if !event.IsPullRequest() {
		return fmt.Errorf("%w: this action only works on pull_request events. Got: %s", core.ErrUnsupportedEvent, event.EventName)
	}
	if event.RepoOwner == "" {
		return fmt.Errorf("repository owner cannot be empty")
	}
	if event.RepoName == "" {
		return fmt.Errorf("repository name cannot be empty")
	}
	if event.PRNumber <= 0 {
		return fmt.Errorf("pull request number must be positive, got: %d", event.PRNumber)
	}
	if event.HeadSHA == "" {
		return fmt.Errorf("head SHA cannot be empty")
	}
	return nil
}

func (j *ReviewJob) logSummary(event *core.PullRequestEvent, s *core.RunSummary, err error) {
	if s == nil {
		return
	}
	attrs := []any{
		"repo", event.RepoFullName(),
		"pr", event.PRNumber,
		"listed", s.Listed,
		"eligible", s.Eligible,
		"reviewed", s.Reviewed,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"comments", s.Comments,
	}
	if err != nil {
		j.logger.Error("Review job finished with failures", append(attrs, "error", err)...)
		return
	}
	j.logger.Info("Review job completed successfully", attrs...)
}

// reportCompletion closes the check run. A run that stopped before any file
// was reviewed reports the error itself as the single failure.
func (j *ReviewJob) reportCompletion(ctx context.Context, status core.StatusReporter, event *core.PullRequestEvent, checkRunID int64, s *core.RunSummary, failures []string, runErr error) {
	conclusion, title := "success", "Review Complete"
	if runErr != nil {
		conclusion, title = "failure", "Review Failed"
		if s == nil {
			failures = []string{runErr.Error()}
		}
	}
	if err := status.Completed(ctx, event, checkRunID, conclusion, title, github.FormatRunSummary(s, failures)); err != nil {
		j.logger.Error("Failed to update completion status", "error", err)
	}
}
