package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-action/internal/config"
	"github.com/sevigo/review-action/internal/core"
	"github.com/sevigo/review-action/internal/metrics"
)

type fakePRService struct {
	mu       sync.Mutex
	files    []core.ChangedFile
	listErr  error
	repoCfg  []byte
	cfgErr   error
	patterns []string
	comments []core.ReviewComment
	reviews  []core.Review
	listed   int
	failPath string
}

func (f *fakePRService) ListFilesForReview(_ context.Context, _, _ string, _ int, patterns []string) ([]core.ChangedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed++
	f.patterns = patterns
	return f.files, f.listErr
}

func (f *fakePRService) CreateReviewComment(_ context.Context, c core.ReviewComment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.Path == f.failPath {
		return errors.New("secondary rate limit")
	}
	f.comments = append(f.comments, c)
	return nil
}

func (f *fakePRService) CreateReview(_ context.Context, r core.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = append(f.reviews, r)
	return nil
}

func (f *fakePRService) GetFileContent(context.Context, string, string, string, string) ([]byte, error) {
	if f.cfgErr != nil {
		return nil, f.cfgErr
	}
	if f.repoCfg == nil {
		return nil, core.ErrFileNotFound
	}
	return f.repoCfg, nil
}

func (f *fakePRService) GetPullRequestEvent(context.Context, string, string, int) (*core.PullRequestEvent, error) {
	return nil, errors.New("not used")
}

type fakeReviewer struct {
	instructions []string
	review       func(file core.ChangedFile) (core.ReviewResult, error)
	chunks       func(file core.ChangedFile) ([]core.ReviewResult, error)
}

func (r *fakeReviewer) ReviewFile(_ context.Context, file core.ChangedFile) (core.ReviewResult, error) {
	return r.review(file)
}

func (r *fakeReviewer) ReviewChunks(_ context.Context, file core.ChangedFile) ([]core.ReviewResult, error) {
	return r.chunks(file)
}

func (r *fakeReviewer) WithInstructions(instructions []string) core.CodeReviewer {
	clone := *r
	clone.instructions = instructions
	return &clone
}

type fakeStatus struct {
	inProgress    int
	inProgressErr error
	completed     int
	conclusion string
	summary    string
	checkRunID int64
}

func (s *fakeStatus) InProgress(context.Context, *core.PullRequestEvent, string, string) (int64, error) {
	s.inProgress++
	if s.inProgressErr != nil {
		return 0, s.inProgressErr
	}
	return 42, nil
}

func (s *fakeStatus) Completed(_ context.Context, _ *core.PullRequestEvent, id int64, conclusion, _, summary string) error {
	s.completed++
	s.checkRunID = id
	s.conclusion = conclusion
	s.summary = summary
	return nil
}

func testConfig(mode string) *config.Config {
	return &config.Config{
		Review: config.ReviewConfig{
			Mode:           mode,
			MaxWorkers:     2,
			ExcludeFiles:   []string{"*.md"},
			RepoConfigPath: ".github/review-action.yml",
		},
	}
}

func testEvent() *core.PullRequestEvent {
	return &core.PullRequestEvent{
		EventName: core.PullRequestEventName,
		Action:    "synchronize",
		RepoOwner: "acme",
		RepoName:  "widgets",
		PRNumber:  7,
		HeadSHA:   "abc123",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func echoReviewer() *fakeReviewer {
	return &fakeReviewer{review: func(file core.ChangedFile) (core.ReviewResult, error) {
		return core.ReviewResult{Filename: file.Filename, Language: "go", Body: "review of " + file.Filename}, nil
	}}
}

func TestNewReviewJob_PanicsOnNilDependencies(t *testing.T) {
	assert.Panics(t, func() { NewReviewJob(nil, &fakePRService{}, echoReviewer(), nil, discardLogger(), nil) })
	assert.Panics(t, func() { NewReviewJob(testConfig(config.ReviewModeFile), nil, echoReviewer(), nil, discardLogger(), nil) })
	assert.Panics(t, func() { NewReviewJob(testConfig(config.ReviewModeFile), &fakePRService{}, nil, nil, discardLogger(), nil) })
	assert.Panics(t, func() { NewReviewJob(testConfig(config.ReviewModeFile), &fakePRService{}, echoReviewer(), nil, nil, nil) })
}

func TestRun_RejectsNonPullRequestEvents(t *testing.T) {
	prs := &fakePRService{}
	status := &fakeStatus{}
	job := NewReviewJob(testConfig(config.ReviewModeFile), prs, echoReviewer(), status, discardLogger(), nil)

	event := testEvent()
	event.EventName = "push"
	summary, err := job.Run(context.Background(), event)

	require.ErrorIs(t, err, core.ErrUnsupportedEvent)
	assert.Contains(t, err.Error(), "this action only works on pull_request events. Got: push")
	assert.Nil(t, summary)
	assert.Zero(t, prs.listed, "no network call before validation")
	assert.Zero(t, status.inProgress)
}

func TestRun_RejectsIncompleteEvents(t *testing.T) {
	job := NewReviewJob(testConfig(config.ReviewModeFile), &fakePRService{}, echoReviewer(), nil, discardLogger(), nil)

	_, err := job.Run(context.Background(), nil)
	assert.Error(t, err)

	event := testEvent()
	event.HeadSHA = ""
	_, err = job.Run(context.Background(), event)
	assert.ErrorContains(t, err, "head SHA")
}

func TestRun_PostsOneCommentPerFile(t *testing.T) {
	prs := &fakePRService{
		files: []core.ChangedFile{
			{Filename: "a.go", Status: core.StatusModified, Patch: "@@ -1 +1 @@\n-a\n+b"},
			{Filename: "b.go", Status: core.StatusAdded, Patch: "@@ -0,0 +1 @@\n+c"},
			{Filename: "logo.png", Status: core.StatusAdded},
		},
		repoCfg: []byte("exclude_files: [\"vendor/**\"]\ncustom_instructions: [\"Be brief.\"]\n"),
	}
	reviewer := &fakeReviewer{}
	var seen []string
	var mu sync.Mutex
	reviewer.review = func(file core.ChangedFile) (core.ReviewResult, error) {
		mu.Lock()
		seen = append(seen, file.Filename)
		mu.Unlock()
		return core.ReviewResult{Filename: file.Filename, Language: "go", Body: "ok"}, nil
	}
	status := &fakeStatus{}
	m := metrics.New()
	job := NewReviewJob(testConfig(config.ReviewModeFile), prs, reviewer, status, discardLogger(), m)

	summary, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Equal(t, &core.RunSummary{Listed: 3, Eligible: 2, Reviewed: 2, Comments: 2}, summary)
	assert.Equal(t, []string{"*.md", "vendor/**"}, prs.patterns)
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, seen)

	require.Len(t, prs.comments, 2)
	for _, c := range prs.comments {
		assert.Equal(t, "abc123", c.CommitID)
		assert.Equal(t, "file", c.SubjectType)
		assert.Equal(t, 7, c.PRNumber)
		assert.Equal(t, "ok", c.Body)
	}

	assert.Equal(t, 1, status.inProgress)
	assert.Equal(t, int64(42), status.checkRunID)
	assert.Equal(t, "success", status.conclusion)
	assert.Contains(t, status.summary, "Review complete")
}

func TestRun_AppliesRepoInstructions(t *testing.T) {
	prs := &fakePRService{
		files:   []core.ChangedFile{{Filename: "a.go", Status: core.StatusModified, Patch: "@@"}},
		repoCfg: []byte("custom_instructions: [\"Check error wrapping.\"]\n"),
	}
	var got []string
	base := &fakeReviewer{}
	base.review = func(file core.ChangedFile) (core.ReviewResult, error) {
		return core.ReviewResult{Filename: file.Filename, Body: "ok"}, nil
	}
	wrapped := &instructionRecorder{fakeReviewer: base, got: &got}
	job := NewReviewJob(testConfig(config.ReviewModeFile), prs, wrapped, nil, discardLogger(), nil)

	_, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, []string{"Check error wrapping."}, got)
}

type instructionRecorder struct {
	*fakeReviewer
	got *[]string
}

func (r *instructionRecorder) WithInstructions(instructions []string) core.CodeReviewer {
	*r.got = instructions
	return r.fakeReviewer.WithInstructions(instructions)
}

func TestRun_ContinuesPastFailedFiles(t *testing.T) {
	prs := &fakePRService{
		files: []core.ChangedFile{
			{Filename: "a.go", Status: core.StatusModified, Patch: "@@"},
			{Filename: "b.go", Status: core.StatusModified, Patch: "@@"},
			{Filename: "c.go", Status: core.StatusModified, Patch: "@@"},
			{Filename: "d.go", Status: core.StatusModified, Patch: "@@"},
		},
		failPath: "c.go",
	}
	reviewer := &fakeReviewer{review: func(file core.ChangedFile) (core.ReviewResult, error) {
		if file.Filename == "b.go" {
			return core.ReviewResult{}, errors.New("gave up after 3 attempts: boom")
		}
		return core.ReviewResult{Filename: file.Filename, Body: "ok"}, nil
	}}
	status := &fakeStatus{}
	job := NewReviewJob(testConfig(config.ReviewModeFile), prs, reviewer, status, discardLogger(), nil)

	summary, err := job.Run(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "review failed for 2 of 4 files")
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "secondary rate limit")

	assert.Equal(t, 2, summary.Reviewed)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 2, summary.Comments)
	assert.Len(t, prs.comments, 2)

	assert.Equal(t, "failure", status.conclusion)
	assert.Contains(t, status.summary, "`b.go`")
	assert.Contains(t, status.summary, "`c.go`")
}

func TestRun_SkipsUndetectedLanguages(t *testing.T) {
	prs := &fakePRService{files: []core.ChangedFile{
		{Filename: "Makefile", Status: core.StatusModified, Patch: "@@"},
		{Filename: "a.go", Status: core.StatusModified, Patch: "@@"},
	}}
	reviewer := &fakeReviewer{review: func(file core.ChangedFile) (core.ReviewResult, error) {
		if file.Filename == "Makefile" {
			return core.ReviewResult{}, core.ErrLanguageNotDetected
		}
		return core.ReviewResult{Filename: file.Filename, Body: "ok"}, nil
	}}
	job := NewReviewJob(testConfig(config.ReviewModeFile), prs, reviewer, nil, discardLogger(), nil)

	summary, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Reviewed)
	require.Len(t, prs.comments, 1)
	assert.Equal(t, "a.go", prs.comments[0].Path)
}

func TestRun_ChunkModeAnchorsComments(t *testing.T) {
	prs := &fakePRService{files: []core.ChangedFile{
		{Filename: "a.go", Status: core.StatusModified, Patch: "@@"},
	}}
	added := &core.DiffChunk{Header: "@@ -1,2 +1,3 @@", Content: "@@ -1,2 +1,3 @@\n a\n+b\n c", OldStart: 1, OldLines: 2, NewStart: 1, NewLines: 3}
	deleted := &core.DiffChunk{Header: "@@ -10,2 +11,0 @@", Content: "@@ -10,2 +11,0 @@\n-x\n-y", OldStart: 10, OldLines: 2, NewStart: 11, NewLines: 0}
	reviewer := &fakeReviewer{chunks: func(file core.ChangedFile) ([]core.ReviewResult, error) {
		return []core.ReviewResult{
			{Filename: file.Filename, Body: "first", Chunk: added},
			{Filename: file.Filename, Body: "second", Chunk: deleted},
		}, nil
	}}
	job := NewReviewJob(testConfig(config.ReviewModeChunks), prs, reviewer, nil, discardLogger(), nil)

	summary, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Comments)

	require.Len(t, prs.reviews, 1)
	review := prs.reviews[0]
	assert.Equal(t, "abc123", review.CommitID)
	assert.Equal(t, "COMMENT", review.Event)
	assert.Equal(t, []core.DraftReviewComment{{Path: "a.go", Line: 3, Side: "RIGHT", Body: "first"}}, review.Comments)

	require.Len(t, prs.comments, 1)
	assert.Equal(t, "second", prs.comments[0].Body)
	assert.Equal(t, "file", prs.comments[0].SubjectType)
}

func TestRun_InvalidRepoConfigFailsRun(t *testing.T) {
	prs := &fakePRService{
		files:   []core.ChangedFile{{Filename: "a.go", Status: core.StatusModified, Patch: "@@"}},
		repoCfg: []byte("exclude_files: {not: [a list"),
	}
	status := &fakeStatus{}
	job := NewReviewJob(testConfig(config.ReviewModeFile), prs, echoReviewer(), status, discardLogger(), nil)

	summary, err := job.Run(context.Background(), testEvent())
	require.ErrorIs(t, err, config.ErrConfigParsing)
	assert.Nil(t, summary)
	assert.Zero(t, prs.listed)
	assert.Equal(t, "failure", status.conclusion)
	assert.Contains(t, status.summary, "did not start")
}

func TestRun_RepoConfigFetchErrorUsesDefaults(t *testing.T) {
	prs := &fakePRService{
		files:  []core.ChangedFile{{Filename: "a.go", Status: core.StatusModified, Patch: "@@"}},
		cfgErr: errors.New("gave up after 3 attempts: 502"),
	}
	job := NewReviewJob(testConfig(config.ReviewModeFile), prs, echoReviewer(), nil, discardLogger(), nil)

	summary, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reviewed)
	assert.Equal(t, []string{"*.md"}, prs.patterns)
}

func TestRun_ListFailure(t *testing.T) {
	prs := &fakePRService{listErr: errors.New("401 Bad credentials")}
	job := NewReviewJob(testConfig(config.ReviewModeFile), prs, echoReviewer(), nil, discardLogger(), nil)

	_, err := job.Run(context.Background(), testEvent())
	assert.ErrorContains(t, err, "failed to list files")
}

func TestRun_EmptyPullRequest(t *testing.T) {
	prs := &fakePRService{}
	status := &fakeStatus{}
	job := NewReviewJob(testConfig(config.ReviewModeFile), prs, echoReviewer(), status, discardLogger(), nil)

	summary, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, &core.RunSummary{}, summary)
	assert.Contains(t, status.summary, "Nothing to review")
}

func TestRun_ZeroMaxWorkersStillReviews(t *testing.T) {
	prs := &fakePRService{
		files: []core.ChangedFile{
			{Filename: "a.go", Status: core.StatusModified, Patch: "@@ -1 +1 @@\n-a\n+b"},
			{Filename: "b.go", Status: core.StatusAdded, Patch: "@@ -0,0 +1 @@\n+c"},
		},
	}
	cfg := testConfig(config.ReviewModeFile)
	cfg.Review.MaxWorkers = 0
	job := NewReviewJob(cfg, prs, echoReviewer(), nil, discardLogger(), nil)

	type result struct {
		summary *core.RunSummary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		summary, err := job.Run(context.Background(), testEvent())
		done <- result{summary, err}
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, 2, r.summary.Reviewed)
		assert.Len(t, prs.comments, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish with max workers set to zero")
	}
}

func TestRun_StatusFailureDoesNotFailRun(t *testing.T) {
	prs := &fakePRService{
		files: []core.ChangedFile{
			{Filename: "a.go", Status: core.StatusModified, Patch: "@@ -1 +1 @@\n-a\n+b"},
		},
	}
	status := &fakeStatus{inProgressErr: errors.New("403 Resource not accessible by integration")}
	job := NewReviewJob(testConfig(config.ReviewModeFile), prs, echoReviewer(), status, discardLogger(), nil)

	summary, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Reviewed)
	assert.Len(t, prs.comments, 1)
	assert.Equal(t, 1, status.inProgress)
	assert.Zero(t, status.completed, "no check run to complete")
}
