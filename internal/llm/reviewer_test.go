package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-action/internal/core"
	"github.com/sevigo/review-action/internal/language"
	"github.com/sevigo/review-action/internal/retry"
)

// scriptedBackend replies with the results of fn and records every request.
type scriptedBackend struct {
	mu       sync.Mutex
	requests []Request
	fn       func(call int, req Request) (string, error)
}

func (b *scriptedBackend) Provider() string { return "fake" }

func (b *scriptedBackend) Generate(_ context.Context, req Request) (string, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	call := len(b.requests)
	b.mu.Unlock()
	return b.fn(call, req)
}

func (b *scriptedBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func newTestReviewer(backend Backend, concurrency int) *ReviewService {
	policy := retry.Default()
	policy.Sleep = func(context.Context, time.Duration) error { return nil }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewReviewService(backend, language.New(nil), ReviewerOptions{Retry: policy, ChunkConcurrency: concurrency}, logger, nil)
}

func TestReviewFile(t *testing.T) {
	backend := &scriptedBackend{fn: func(int, Request) (string, error) { return "Use `checked_add`.", nil }}
	reviewer := newTestReviewer(backend, 1)

	got, err := reviewer.ReviewFile(context.Background(), core.ChangedFile{
		Filename: "x.rs", Status: core.StatusModified, Patch: "@@ -1 +1 @@\n-a\n+b",
	})
	require.NoError(t, err)
	assert.Equal(t, "x.rs", got.Filename)
	assert.Equal(t, "rust", got.Language)
	assert.Equal(t, "Use `checked_add`.", got.Body)
	assert.Nil(t, got.Chunk)

	require.Len(t, backend.requests, 1)
	assert.Equal(t, CodeReviewPrompt, backend.requests[0].Prompt)
	assert.Equal(t, "rust", backend.requests[0].Language)
	assert.Equal(t, "@@ -1 +1 @@\n-a\n+b", backend.requests[0].Diff)
}

func TestReviewFile_RetriesUntilThirdAttempt(t *testing.T) {
	backend := &scriptedBackend{fn: func(call int, _ Request) (string, error) {
		if call < 3 {
			return "", errors.New("malformed response")
		}
		return "attempt 3 output", nil
	}}
	reviewer := newTestReviewer(backend, 1)

	got, err := reviewer.ReviewFile(context.Background(), core.ChangedFile{Filename: "x.rs", Patch: "@@"})
	require.NoError(t, err)
	assert.Equal(t, "attempt 3 output", got.Body)
	assert.Equal(t, 3, backend.calls())
}

func TestReviewFile_GivesUpAfterBound(t *testing.T) {
	backend := &scriptedBackend{fn: func(int, Request) (string, error) { return "", errors.New("down") }}
	reviewer := newTestReviewer(backend, 1)

	_, err := reviewer.ReviewFile(context.Background(), core.ChangedFile{Filename: "x.rs", Patch: "@@"})
	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, backend.calls())
}

func TestReviewFile_UnknownLanguageSkipsBackend(t *testing.T) {
	backend := &scriptedBackend{fn: func(int, Request) (string, error) { return "x", nil }}
	reviewer := newTestReviewer(backend, 1)

	_, err := reviewer.ReviewFile(context.Background(), core.ChangedFile{Filename: "x.unknownext", Patch: "@@"})
	assert.ErrorIs(t, err, core.ErrLanguageNotDetected)
	assert.Zero(t, backend.calls())
}

func TestReviewFile_NoPatch(t *testing.T) {
	backend := &scriptedBackend{fn: func(int, Request) (string, error) { return "x", nil }}
	reviewer := newTestReviewer(backend, 1)

	_, err := reviewer.ReviewFile(context.Background(), core.ChangedFile{Filename: "logo.go"})
	assert.ErrorIs(t, err, core.ErrNoPatch)
	assert.Zero(t, backend.calls())
}

const threeHunkPatch = `@@ -1,2 +1,2 @@
-package a
+package b
 
@@ -10,2 +10,3 @@ func A() {
 	x := 1
+	y := 2
 	return
@@ -20,2 +21,2 @@ func B() {
-	old()
+	updated()
 }
`

func TestReviewChunks_PreservesHunkOrder(t *testing.T) {
	backend := &scriptedBackend{fn: func(_ int, req Request) (string, error) {
		header, _, _ := strings.Cut(req.Diff, "\n")
		if strings.Contains(header, "-1,2") {
			// The first hunk finishes last.
			time.Sleep(20 * time.Millisecond)
		}
		return "review of " + header, nil
	}}
	reviewer := newTestReviewer(backend, 3)

	results, err := reviewer.ReviewChunks(context.Background(), core.ChangedFile{Filename: "a.go", Patch: threeHunkPatch})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, strings.HasPrefix(results[0].Body, "review of @@ -1,2 +1,2 @@"))
	assert.True(t, strings.HasPrefix(results[1].Body, "review of @@ -10,2 +10,3 @@"))
	assert.True(t, strings.HasPrefix(results[2].Body, "review of @@ -20,2 +21,2 @@"))
	for i, r := range results {
		require.NotNil(t, r.Chunk, "result %d", i)
		assert.Equal(t, "go", r.Language)
	}
	assert.Equal(t, 12, results[1].Chunk.EndLine())

	for _, req := range backend.requests {
		assert.Equal(t, ChunkReviewPrompt, req.Prompt)
	}
}

func TestReviewChunks_OneFailedChunkFailsFile(t *testing.T) {
	backend := &scriptedBackend{fn: func(_ int, req Request) (string, error) {
		if strings.Contains(req.Diff, "updated()") {
			return "", errors.New("content filtered")
		}
		return "ok", nil
	}}
	reviewer := newTestReviewer(backend, 1)

	_, err := reviewer.ReviewChunks(context.Background(), core.ChangedFile{Filename: "a.go", Patch: threeHunkPatch})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "@@ -20,2 +21,2 @@")
}

func TestWithInstructions(t *testing.T) {
	backend := &scriptedBackend{fn: func(int, Request) (string, error) { return "ok", nil }}
	base := newTestReviewer(backend, 1)

	scoped := base.WithInstructions([]string{"No panics in library code"})
	_, err := scoped.ReviewFile(context.Background(), core.ChangedFile{Filename: "a.go", Patch: "@@"})
	require.NoError(t, err)
	_, err = base.ReviewFile(context.Background(), core.ChangedFile{Filename: "a.go", Patch: "@@"})
	require.NoError(t, err)

	require.Len(t, backend.requests, 2)
	assert.Equal(t, []string{"No panics in library code"}, backend.requests[0].Instructions)
	assert.Empty(t, backend.requests[1].Instructions)
}
