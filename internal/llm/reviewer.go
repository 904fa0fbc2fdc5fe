package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/review-action/internal/core"
	"github.com/sevigo/review-action/internal/diff"
	"github.com/sevigo/review-action/internal/language"
	"github.com/sevigo/review-action/internal/metrics"
	"github.com/sevigo/review-action/internal/retry"
)

// ReviewerOptions tunes a ReviewService.
type ReviewerOptions struct {
	Retry retry.Policy
	// ChunkConcurrency bounds the backend calls made in parallel for the
	// chunks of one file. Values below 1 mean one at a time.
	ChunkConcurrency int
}

// ReviewService implements core.CodeReviewer: it resolves the language of a
// file and asks the backend for a review of its patch, or of each hunk.
type ReviewService struct {
	backend      Backend
	detector     *language.Detector
	opts         ReviewerOptions
	instructions []string
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// NewReviewService creates the reviewer. m may be nil.
func NewReviewService(backend Backend, detector *language.Detector, opts ReviewerOptions, logger *slog.Logger, m *metrics.Metrics) *ReviewService {
	if backend == nil || detector == nil || logger == nil {
		panic("NewReviewService: backend, detector and logger are required")
	}
	return &ReviewService{backend: backend, detector: detector, opts: opts, logger: logger, metrics: m}
}

var _ core.CodeReviewer = (*ReviewService)(nil)

// WithInstructions returns a copy of the reviewer whose prompts carry the
// given repository guidelines.
func (s *ReviewService) WithInstructions(instructions []string) core.CodeReviewer {
	clone := *s
	clone.instructions = append([]string(nil), instructions...)
	return &clone
}

// ReviewFile reviews the whole patch of file in one backend call.
func (s *ReviewService) ReviewFile(ctx context.Context, file core.ChangedFile) (core.ReviewResult, error) {
	lang, err := s.prepare(file)
	if err != nil {
		return core.ReviewResult{}, err
	}

	body, err := s.generate(ctx, file.Filename, Request{
		Prompt:       CodeReviewPrompt,
		Language:     lang,
		Diff:         file.Patch,
		Instructions: s.instructions,
	})
	if err != nil {
		return core.ReviewResult{}, fmt.Errorf("review of %s failed: %w", file.Filename, err)
	}
	return core.ReviewResult{Filename: file.Filename, Language: lang, Body: body}, nil
}

// ReviewChunks reviews every hunk of file separately. Results keep the order
// of the hunks in the patch. If any hunk fails the file fails as a whole.
func (s *ReviewService) ReviewChunks(ctx context.Context, file core.ChangedFile) ([]core.ReviewResult, error) {
	lang, err := s.prepare(file)
	if err != nil {
		return nil, err
	}

	chunks, err := diff.ParsePatch(file.Filename, file.Patch)
	if err != nil {
		return nil, err
	}

	results := make([]core.ReviewResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.opts.ChunkConcurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i := range chunks {
		chunk := chunks[i]
		g.Go(func() error {
			body, err := s.generate(gctx, file.Filename, Request{
				Prompt:       ChunkReviewPrompt,
				Language:     lang,
				Diff:         chunk.Content,
				Instructions: s.instructions,
			})
			if err != nil {
				return fmt.Errorf("review of %s chunk %q failed: %w", file.Filename, chunk.Header, err)
			}
			results[i] = core.ReviewResult{Filename: file.Filename, Language: lang, Body: body, Chunk: &chunk}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug("reviewed file by chunks", "file", file.Filename, "chunks", len(chunks))
	return results, nil
}

func (s *ReviewService) prepare(file core.ChangedFile) (string, error) {
	lang, ok := s.detector.Detect(file.Filename)
	if !ok {
		return "", fmt.Errorf("%s: %w", file.Filename, core.ErrLanguageNotDetected)
	}
	if !file.HasPatch() {
		return "", fmt.Errorf("%s: %w", file.Filename, core.ErrNoPatch)
	}
	return lang, nil
}

func (s *ReviewService) generate(ctx context.Context, filename string, req Request) (string, error) {
	provider := s.backend.Provider()
	policy := s.opts.Retry.WithNotify(func(attempt int, err error, wait time.Duration) {
		s.metrics.Retry("generate")
		s.logger.Warn("retrying review generation", "file", filename, "provider", provider, "attempt", attempt, "wait", wait, "error", err)
	})

	return retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		text, err := s.backend.Generate(ctx, req)
		s.metrics.BackendCall(provider, err)
		return text, err
	})
}
