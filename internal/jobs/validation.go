package jobs

import (
	"log/slog"

	"github.com/sevigo/review-action/internal/core"
	"github.com/sevigo/review-action/internal/diff"
)

// sideRight anchors a draft comment on the new version of the file.
const sideRight = "RIGHT"

// splitChunkComments anchors each chunk review on the last new-side line of
// its hunk. Returns two slices: inline draft comments, and results whose hunk
// has no commentable line (pure deletions), which callers post at file level.
func splitChunkComments(logger *slog.Logger, filename string, results []core.ReviewResult) ([]core.DraftReviewComment, []core.ReviewResult) {
	var chunks []core.DiffChunk
	for _, r := range results {
		if r.Chunk != nil {
			chunks = append(chunks, *r.Chunk)
		}
	}
	validLines := diff.CommentableLines(chunks)

	var inline []core.DraftReviewComment
	var offDiff []core.ReviewResult

	for _, r := range results {
		if r.Chunk == nil {
			offDiff = append(offDiff, r)
			continue
		}
		line := r.Chunk.EndLine()
		if _, ok := validLines[line]; !ok {
			logger.Warn("Moving chunk review to file level (no line on the new side)",
				"file", filename,
				"hunk", r.Chunk.Header,
			)
			offDiff = append(offDiff, r)
			continue
		}
		inline = append(inline, core.DraftReviewComment{
			Path: filename,
			Line: line,
			Side: sideRight,
			Body: r.Body,
		})
	}

	return inline, offDiff
}
