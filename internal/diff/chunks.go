// Package diff splits the unified patch GitHub returns for a single file into
// reviewable hunks.
package diff

import (
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/sevigo/review-action/internal/core"
)

// ParsePatch splits patch into chunks in the order the hunks appear. GitHub's
// per-file patches start at the first "@@" line, so a file header is
// synthesized for the parser.
func ParsePatch(filename, patch string) ([]core.DiffChunk, error) {
	if strings.TrimSpace(patch) == "" {
		return nil, core.ErrNoPatch
	}
	if !strings.HasSuffix(patch, "\n") {
		patch += "\n"
	}

	header := fmt.Sprintf("--- a/%s\n+++ b/%s\n", filename, filename)
	fd, err := diff.ParseFileDiff([]byte(header + patch))
	if err != nil {
		return nil, fmt.Errorf("failed to parse patch for %s: %w", filename, err)
	}
	if len(fd.Hunks) == 0 {
		return nil, fmt.Errorf("patch for %s contains no hunks", filename)
	}

	chunks := make([]core.DiffChunk, 0, len(fd.Hunks))
	for _, h := range fd.Hunks {
		printed, err := diff.PrintHunks([]*diff.Hunk{h})
		if err != nil {
			return nil, fmt.Errorf("failed to render hunk of %s: %w", filename, err)
		}
		content := string(printed)
		headerLine, _, _ := strings.Cut(content, "\n")

		chunks = append(chunks, core.DiffChunk{
			Header:   headerLine,
			Content:  strings.TrimSuffix(content, "\n"),
			OldStart: int(h.OrigStartLine),
			OldLines: int(h.OrigLines),
			NewStart: int(h.NewStartLine),
			NewLines: int(h.NewLines),
		})
	}
	return chunks, nil
}

// CommentableLines returns the new-side line numbers of patch that accept an
// inline review comment: added and context lines.
func CommentableLines(chunks []core.DiffChunk) map[int]struct{} {
	lines := make(map[int]struct{})
	for _, c := range chunks {
		current := c.NewStart
		body := c.Content
		if _, rest, ok := strings.Cut(body, "\n"); ok {
			body = rest
		} else {
			continue
		}
		for _, line := range strings.Split(body, "\n") {
			switch {
			case strings.HasPrefix(line, "+"), strings.HasPrefix(line, " "):
				lines[current] = struct{}{}
				current++
			case strings.HasPrefix(line, "-"), strings.HasPrefix(line, `\`):
				// not present on the new side
			}
		}
	}
	return lines
}
