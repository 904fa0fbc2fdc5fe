package github

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sevigo/review-action/internal/core"
)

// MatchesAny reports whether filename matches at least one exclusion pattern.
// A pattern without a '/' is also tried against the base name, so "*.md"
// excludes "docs/README.md". Wildcards do not match a leading dot: a path
// segment starting with '.' is only matched by a pattern segment that starts
// with '.' too, so "*.js" leaves ".eslintrc.js" alone. Malformed patterns
// never match.
func MatchesAny(filename string, patterns []string) bool {
	for _, pattern := range patterns {
		if matchPattern(pattern, filename) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, filename string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	if globMatch(pattern, filename) {
		return true
	}
	if !strings.Contains(pattern, "/") {
		return globMatch(pattern, path.Base(filename))
	}
	return false
}

func globMatch(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	if err != nil || !ok {
		return false
	}
	return dotSegmentsCovered(pattern, name)
}

// dotSegmentsCovered reports whether every dot-prefixed segment of name is
// spelled out by a dot-prefixed pattern segment.
func dotSegmentsCovered(pattern, name string) bool {
	var dotted []string
	for _, seg := range strings.Split(pattern, "/") {
		if strings.HasPrefix(seg, ".") {
			dotted = append(dotted, seg)
		}
	}
	for _, seg := range strings.Split(name, "/") {
		if !strings.HasPrefix(seg, ".") || seg == "." || seg == ".." {
			continue
		}
		covered := false
		for _, p := range dotted {
			if ok, err := doublestar.Match(p, seg); err == nil && ok {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// FilterReviewable keeps the files that match none of the patterns and whose
// status carries reviewable content. Order is preserved.
func FilterReviewable(files []core.ChangedFile, patterns []string) []core.ChangedFile {
	kept := make([]core.ChangedFile, 0, len(files))
	for _, f := range files {
		if !f.Status.Reviewable() || MatchesAny(f.Filename, patterns) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
