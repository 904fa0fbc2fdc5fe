// Package gitutil parses GitHub pull request and repository identifiers.
package gitutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var prURLRegex = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)(?:/(?:files|commits|checks))?$`)

// ParsePullRequestURL parses a GitHub Pull Request URL and extracts the owner, repo, and PR number.
// Supported format: https://github.com/{owner}/{repo}/pull/{number}, optionally
// followed by a tab such as /files, a query or a fragment.
func ParsePullRequestURL(url string) (owner, repo string, prNumber int, err error) {
	// Normalize URL
	url, _, _ = strings.Cut(url, "#")
	url, _, _ = strings.Cut(url, "?")
	url = strings.TrimSuffix(strings.TrimSpace(url), "/")

	matches := prURLRegex.FindStringSubmatch(url)
	if len(matches) != 4 {
		return "", "", 0, fmt.Errorf("invalid pull request URL format: %s", url)
	}

	owner = matches[1]
	repo = matches[2]
	prNumberStr := matches[3]

	prNumber, err = strconv.Atoi(prNumberStr)
	if err != nil || prNumber <= 0 {
		return "", "", 0, fmt.Errorf("invalid PR number '%s'", prNumberStr)
	}

	return owner, repo, prNumber, nil
}

// ParseRepository splits an "owner/name" repository slug, as found in
// GITHUB_REPOSITORY.
func ParseRepository(slug string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(slug), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/name", slug)
	}
	return owner, repo, nil
}
