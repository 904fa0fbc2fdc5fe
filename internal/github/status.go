package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/review-action/internal/core"
	"github.com/sevigo/review-action/internal/retry"
)

// CheckRunName is the name shown for the review check on the pull request.
const CheckRunName = "AI Code Review"

type statusUpdater struct {
	client Client
	policy retry.Policy
	now    func() time.Time
}

// NewStatusUpdater returns a core.StatusReporter backed by GitHub Check Runs.
// Both calls are retried with policy.
func NewStatusUpdater(client Client, policy retry.Policy) core.StatusReporter {
	return &statusUpdater{client: client, policy: policy, now: time.Now}
}

// InProgress creates a new GitHub Check Run with an "in_progress" status.
func (s *statusUpdater) InProgress(ctx context.Context, event *core.PullRequestEvent, title, summary string) (int64, error) {
	opts := github.CreateCheckRunOptions{
		Name:    CheckRunName,
		HeadSHA: event.HeadSHA,
		Status:  github.Ptr("in_progress"),
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	}
	checkRun, err := retry.Do(ctx, s.policy, func(ctx context.Context) (*github.CheckRun, error) {
		return s.client.CreateCheckRun(ctx, event.RepoOwner, event.RepoName, opts)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create check run: %w", err)
	}
	return checkRun.GetID(), nil
}

// Completed updates an existing GitHub Check Run to a "completed" status.
func (s *statusUpdater) Completed(ctx context.Context, event *core.PullRequestEvent, checkRunID int64, conclusion, title, summary string) error {
	opts := github.UpdateCheckRunOptions{
		Status:      github.Ptr("completed"),
		Conclusion:  &conclusion,
		CompletedAt: &github.Timestamp{Time: s.now()},
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	}
	err := retry.Run(ctx, s.policy, func(ctx context.Context) error {
		_, err := s.client.UpdateCheckRun(ctx, event.RepoOwner, event.RepoName, checkRunID, opts)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update check run %d: %w", checkRunID, err)
	}
	return nil
}

// FormatRunSummary renders the per-file outcome of a run as the Markdown
// body of the completed check run.
func FormatRunSummary(summary *core.RunSummary, failures []string) string {
	var sb strings.Builder

	switch {
	case summary == nil:
		sb.WriteString("### ⚪ Review did not start\n\n")
	case summary.Failed > 0:
		sb.WriteString("### 🟠 Review finished with failures\n\n")
	case summary.Eligible == 0:
		sb.WriteString("### ⚪ Nothing to review\n\n")
	default:
		sb.WriteString("### ✅ Review complete\n\n")
	}

	if summary != nil {
		sb.WriteString("| Files | Count |\n")
		sb.WriteString("|-------|-------|\n")
		fmt.Fprintf(&sb, "| Eligible | %d |\n", summary.Eligible)
		fmt.Fprintf(&sb, "| Reviewed | %d |\n", summary.Reviewed)
		fmt.Fprintf(&sb, "| Skipped | %d |\n", summary.Skipped)
		fmt.Fprintf(&sb, "| Failed | %d |\n", summary.Failed)
		fmt.Fprintf(&sb, "\n%d comment(s) posted.\n", summary.Comments)
	}

	if len(failures) > 0 {
		sb.WriteString("\n#### Failures\n\n")
		for _, f := range failures {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
	}

	return sb.String()
}
