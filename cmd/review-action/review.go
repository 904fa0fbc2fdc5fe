package main

import (
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review [pr-url]",
	Short: "Review a pull request by URL",
	Long: `Review a pull request outside of GitHub Actions.

The pull request is reviewed at its current head commit with the same
configuration the action uses. Combine with --dry-run to print the reviews
instead of posting them.

Examples:
  review-action review https://github.com/owner/repo/pull/123
  review-action review --dry-run --review-mode chunks https://github.com/owner/repo/pull/123`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(reviewCmd)
}

func runReview(_ *cobra.Command, args []string) error {
	ctx, stop, a, err := newApp()
	if err != nil {
		return err
	}
	defer stop()

	_, err = a.Review(ctx, args[0])
	return err
}
