package main

import "github.com/spf13/cobra"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Review the pull request of the current GitHub Actions event",
	Long: `Review the pull request that triggered the workflow.

The event is read from GITHUB_EVENT_NAME and GITHUB_EVENT_PATH; inputs come
from INPUT_<NAME> variables. Events other than pull_request fail the step.`,
	Args: cobra.NoArgs,
	RunE: runAction,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(runCmd)
}
