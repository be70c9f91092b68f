package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/akhil1parekh/github-pr-review-agent/internal/agent"
	"github.com/akhil1parekh/github-pr-review-agent/internal/client"
)

var resultsJSON bool

var resultsCmd = &cobra.Command{
	Use:   "results <task-id>",
	Short: "Show the results of a completed analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	resultsCmd.Flags().BoolVar(&resultsJSON, "json", false, "print the raw result record as JSON")
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	return printResults(context.Background(), args[0])
}

func printResults(ctx context.Context, taskID string) error {
	result, err := apiClient.Results(ctx, taskID)
	if err != nil {
		switch {
		case client.IsNotFound(err):
			return fmt.Errorf("task not found: %s", taskID)
		case client.IsNotReady(err):
			return fmt.Errorf("task %s has not completed yet, check: prreview status %s", taskID, taskID)
		}
		return fmt.Errorf("get results: %w", err)
	}

	if resultsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("PR: %s#%d", result.PR.Repo, result.PR.Number)
	if result.PR.Title != "" {
		fmt.Printf(" (%s)", result.PR.Title)
	}
	fmt.Println()
	fmt.Printf("Completed: %s\n", result.CompletedAt.Format(time.RFC3339))

	fmt.Printf("\nSummary:\n%s\n", result.Summary)

	if len(result.Issues) == 0 {
		fmt.Println("\nNo issues found")
		return nil
	}

	fmt.Printf("\nIssues (%d):\n", len(result.Issues))
	var current agent.Category
	for _, issue := range result.Issues {
		if issue.Category != current {
			current = issue.Category
			fmt.Printf("\n[%s]\n", current)
		}
		fmt.Printf("  %s:%d [%s] %s\n", issue.File, issue.Line, issue.Severity, issue.Description)
		if issue.Suggestion != "" {
			fmt.Printf("    Suggestion: %s\n", issue.Suggestion)
		}
	}

	return nil
}
