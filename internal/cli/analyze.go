package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/akhil1parekh/github-pr-review-agent/internal/taskstore"
)

var (
	analyzeWait     bool
	analyzeInterval time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <repo> <pr-number>",
	Short: "Submit a pull request for analysis",
	Long: `Submit a pull request for analysis. The repository may be given as a
full GitHub URL or as owner/name.

Examples:
  prreview analyze golang/go 12345
  prreview analyze https://github.com/golang/go 12345 --wait`,
	Args: cobra.ExactArgs(2),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVarP(&analyzeWait, "wait", "w", false, "poll until the analysis finishes and print the results")
	analyzeCmd.Flags().DurationVar(&analyzeInterval, "interval", 2*time.Second, "poll interval used with --wait")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	prNumber, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("pr-number must be an integer, got %q", args[1])
	}

	ctx := context.Background()
	resp, err := apiClient.SubmitAnalysis(ctx, args[0], prNumber)
	if err != nil {
		return fmt.Errorf("submit analysis: %w", err)
	}

	fmt.Printf("Task: %s\n", resp.TaskID)
	fmt.Printf("  Status: %s\n", resp.Status)
	fmt.Printf("  Message: %s\n", resp.Message)

	if !analyzeWait {
		fmt.Printf("\nPoll with: prreview status %s\n", resp.TaskID)
		return nil
	}

	record, err := apiClient.WaitForCompletion(ctx, resp.TaskID, analyzeInterval, func(r *taskstore.TaskRecord) {
		if verbose {
			fmt.Printf("  %s: %s\n", r.Status, r.Message)
		}
	})
	if err != nil {
		return fmt.Errorf("wait for completion: %w", err)
	}

	if record.Status == taskstore.StatusFailed {
		return fmt.Errorf("analysis failed: %s", record.Message)
	}

	return printResults(ctx, resp.TaskID)
}
