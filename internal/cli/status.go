package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/akhil1parekh/github-pr-review-agent/internal/client"
)

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show the status of an analysis task",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	record, err := apiClient.Status(context.Background(), args[0])
	if err != nil {
		if client.IsNotFound(err) {
			return fmt.Errorf("task not found: %s", args[0])
		}
		return fmt.Errorf("get status: %w", err)
	}

	fmt.Printf("Task: %s\n", record.TaskID)
	fmt.Printf("  Status: %s\n", record.Status)
	fmt.Printf("  Message: %s\n", record.Message)
	if record.Progress != nil {
		fmt.Printf("  Progress: %.0f%%\n", *record.Progress*100)
	}
	fmt.Printf("  Created: %s\n", record.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  Updated: %s\n", record.UpdatedAt.Format(time.RFC3339))

	return nil
}
