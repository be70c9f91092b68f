// Package cli provides the command-line interface for the PR review agent.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/akhil1parekh/github-pr-review-agent/internal/client"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string
	verbose   bool

	// API client, created before any command runs
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "prreview",
	Short: "Asynchronous GitHub pull request reviewer",
	Long: `prreview submits GitHub pull requests to the PR review agent for
LLM-backed analysis and polls for the results.

The agent inspects code style, potential bugs, performance and best
practices, and produces a summary with per-file findings.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		apiClient = client.New(serverURL)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "API server URL (default from PRREVIEW_SERVER_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
