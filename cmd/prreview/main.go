// Package main provides the entry point for the prreview CLI.
package main

import (
	"fmt"
	"os"

	"github.com/akhil1parekh/github-pr-review-agent/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
