package agent

import (
	"context"
	"fmt"
	"log/slog"
)

// Fetcher retrieves pull request data from the hosting service.
type Fetcher interface {
	PRDetails(ctx context.Context, repo string, number int) (PRSnapshot, error)
	PRFiles(ctx context.Context, repo string, number int) ([]FileRecord, error)
}

// Reviewer produces the analysis plan, per-file findings, and the final
// summary. Implementations are expected to be LLM-backed; Analyze must
// degrade to an empty issue list on unusable model output rather than
// returning an error for it.
type Reviewer interface {
	CreatePlan(ctx context.Context, snap PRSnapshot, files []FileRecord) ([]string, error)
	Analyze(ctx context.Context, category Category, content, filename string) ([]Issue, error)
	Summarize(ctx context.Context, results map[Category][]Issue) (string, error)
}

// Stages builds the fixed analysis sequence for one job:
// fetch → plan → style → bugs → performance → best practices → summary.
func Stages(fetcher Fetcher, reviewer Reviewer, logger *slog.Logger) []Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return []Stage{
		{Name: "fetch_pr_data", Run: fetchPRData(fetcher)},
		{Name: "create_analysis_plan", Run: createAnalysisPlan(reviewer)},
		{Name: "analyze_style", Run: analyzeCategory(reviewer, CategoryStyle, logger)},
		{Name: "analyze_bugs", Run: analyzeCategory(reviewer, CategoryBugs, logger)},
		{Name: "analyze_performance", Run: analyzeCategory(reviewer, CategoryPerformance, logger)},
		{Name: "analyze_best_practices", Run: analyzeCategory(reviewer, CategoryBestPractices, logger)},
		{Name: "create_summary", Run: createSummary(reviewer)},
	}
}

// fetchPRData retrieves PR metadata and the changed file list. Any fetch
// failure fails the job.
func fetchPRData(fetcher Fetcher) func(ctx context.Context, s State) State {
	return func(ctx context.Context, s State) State {
		snap, err := fetcher.PRDetails(ctx, s.PR.Repo, s.PR.Number)
		if err != nil {
			return s.fail(fmt.Sprintf("fetching pull request data: %v", err))
		}
		files, err := fetcher.PRFiles(ctx, s.PR.Repo, s.PR.Number)
		if err != nil {
			return s.fail(fmt.Sprintf("fetching pull request files: %v", err))
		}

		s.Snap = snap
		s.Files = files
		s.Status = StatusInProgress
		return s
	}
}

// createAnalysisPlan asks the reviewer for a step-by-step plan. The plan is
// informational and carried through to the final output; a reviewer
// transport error still fails the job.
func createAnalysisPlan(reviewer Reviewer) func(ctx context.Context, s State) State {
	return func(ctx context.Context, s State) State {
		plan, err := reviewer.CreatePlan(ctx, s.Snap, s.Files)
		if err != nil {
			return s.fail(fmt.Sprintf("creating analysis plan: %v", err))
		}
		s.Plan = plan
		return s
	}
}

// analyzeCategory runs one analysis pass over every changed file. Removed
// files and files without content are skipped. Issues come back tagged with
// the file they belong to, appended in file order. A failed analysis call
// degrades to no findings for that file; it does not fail the job.
func analyzeCategory(reviewer Reviewer, category Category, logger *slog.Logger) func(ctx context.Context, s State) State {
	return func(ctx context.Context, s State) State {
		var found []Issue
		for _, file := range s.Files {
			if file.Status == FileRemoved || file.Content == "" {
				continue
			}
			issues, err := reviewer.Analyze(ctx, category, file.Content, file.Filename)
			if err != nil {
				logger.Warn("analysis call failed, skipping file",
					"category", category, "file", file.Filename, "error", err)
				continue
			}
			for i := range issues {
				issues[i].File = file.Filename
			}
			found = append(found, issues...)
		}
		s.Results[category] = append(s.Results[category], found...)
		return s
	}
}

// createSummary generates the final summary and completes the job.
func createSummary(reviewer Reviewer) func(ctx context.Context, s State) State {
	return func(ctx context.Context, s State) State {
		summary, err := reviewer.Summarize(ctx, s.Results)
		if err != nil {
			return s.fail(fmt.Sprintf("creating summary: %v", err))
		}
		s.Summary = summary
		s.Status = StatusCompleted
		return s
	}
}
