package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/akhil1parekh/github-pr-review-agent/internal/agent"
	"github.com/akhil1parekh/github-pr-review-agent/internal/metrics"
)

// generator is the text-generation capability the reviewer needs. Model
// satisfies it; tests substitute a canned implementation.
type generator interface {
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Reviewer implements agent.Reviewer on top of an LLM. Plan and issue
// responses are requested as JSON; unusable responses degrade per
// operation (line-split fallback for plans, empty list for issues) rather
// than failing the job.
type Reviewer struct {
	gen     generator
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewReviewer creates a reviewer backed by the given model. The metrics
// collector is optional.
func NewReviewer(model *Model, logger *slog.Logger, collector *metrics.Collector) *Reviewer {
	return newReviewer(model, logger, collector)
}

func newReviewer(gen generator, logger *slog.Logger, collector *metrics.Collector) *Reviewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reviewer{gen: gen, logger: logger, metrics: collector}
}

const planSystemPrompt = `You are an expert code reviewer. Your task is to create a step-by-step plan for analyzing a GitHub pull request.
The plan should include steps for analyzing code style, potential bugs, performance issues, and best practices.
Return the plan as a JSON list of strings, where each string is a step in the plan.`

// CreatePlan asks the model for an analysis plan. The response is parsed as
// a JSON list, then as an object with a "plan" key; anything else falls
// back to one plan step per non-blank response line.
func (r *Reviewer) CreatePlan(ctx context.Context, snap agent.PRSnapshot, files []agent.FileRecord) ([]string, error) {
	defer r.record(metrics.OpLLMPlan, time.Now())

	type fileSummary struct {
		Filename  string `json:"filename"`
		Status    string `json:"status"`
		Additions int    `json:"additions"`
		Deletions int    `json:"deletions"`
	}
	summaries := make([]fileSummary, 0, len(files))
	for _, f := range files {
		summaries = append(summaries, fileSummary{f.Filename, f.Status, f.Additions, f.Deletions})
	}

	snapJSON, _ := json.MarshalIndent(snap, "", "  ")
	filesJSON, _ := json.MarshalIndent(summaries, "", "  ")

	prompt := fmt.Sprintf(`I need to analyze a GitHub pull request with the following details:

PR Details:
%s

Files Changed:
%s

Create a step-by-step plan for analyzing this PR. Focus on:
1. Code style and formatting issues
2. Potential bugs or errors
3. Performance improvements
4. Best practices

Return the plan as a JSON list of strings, where each string is a step in the plan.`, snapJSON, filesJSON)

	response, err := r.gen.GenerateWithSystem(ctx, planSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}

	return parsePlan(response), nil
}

// parsePlan extracts plan steps from a model response.
func parsePlan(response string) []string {
	cleaned := stripCodeFence(response)

	var steps []string
	if err := json.Unmarshal([]byte(cleaned), &steps); err == nil {
		return steps
	}

	var wrapped struct {
		Plan []string `json:"plan"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err == nil && wrapped.Plan != nil {
		return wrapped.Plan
	}

	// Not JSON: treat each non-blank line as one step.
	var lines []string
	for _, line := range strings.Split(response, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// categoryPrompts maps each analysis category to its system prompt.
var categoryPrompts = map[agent.Category]string{
	agent.CategoryStyle: `You are an expert code reviewer focusing on code style and formatting.
Analyze the provided code and identify style issues such as:
- Inconsistent naming conventions
- Improper indentation
- Line length issues
- Missing or inconsistent comments
- Inconsistent formatting`,

	agent.CategoryBugs: `You are an expert code reviewer focusing on identifying potential bugs and errors.
Analyze the provided code and identify issues such as:
- Logical errors
- Off-by-one errors
- Null/undefined references
- Race conditions
- Memory leaks
- Exception handling issues`,

	agent.CategoryPerformance: `You are an expert code reviewer focusing on performance optimization.
Analyze the provided code and identify issues such as:
- Inefficient algorithms
- Unnecessary computations
- Redundant operations
- Inefficient data structures
- Resource leaks`,

	agent.CategoryBestPractices: `You are an expert code reviewer focusing on best practices.
Analyze the provided code and identify issues such as:
- Lack of modularity
- Poor abstraction
- Inadequate error handling
- Security vulnerabilities
- Maintainability issues`,
}

const issueFormatPrompt = `

Return a list of issues in JSON format, where each issue has:
- line: the line number (int)
- issue: description of the issue (string)
- severity: "low", "medium", or "high" (string)
- suggestion: how to fix the issue (string)

If no issues are found, return an empty list.`

// Analyze runs one category pass over a single file's content. Malformed
// model output yields an empty issue list, never an error; only transport
// failures are returned, and callers treat those as degradation too.
func (r *Reviewer) Analyze(ctx context.Context, category agent.Category, content, filename string) ([]agent.Issue, error) {
	defer r.record(metrics.OpLLMAnalyze, time.Now())

	systemPrompt, ok := categoryPrompts[category]
	if !ok {
		return nil, fmt.Errorf("unknown analysis category: %s", category)
	}

	prompt := fmt.Sprintf("Analyze the following code:\n\nFilename: %s\n\n```\n%s\n```\n\nReturn a list of issues in JSON format.", filename, content)

	response, err := r.gen.GenerateWithSystem(ctx, systemPrompt+issueFormatPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", category, err)
	}

	issues := parseIssues(response)
	out := make([]agent.Issue, 0, len(issues))
	for _, raw := range issues {
		out = append(out, agent.Issue{
			Category:    category,
			Line:        raw.Line,
			Description: raw.Issue,
			Severity:    agent.Severity(raw.Severity),
			Suggestion:  raw.Suggestion,
		})
	}
	return out, nil
}

// rawIssue matches the JSON shape the model is asked to produce.
type rawIssue struct {
	Line       int    `json:"line"`
	Issue      string `json:"issue"`
	Severity   string `json:"severity"`
	Suggestion string `json:"suggestion"`
}

// parseIssues extracts findings from a model response. A response that is
// neither a JSON list nor an object with an "issues" key yields no
// findings.
func parseIssues(response string) []rawIssue {
	cleaned := stripCodeFence(response)

	var issues []rawIssue
	if err := json.Unmarshal([]byte(cleaned), &issues); err == nil {
		return issues
	}

	var wrapped struct {
		Issues []rawIssue `json:"issues"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err == nil {
		return wrapped.Issues
	}

	return nil
}

const summarySystemPrompt = `You are an expert code reviewer. Your task is to create a summary of the analysis results for a GitHub pull request.
The summary should be concise but informative, highlighting the most important issues and providing an overall assessment.`

// Summarize generates the final free-text summary from all findings. The
// prompt carries per-category counts plus up to three example issues per
// category.
func (r *Reviewer) Summarize(ctx context.Context, results map[agent.Category][]agent.Issue) (string, error) {
	defer r.record(metrics.OpLLMSummary, time.Now())

	var b strings.Builder
	b.WriteString("Create a detailed summary of the following analysis results for a GitHub pull request:\n\n")
	for _, cat := range agent.Categories() {
		fmt.Fprintf(&b, "%s: %d issues\n", cat, len(results[cat]))
	}
	b.WriteString("\nHere are some examples of the issues found:\n")
	for _, cat := range agent.Categories() {
		examples := results[cat]
		if len(examples) > 3 {
			examples = examples[:3]
		}
		examplesJSON, _ := json.MarshalIndent(examples, "", "  ")
		fmt.Fprintf(&b, "\n%s:\n%s\n", cat, examplesJSON)
	}
	b.WriteString("\nCreate a detailed and informative summary of these results, highlighting the most important issues and providing an overall assessment of the changes and how they will affect the codebase.")

	summary, err := r.gen.GenerateWithSystem(ctx, summarySystemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return summary, nil
}

// stripCodeFence removes a surrounding markdown code fence, which models
// frequently wrap JSON responses in.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func (r *Reviewer) record(op string, start time.Time) {
	if r.metrics != nil {
		r.metrics.Record(op, time.Since(start))
	}
}
