// Package agent implements the PR analysis pipeline: the job state threaded
// through it, the fixed stage sequence, and the executor that runs it.
package agent

// Status is the lifecycle state of one pipeline run.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Category is one of the fixed analysis passes run over changed files.
type Category string

const (
	CategoryStyle         Category = "style"
	CategoryBugs          Category = "bugs"
	CategoryPerformance   Category = "performance"
	CategoryBestPractices Category = "best_practices"
)

// Categories returns all analysis categories in pipeline order.
// Flattened results preserve this order.
func Categories() []Category {
	return []Category{CategoryStyle, CategoryBugs, CategoryPerformance, CategoryBestPractices}
}

// Severity classifies how serious an issue is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Issue is one finding produced by an analysis category for one file/line.
type Issue struct {
	Category    Category `json:"category"`
	File        string   `json:"file"`
	Line        int      `json:"line"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Suggestion  string   `json:"suggestion"`
}

// PRRef identifies the pull request under analysis. Immutable once set.
type PRRef struct {
	Repo   string `json:"repo"`
	Number int    `json:"pr_number"`
}

// PRSnapshot is the metadata fetched for a pull request.
type PRSnapshot struct {
	Repo         string   `json:"repo"`
	Number       int      `json:"pr_number"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Author       string   `json:"author"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
	State        string   `json:"state"`
	Mergeable    bool     `json:"mergeable"`
	Labels       []string `json:"labels"`
	Commits      int      `json:"commits"`
	Additions    int      `json:"additions"`
	Deletions    int      `json:"deletions"`
	ChangedFiles int      `json:"changed_files"`
}

// File change statuses as reported by GitHub.
const (
	FileAdded    = "added"
	FileModified = "modified"
	FileRemoved  = "removed"
)

// FileRecord is one changed file in the pull request. Content is empty for
// removed files and for files whose content could not be retrieved.
type FileRecord struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
	Patch     string `json:"patch,omitempty"`
	Content   string `json:"content,omitempty"`
}

// State is the value threaded through every pipeline stage. Each job owns
// its state exclusively; stages receive it by value and return the updated
// copy. Collection fields are written once by their producing stage and
// read-only afterwards.
type State struct {
	PR      PRRef
	Snap    PRSnapshot
	Files   []FileRecord
	Plan    []string
	Results map[Category][]Issue
	Summary string
	Status  Status
	Error   string
}

// NewState creates the initial state for analyzing one pull request, with
// all collections empty and every category bucket present.
func NewState(repo string, number int) State {
	return State{
		PR: PRRef{Repo: repo, Number: number},
		Results: map[Category][]Issue{
			CategoryStyle:         {},
			CategoryBugs:          {},
			CategoryPerformance:   {},
			CategoryBestPractices: {},
		},
		Status: StatusNotStarted,
	}
}

// fail marks the state terminally failed. Later stages will not run.
func (s State) fail(msg string) State {
	s.Status = StatusFailed
	s.Error = msg
	return s
}

// FlattenIssues returns all issues across categories as a single sequence,
// categories in pipeline order, issues within a category in the order the
// analysis stage produced them.
func FlattenIssues(results map[Category][]Issue) []Issue {
	var out []Issue
	for _, cat := range Categories() {
		out = append(out, results[cat]...)
	}
	return out
}
