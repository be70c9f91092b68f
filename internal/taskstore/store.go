// Package taskstore persists job status and analysis results so the polling
// path can observe a job without blocking on the worker that runs it.
package taskstore

import (
	"context"
	"errors"
	"time"

	"github.com/akhil1parekh/github-pr-review-agent/internal/agent"
)

// Status is the externally visible lifecycle of a submitted task.
// Transitions are monotonic for a given task: queued → in_progress →
// {completed | failed}.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Sentinel errors surfaced to API callers. Check with errors.Is.
var (
	// ErrNotFound indicates the task id is unknown to the store.
	ErrNotFound = errors.New("task not found")

	// ErrNotReady indicates results were requested for a task that has not
	// reached completed status. A usage error, not a job failure.
	ErrNotReady = errors.New("task not completed")
)

// TaskRecord is the durable status record for one task. Progress is nil
// when no progress has been reported; a reported zero is distinct from
// unset. CreatedAt is set on the first write and preserved across updates.
type TaskRecord struct {
	TaskID    string    `json:"task_id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	Progress  *float64  `json:"progress,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResultRecord is the durable final output for a completed task. Written
// at most once, only after the pipeline reached a terminal success state.
type ResultRecord struct {
	TaskID      string           `json:"task_id"`
	Status      Status           `json:"status"`
	PR          agent.PRSnapshot `json:"pr_details"`
	Summary     string           `json:"summary"`
	Issues      []agent.Issue    `json:"issues"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Store is the durable key-value record of task status and results. It is
// the only resource shared between the submission path, the worker, and
// the polling path; all access to a task's record goes through it.
type Store interface {
	// UpsertStatus creates or updates the status record for a task. The
	// first write sets CreatedAt; later writes preserve it. UpdatedAt is
	// refreshed on every call. A nil progress clears any stored progress.
	UpsertStatus(ctx context.Context, taskID string, status Status, message string, progress *float64) error

	// GetStatus returns the status record, or (nil, nil) when the task id
	// is unknown. An unknown id is not an error at this layer.
	GetStatus(ctx context.Context, taskID string) (*TaskRecord, error)

	// PutResult durably stores the result blob and only then flips the
	// status to completed with progress 1.0, so a reader that observes
	// completed always finds the result.
	PutResult(ctx context.Context, taskID string, result ResultRecord) error

	// GetResult returns the result record, or (nil, nil) when absent.
	GetResult(ctx context.Context, taskID string) (*ResultRecord, error)
}

// Float64 returns a pointer to v. Convenience for progress arguments.
func Float64(v float64) *float64 { return &v }
