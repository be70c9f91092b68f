// Package service runs pull request analysis jobs in the background and
// records their lifecycle in the task store.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/akhil1parekh/github-pr-review-agent/internal/agent"
	"github.com/akhil1parekh/github-pr-review-agent/internal/metrics"
	"github.com/akhil1parekh/github-pr-review-agent/internal/taskstore"
)

// Status messages written to the task store at each milestone. The
// completion message is written by the store itself when the result lands.
const (
	msgQueued   = "PR analysis task has been queued"
	msgStarting = "Starting PR analysis"
	msgFetching = "Fetching PR data"
)

// Orchestrator accepts analysis requests, runs them through the pipeline,
// and keeps the task store in sync with each job's lifecycle. One
// orchestrator serves all jobs; each job's pipeline state is owned by the
// worker goroutine running it.
type Orchestrator struct {
	store    taskstore.Store
	fetcher  agent.Fetcher
	reviewer agent.Reviewer
	logger   *slog.Logger
	metrics  *metrics.Collector
	pipeline *agent.Pipeline
}

// NewOrchestrator creates an orchestrator. The metrics collector is
// optional.
func NewOrchestrator(store taskstore.Store, fetcher agent.Fetcher, reviewer agent.Reviewer, logger *slog.Logger, collector *metrics.Collector) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:    store,
		fetcher:  fetcher,
		reviewer: reviewer,
		logger:   logger,
		metrics:  collector,
		pipeline: agent.NewPipeline(agent.Stages(fetcher, reviewer, logger), logger),
	}
}

// Submit registers a new analysis task as queued and returns its id. The
// caller hands the id to a dispatcher (or to Run directly) to execute the
// job; Submit itself never blocks on analysis work.
func (o *Orchestrator) Submit(ctx context.Context, repo string, number int) (string, error) {
	taskID := uuid.New().String()

	err := o.store.UpsertStatus(ctx, taskID, taskstore.StatusQueued, msgQueued, taskstore.Float64(0.0))
	if err != nil {
		return "", fmt.Errorf("queueing task: %w", err)
	}

	o.logger.Info("task queued", "task_id", taskID, "repo", repo, "pr", number)
	return taskID, nil
}

// Run executes one analysis job end to end: milestone status updates, the
// pipeline itself, and the final result or failure record. It returns the
// job's error for the caller's benefit; the task store already reflects it
// by then. A panic below this frame is converted into a failed task.
func (o *Orchestrator) Run(ctx context.Context, taskID, repo string, number int) (err error) {
	start := time.Now()
	defer func() {
		if o.metrics != nil {
			o.metrics.Record(metrics.OpJob, time.Since(start))
		}
		if r := recover(); r != nil {
			o.logger.Error("analysis job panicked", "task_id", taskID, "panic", r)
			err = fmt.Errorf("internal panic: %v", r)
			o.markFailed(taskID, err)
		}
	}()

	o.setProgress(ctx, taskID, msgStarting, 0.1)
	o.setProgress(ctx, taskID, msgFetching, 0.2)

	final := o.pipeline.Run(ctx, agent.NewState(repo, number))
	if final.Status == agent.StatusFailed {
		err = fmt.Errorf("%s", final.Error)
		o.markFailed(taskID, err)
		return err
	}

	result := taskstore.ResultRecord{
		TaskID:      taskID,
		Status:      taskstore.StatusCompleted,
		PR:          final.Snap,
		Summary:     final.Summary,
		Issues:      agent.FlattenIssues(final.Results),
		CompletedAt: time.Now().UTC(),
	}
	if record, getErr := o.store.GetStatus(ctx, taskID); getErr == nil && record != nil {
		result.CreatedAt = record.CreatedAt
	}

	if err := o.store.PutResult(ctx, taskID, result); err != nil {
		o.markFailed(taskID, err)
		return fmt.Errorf("storing result: %w", err)
	}

	o.logger.Info("task completed",
		"task_id", taskID,
		"repo", repo,
		"pr", number,
		"issues", len(result.Issues),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// setProgress records an in-progress milestone. Store write failures are
// logged and swallowed; losing a milestone must not fail the job.
func (o *Orchestrator) setProgress(ctx context.Context, taskID, message string, progress float64) {
	err := o.store.UpsertStatus(ctx, taskID, taskstore.StatusInProgress, message, taskstore.Float64(progress))
	if err != nil {
		o.logger.Warn("could not update task progress", "task_id", taskID, "error", err)
	}
}

// markFailed records a terminal failure. No result record is written, so
// the results endpoint keeps reporting the task as not completed. Uses a
// fresh context so the failure is recorded even when the job's context is
// already cancelled.
func (o *Orchestrator) markFailed(taskID string, jobErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	message := fmt.Sprintf("PR analysis failed: %v", jobErr)
	if err := o.store.UpsertStatus(ctx, taskID, taskstore.StatusFailed, message, nil); err != nil {
		o.logger.Error("could not record task failure", "task_id", taskID, "error", err)
	}
	o.logger.Error("task failed", "task_id", taskID, "error", jobErr)
}

// analysisRequest is one unit of work waiting for a dispatcher worker.
type analysisRequest struct {
	taskID string
	repo   string
	number int
}

// Dispatcher runs queued analysis jobs on a fixed pool of workers. Jobs
// are independent; the pool only bounds how many run at once.
type Dispatcher struct {
	orch    *Orchestrator
	queue   chan analysisRequest
	done    chan struct{}
	workers int
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher with the given worker count and queue
// capacity. Call Start before Enqueue.
func NewDispatcher(orch *Orchestrator, workers, queueSize int, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		orch:    orch,
		queue:   make(chan analysisRequest, queueSize),
		done:    make(chan struct{}),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		go d.worker(ctx, i)
	}
	go func() {
		<-ctx.Done()
		close(d.done)
	}()
	d.logger.Info("dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
}

// Enqueue hands a submitted task to the worker pool. It fails instead of
// blocking when the queue is full or the dispatcher has stopped.
func (d *Dispatcher) Enqueue(taskID, repo string, number int) error {
	req := analysisRequest{taskID: taskID, repo: repo, number: number}
	select {
	case <-d.done:
		return fmt.Errorf("dispatcher stopped")
	case d.queue <- req:
		return nil
	default:
		return fmt.Errorf("analysis queue full")
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-d.queue:
			d.logger.Debug("worker picked up task", "worker", id, "task_id", req.taskID)
			// Run already converts panics and errors into a failed task
			// record; the worker just moves on to the next job.
			_ = d.orch.Run(ctx, req.taskID, req.repo, req.number)
		}
	}
}
