package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Stage is one step of the analysis pipeline. A stage receives the current
// state and returns the updated state. Expected failures (network errors,
// unusable responses) are absorbed by the stage itself: it marks the state
// failed instead of returning an error. Only genuinely unexpected faults
// may panic out of a stage; the pipeline converts those to a failed state
// at its boundary.
type Stage struct {
	Name string
	Run  func(ctx context.Context, s State) State
}

// Pipeline runs an ordered stage sequence against a job state. The sequence
// is a straight line: no branching, no retries. After each stage the status
// is inspected and the run stops at the first failure.
type Pipeline struct {
	stages []Stage
	logger *slog.Logger
}

// NewPipeline creates a pipeline over the given stages.
func NewPipeline(stages []Stage, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{stages: stages, logger: logger}
}

// Run executes the stages in order, threading the state through them.
// It always returns a terminal state: completed with a summary, or failed
// with an error message. A panic escaping a stage is caught here and
// reported as a failed state; Run never panics to its caller.
func (p *Pipeline) Run(ctx context.Context, initial State) (out State) {
	out = initial

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline stage panicked", "repo", out.PR.Repo, "pr", out.PR.Number, "panic", r)
			out.Status = StatusFailed
			out.Error = fmt.Sprintf("unexpected pipeline fault: %v", r)
		}
	}()

	for _, stage := range p.stages {
		start := time.Now()
		out = stage.Run(ctx, out)
		p.logger.Debug("stage finished",
			"stage", stage.Name,
			"status", out.Status,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		if out.Status == StatusFailed {
			p.logger.Warn("pipeline halted", "stage", stage.Name, "error", out.Error)
			return out
		}
	}

	return out
}
