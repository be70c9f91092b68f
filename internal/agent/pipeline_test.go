package agent

import (
	"context"
	"testing"
)

func passThrough(name string) Stage {
	return Stage{Name: name, Run: func(ctx context.Context, s State) State { return s }}
}

func TestPipelineRunsAllStages(t *testing.T) {
	var order []string
	record := func(name string, finish bool) Stage {
		return Stage{Name: name, Run: func(ctx context.Context, s State) State {
			order = append(order, name)
			if finish {
				s.Summary = "done"
				s.Status = StatusCompleted
			}
			return s
		}}
	}

	p := NewPipeline([]Stage{record("a", false), record("b", false), record("c", true)}, nil)
	final := p.Run(context.Background(), NewState("octo/repo", 1))

	if final.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (error=%q)", final.Status, final.Error)
	}
	if final.Summary == "" {
		t.Error("completed state must carry a non-empty summary")
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("stages ran out of order: %v", order)
	}
}

func TestPipelineShortCircuitsOnFailure(t *testing.T) {
	ran := map[string]int{}
	count := func(name string) Stage {
		return Stage{Name: name, Run: func(ctx context.Context, s State) State {
			ran[name]++
			return s
		}}
	}
	failing := Stage{Name: "boom", Run: func(ctx context.Context, s State) State {
		ran["boom"]++
		return s.fail("stage exploded")
	}}

	p := NewPipeline([]Stage{count("first"), failing, count("after1"), count("after2")}, nil)
	final := p.Run(context.Background(), NewState("octo/repo", 2))

	if final.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if final.Error != "stage exploded" {
		t.Errorf("unexpected error text: %q", final.Error)
	}
	if ran["first"] != 1 || ran["boom"] != 1 {
		t.Errorf("stages before failure should run once: %v", ran)
	}
	if ran["after1"] != 0 || ran["after2"] != 0 {
		t.Errorf("no stage after a failure may run: %v", ran)
	}
}

func TestPipelineRecoversFromPanic(t *testing.T) {
	panics := Stage{Name: "panics", Run: func(ctx context.Context, s State) State {
		panic("nil map write")
	}}
	after := 0
	counting := Stage{Name: "after", Run: func(ctx context.Context, s State) State {
		after++
		return s
	}}

	p := NewPipeline([]Stage{passThrough("ok"), panics, counting}, nil)
	final := p.Run(context.Background(), NewState("octo/repo", 3))

	if final.Status != StatusFailed {
		t.Fatalf("panic must surface as failed state, got %s", final.Status)
	}
	if final.Error == "" {
		t.Error("failed state must carry an error message")
	}
	if after != 0 {
		t.Error("stages after a panic must not run")
	}
}

func TestPipelinePreservesPartialResultsOnFailure(t *testing.T) {
	withIssues := Stage{Name: "style", Run: func(ctx context.Context, s State) State {
		s.Results[CategoryStyle] = append(s.Results[CategoryStyle], Issue{
			Category: CategoryStyle, File: "main.go", Line: 4, Description: "mixed tabs",
		})
		return s
	}}
	failing := Stage{Name: "bugs", Run: func(ctx context.Context, s State) State {
		return s.fail("analyzer unreachable")
	}}

	p := NewPipeline([]Stage{withIssues, failing}, nil)
	final := p.Run(context.Background(), NewState("octo/repo", 4))

	if final.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if len(final.Results[CategoryStyle]) != 1 {
		t.Errorf("results produced before the failure must be preserved, got %v", final.Results)
	}
}

func TestFlattenIssuesKeepsCategoryOrder(t *testing.T) {
	results := map[Category][]Issue{
		CategoryBestPractices: {{Category: CategoryBestPractices, File: "d.go"}},
		CategoryStyle:         {{Category: CategoryStyle, File: "a.go"}, {Category: CategoryStyle, File: "b.go"}},
		CategoryPerformance:   {{Category: CategoryPerformance, File: "c.go"}},
		CategoryBugs:          {},
	}

	flat := FlattenIssues(results)
	if len(flat) != 4 {
		t.Fatalf("expected 4 issues, got %d", len(flat))
	}
	wantFiles := []string{"a.go", "b.go", "c.go", "d.go"}
	for i, want := range wantFiles {
		if flat[i].File != want {
			t.Errorf("position %d: want %s, got %s", i, want, flat[i].File)
		}
	}
}
