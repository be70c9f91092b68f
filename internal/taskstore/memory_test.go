package taskstore

import (
	"context"
	"testing"
	"time"

	"github.com/akhil1parekh/github-pr-review-agent/internal/agent"
)

func TestUpsertStatusPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.UpsertStatus(ctx, "t1", StatusQueued, "queued", Float64(0)); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	first, err := store.GetStatus(ctx, "t1")
	if err != nil || first == nil {
		t.Fatalf("GetStatus after first upsert: rec=%v err=%v", first, err)
	}

	time.Sleep(5 * time.Millisecond)

	if err := store.UpsertStatus(ctx, "t1", StatusInProgress, "working", Float64(0.2)); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	second, err := store.GetStatus(ctx, "t1")
	if err != nil || second == nil {
		t.Fatalf("GetStatus after second upsert: rec=%v err=%v", second, err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed across updates: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("updated_at did not advance: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
	if second.Status != StatusInProgress || second.Message != "working" {
		t.Errorf("fields not updated: %+v", second)
	}
}

func TestProgressDistinguishesUnsetFromZero(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.UpsertStatus(ctx, "zero", StatusQueued, "queued", Float64(0)); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertStatus(ctx, "unset", StatusFailed, "boom", nil); err != nil {
		t.Fatal(err)
	}

	zero, _ := store.GetStatus(ctx, "zero")
	if zero.Progress == nil || *zero.Progress != 0 {
		t.Errorf("reported zero progress must round-trip as zero, got %v", zero.Progress)
	}

	unset, _ := store.GetStatus(ctx, "unset")
	if unset.Progress != nil {
		t.Errorf("nil progress must round-trip as unset, got %v", *unset.Progress)
	}
}

func TestNilProgressClearsStoredProgress(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_ = store.UpsertStatus(ctx, "t1", StatusInProgress, "working", Float64(0.5))
	_ = store.UpsertStatus(ctx, "t1", StatusFailed, "analysis failed", nil)

	rec, _ := store.GetStatus(ctx, "t1")
	if rec.Progress != nil {
		t.Errorf("failed status with nil progress must clear the field, got %v", *rec.Progress)
	}
}

func TestGetStatusUnknownIDIsNotAnError(t *testing.T) {
	store := NewMemoryStore()

	rec, err := store.GetStatus(context.Background(), "no-such-task")
	if err != nil {
		t.Fatalf("unknown id must not error: %v", err)
	}
	if rec != nil {
		t.Errorf("unknown id must return nil record, got %+v", rec)
	}
}

func TestPutResultFlipsStatusAfterBlobWrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_ = store.UpsertStatus(ctx, "t1", StatusInProgress, "working", Float64(0.5))

	result := ResultRecord{
		TaskID:  "t1",
		Status:  StatusCompleted,
		PR:      agent.PRSnapshot{Repo: "octo/repo", Number: 1, Title: "Fix"},
		Summary: "two minor issues",
		Issues: []agent.Issue{
			{Category: agent.CategoryStyle, File: "a.go", Line: 3, Severity: agent.SeverityLow},
		},
		CreatedAt:   time.Now().UTC(),
		CompletedAt: time.Now().UTC(),
	}
	if err := store.PutResult(ctx, "t1", result); err != nil {
		t.Fatalf("PutResult failed: %v", err)
	}

	// A reader observing completed must find the result.
	status, _ := store.GetStatus(ctx, "t1")
	if status.Status != StatusCompleted {
		t.Fatalf("expected completed status, got %s", status.Status)
	}
	if status.Progress == nil || *status.Progress != 1.0 {
		t.Errorf("completed status must carry progress 1.0, got %v", status.Progress)
	}

	got, err := store.GetResult(ctx, "t1")
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if got == nil {
		t.Fatal("result must be readable once status is completed")
	}
	if got.Summary != "two minor issues" || len(got.Issues) != 1 {
		t.Errorf("result round trip mismatch: %+v", got)
	}
}

func TestGetResultAbsent(t *testing.T) {
	store := NewMemoryStore()

	rec, err := store.GetResult(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("absent result must not error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil result, got %+v", rec)
	}
}
