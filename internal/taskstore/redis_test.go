//go:build integration

package taskstore

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/akhil1parekh/github-pr-review-agent/internal/agent"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var redisStore *RedisStore
var redisContainer testcontainers.Container

// TestMain sets up and tears down the Redis container for all tests.
func TestMain(m *testing.M) {
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	redisContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	redisStore, err = NewRedisStore(ctx, RedisConfig{
		Addr: fmt.Sprintf("%s:%s", host, mappedPort.Port()),
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test Redis: %v", err)
	}

	code := m.Run()

	_ = redisStore.Close()
	_ = redisContainer.Terminate(ctx)

	os.Exit(code)
}

func TestRedisUpsertStatusPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()

	if err := redisStore.UpsertStatus(ctx, "it-1", StatusQueued, "queued", Float64(0)); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	first, err := redisStore.GetStatus(ctx, "it-1")
	if err != nil || first == nil {
		t.Fatalf("GetStatus failed: rec=%v err=%v", first, err)
	}

	time.Sleep(10 * time.Millisecond)

	if err := redisStore.UpsertStatus(ctx, "it-1", StatusInProgress, "fetching", Float64(0.2)); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	second, err := redisStore.GetStatus(ctx, "it-1")
	if err != nil || second == nil {
		t.Fatalf("GetStatus failed: rec=%v err=%v", second, err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("updated_at did not advance: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
	if second.Progress == nil || *second.Progress != 0.2 {
		t.Errorf("progress mismatch: %v", second.Progress)
	}
}

func TestRedisProgressUnsetVersusZero(t *testing.T) {
	ctx := context.Background()

	_ = redisStore.UpsertStatus(ctx, "it-zero", StatusQueued, "queued", Float64(0))
	_ = redisStore.UpsertStatus(ctx, "it-unset", StatusFailed, "boom", nil)

	zero, err := redisStore.GetStatus(ctx, "it-zero")
	if err != nil {
		t.Fatal(err)
	}
	if zero.Progress == nil || *zero.Progress != 0 {
		t.Errorf("zero progress must survive the hash round trip, got %v", zero.Progress)
	}

	unset, err := redisStore.GetStatus(ctx, "it-unset")
	if err != nil {
		t.Fatal(err)
	}
	if unset.Progress != nil {
		t.Errorf("unset progress leaked a value: %v", *unset.Progress)
	}
}

func TestRedisNilProgressClearsField(t *testing.T) {
	ctx := context.Background()

	_ = redisStore.UpsertStatus(ctx, "it-clear", StatusInProgress, "working", Float64(0.5))
	_ = redisStore.UpsertStatus(ctx, "it-clear", StatusFailed, "analysis failed", nil)

	rec, err := redisStore.GetStatus(ctx, "it-clear")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Progress != nil {
		t.Errorf("stale progress survived a nil-progress update: %v", *rec.Progress)
	}
}

func TestRedisUnknownTask(t *testing.T) {
	ctx := context.Background()

	rec, err := redisStore.GetStatus(ctx, "it-missing")
	if err != nil {
		t.Fatalf("unknown id must not error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record, got %+v", rec)
	}

	result, err := redisStore.GetResult(ctx, "it-missing")
	if err != nil {
		t.Fatalf("absent result must not error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result, got %+v", result)
	}
}

func TestRedisPutResultRoundTrip(t *testing.T) {
	ctx := context.Background()

	_ = redisStore.UpsertStatus(ctx, "it-done", StatusInProgress, "working", Float64(0.8))

	now := time.Now().UTC().Truncate(time.Millisecond)
	result := ResultRecord{
		TaskID:  "it-done",
		Status:  StatusCompleted,
		PR:      agent.PRSnapshot{Repo: "octo/repo", Number: 12, Title: "Refactor"},
		Summary: "mostly style nits",
		Issues: []agent.Issue{
			{Category: agent.CategoryBugs, File: "srv.go", Line: 40, Description: "unchecked error", Severity: agent.SeverityMedium},
		},
		CreatedAt:   now,
		CompletedAt: now,
	}
	if err := redisStore.PutResult(ctx, "it-done", result); err != nil {
		t.Fatalf("PutResult failed: %v", err)
	}

	status, err := redisStore.GetStatus(ctx, "it-done")
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", status.Status)
	}
	if status.Progress == nil || *status.Progress != 1.0 {
		t.Errorf("completed status must carry progress 1.0, got %v", status.Progress)
	}

	got, err := redisStore.GetResult(ctx, "it-done")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("completed status must imply a readable result")
	}
	if got.Summary != result.Summary || len(got.Issues) != 1 || got.Issues[0].File != "srv.go" {
		t.Errorf("result round trip mismatch: %+v", got)
	}
}
