package metrics

import (
	"testing"
	"time"
)

func TestRecordAndSnapshot(t *testing.T) {
	c := NewCollector()

	c.Record(OpLLMAnalyze, 100*time.Millisecond)
	c.Record(OpLLMAnalyze, 300*time.Millisecond)
	c.Record(OpGitHubFetch, 50*time.Millisecond)

	snap := c.Snapshot()

	if snap.LLMAnalyze == nil {
		t.Fatal("expected analyze stats")
	}
	if snap.LLMAnalyze.Count != 2 {
		t.Errorf("expected count 2, got %d", snap.LLMAnalyze.Count)
	}
	if snap.LLMAnalyze.MinTimeMs != 100 || snap.LLMAnalyze.MaxTimeMs != 300 {
		t.Errorf("min/max wrong: %d/%d", snap.LLMAnalyze.MinTimeMs, snap.LLMAnalyze.MaxTimeMs)
	}
	if snap.LLMAnalyze.AvgTimeMs != 200 {
		t.Errorf("avg wrong: %f", snap.LLMAnalyze.AvgTimeMs)
	}

	if snap.GitHubFetch == nil || snap.GitHubFetch.Count != 1 {
		t.Errorf("fetch stats wrong: %+v", snap.GitHubFetch)
	}
	if snap.LLMSummary != nil {
		t.Error("operations with no data must snapshot as nil")
	}
	if snap.UptimeSeconds < 0 {
		t.Error("uptime must be non-negative")
	}
}

func TestSnapshotEmptyCollector(t *testing.T) {
	snap := NewCollector().Snapshot()
	if snap.LLMPlan != nil || snap.LLMAnalyze != nil || snap.Jobs != nil {
		t.Errorf("empty collector must produce nil op snapshots: %+v", snap)
	}
}
