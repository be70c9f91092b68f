package taskstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and single-node runs
// without Redis. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	tasks   map[string]TaskRecord
	results map[string]ResultRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:   make(map[string]TaskRecord),
		results: make(map[string]ResultRecord),
	}
}

// UpsertStatus implements Store.
func (m *MemoryStore) UpsertStatus(ctx context.Context, taskID string, status Status, message string, progress *float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	rec := TaskRecord{
		TaskID:    taskID,
		Status:    status,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, ok := m.tasks[taskID]; ok {
		rec.CreatedAt = existing.CreatedAt
	}
	if progress != nil {
		p := *progress
		rec.Progress = &p
	}
	m.tasks[taskID] = rec
	return nil
}

// GetStatus implements Store.
func (m *MemoryStore) GetStatus(ctx context.Context, taskID string) (*TaskRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.tasks[taskID]
	if !ok {
		return nil, nil
	}
	out := rec
	if rec.Progress != nil {
		p := *rec.Progress
		out.Progress = &p
	}
	return &out, nil
}

// PutResult implements Store. The result is visible before the status
// flips to completed.
func (m *MemoryStore) PutResult(ctx context.Context, taskID string, result ResultRecord) error {
	m.mu.Lock()
	m.results[taskID] = result
	m.mu.Unlock()

	return m.UpsertStatus(ctx, taskID, StatusCompleted, "PR analysis completed successfully", Float64(1.0))
}

// GetResult implements Store.
func (m *MemoryStore) GetResult(ctx context.Context, taskID string) (*ResultRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.results[taskID]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}
