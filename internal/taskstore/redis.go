package taskstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key layout: one hash per task for status fields, one string per task for
// the serialized result. No cross-task keys.
const (
	taskKeyPrefix   = "task:"
	resultKeyPrefix = "results:"
)

// RedisStore is the durable Store backed by Redis. The status record lives
// in a hash so single fields can be updated without rewriting the record;
// the result is a JSON blob written once.
type RedisStore struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("task store connected", "redis_addr", cfg.Addr, "db", cfg.DB)
	return &RedisStore{rdb: rdb, logger: logger}, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// UpsertStatus implements Store. CreatedAt is read back before the write so
// repeated calls for the same task never overwrite the original timestamp.
func (s *RedisStore) UpsertStatus(ctx context.Context, taskID string, status Status, message string, progress *float64) error {
	key := taskKeyPrefix + taskID
	now := time.Now().UTC().Format(time.RFC3339Nano)

	createdAt, err := s.rdb.HGet(ctx, key, "created_at").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read created_at for %s: %w", taskID, err)
	}
	if createdAt == "" {
		createdAt = now
	}

	fields := map[string]any{
		"task_id":    taskID,
		"status":     string(status),
		"message":    message,
		"created_at": createdAt,
		"updated_at": now,
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if progress != nil {
		pipe.HSet(ctx, key, "progress", strconv.FormatFloat(*progress, 'f', -1, 64))
	} else {
		pipe.HDel(ctx, key, "progress")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write status for %s: %w", taskID, err)
	}
	return nil
}

// GetStatus implements Store.
func (s *RedisStore) GetStatus(ctx context.Context, taskID string) (*TaskRecord, error) {
	fields, err := s.rdb.HGetAll(ctx, taskKeyPrefix+taskID).Result()
	if err != nil {
		return nil, fmt.Errorf("read status for %s: %w", taskID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	rec := &TaskRecord{
		TaskID:  taskID,
		Status:  Status(fields["status"]),
		Message: fields["message"],
	}
	if raw, ok := fields["progress"]; ok && raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse progress for %s: %w", taskID, err)
		}
		rec.Progress = &p
	}
	if rec.CreatedAt, err = parseStoredTime(fields["created_at"]); err != nil {
		return nil, fmt.Errorf("parse created_at for %s: %w", taskID, err)
	}
	if rec.UpdatedAt, err = parseStoredTime(fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("parse updated_at for %s: %w", taskID, err)
	}
	return rec, nil
}

// PutResult implements Store. The blob write is issued and confirmed before
// the status flip, so a poller that sees completed will find the result.
func (s *RedisStore) PutResult(ctx context.Context, taskID string, result ResultRecord) error {
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result for %s: %w", taskID, err)
	}
	if err := s.rdb.Set(ctx, resultKeyPrefix+taskID, blob, 0).Err(); err != nil {
		return fmt.Errorf("write result for %s: %w", taskID, err)
	}
	return s.UpsertStatus(ctx, taskID, StatusCompleted, "PR analysis completed successfully", Float64(1.0))
}

// GetResult implements Store.
func (s *RedisStore) GetResult(ctx context.Context, taskID string) (*ResultRecord, error) {
	blob, err := s.rdb.Get(ctx, resultKeyPrefix+taskID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read result for %s: %w", taskID, err)
	}

	var rec ResultRecord
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, fmt.Errorf("decode result for %s: %w", taskID, err)
	}
	return &rec, nil
}

func parseStoredTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
