package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aescanero/graphpool/pkg/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "graphpool:result:"

// ResultStorage implements ResultStorage using Redis
type ResultStorage struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewResultStorage creates a new Redis result storage. A zero ttl keeps
// results forever.
func NewResultStorage(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ResultStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultStorage{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// SaveResult saves a run result to Redis
func (s *ResultStorage) SaveResult(ctx context.Context, result *ports.RunResult) error {
	if result == nil || result.ID == "" {
		return fmt.Errorf("result ID is required")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := s.client.Set(ctx, getResultKey(result.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	s.logger.Debug("result saved",
		zap.String("run_id", result.ID),
		zap.String("status", string(result.Status)))

	return nil
}

// GetResult retrieves a run result from Redis
func (s *ResultStorage) GetResult(ctx context.Context, id string) (*ports.RunResult, error) {
	data, err := s.client.Get(ctx, getResultKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("result %s: %w", id, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	var result ports.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

// ListResults lists all stored results, oldest first
func (s *ResultStorage) ListResults(ctx context.Context) ([]*ports.RunResult, error) {
	var cursor uint64
	var keys []string

	for {
		var batch []string
		var err error

		batch, cursor, err = s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	results := make([]*ports.RunResult, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			// expired between SCAN and GET
			continue
		}

		var result ports.RunResult
		if err := json.Unmarshal(data, &result); err != nil {
			s.logger.Warn("skipping unreadable result",
				zap.String("key", key),
				zap.Error(err))
			continue
		}

		results = append(results, &result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.Before(results[j].StartedAt)
	})
	return results, nil
}

// DeleteResult deletes a run result from Redis
func (s *ResultStorage) DeleteResult(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, getResultKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete result: %w", err)
	}

	s.logger.Debug("result deleted", zap.String("run_id", id))
	return nil
}

// getResultKey returns the Redis key for a run result
func getResultKey(id string) string {
	return keyPrefix + id
}
