package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/agentrunner/internal/domain"
	"github.com/davidbz/agentrunner/internal/observability"
)

const (
	runKeyPrefix  = "agentrunner:run:"
	recentRunsKey = "agentrunner:runs"
	maxRecentRuns = 100
)

// RedisSink stores each record as JSON under its run id and keeps a capped
// list of recent run ids.
type RedisSink struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSink creates a Redis sink.
func NewRedisSink(client *redis.Client, ttl time.Duration) (*RedisSink, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	return &RedisSink{
		client: client,
		ttl:    ttl,
	}, nil
}

// Name returns the sink identifier.
func (s *RedisSink) Name() string {
	return "redis"
}

// Save stores the record. Records without a run id cannot be addressed and are rejected.
func (s *RedisSink) Save(ctx context.Context, record *domain.RunRecord) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}

	if record.RunID == "" {
		return errors.New("record has no run id")
	}

	logger := observability.FromContext(ctx)

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := RunKey(record.RunID)

	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, s.ttl)
	pipe.LPush(ctx, recentRunsKey, record.RunID)
	pipe.LTrim(ctx, recentRunsKey, 0, maxRecentRuns-1)

	if _, execErr := pipe.Exec(ctx); execErr != nil {
		logger.Error("redis save failed", observability.Error(execErr))
		return fmt.Errorf("failed to store record: %w", execErr)
	}

	logger.Debug("run record stored in redis",
		observability.String("key", key),
		observability.Int("data_size", len(data)))
	return nil
}

// Load reads a stored record back.
func (s *RedisSink) Load(ctx context.Context, runID string) (*domain.RunRecord, error) {
	data, err := s.client.Get(ctx, RunKey(runID)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", runID, err)
	}

	var record domain.RunRecord
	if unmarshalErr := json.Unmarshal(data, &record); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", unmarshalErr)
	}

	return &record, nil
}

// Close releases the underlying client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// RunKey returns the key a run record is stored under.
func RunKey(runID string) string {
	return runKeyPrefix + runID
}
