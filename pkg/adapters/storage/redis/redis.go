package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultKeyPrefix namespaces cache keys in a shared Redis.
const DefaultKeyPrefix = "taskorch:research:"

// ResultCache implements ports.ResultCache using Redis
type ResultCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
	prefix string
}

// NewResultCache creates a new Redis result cache
func NewResultCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ResultCache {
	return &ResultCache{
		client: client,
		logger: logger,
		ttl:    ttl,
		prefix: DefaultKeyPrefix,
	}
}

// Get retrieves a cached output
func (c *ResultCache) Get(ctx context.Context, key string) (*domain.WorkerOutput, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached result: %w", err)
	}

	var out domain.WorkerOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}

	return &out, true, nil
}

// Set stores an output with the cache TTL
func (c *ResultCache) Set(ctx context.Context, key string, out *domain.WorkerOutput) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}

	c.logger.Debug("result cached", zap.String("key", key))
	return nil
}

// Clear deletes every cached result and returns how many were removed
func (c *ResultCache) Clear(ctx context.Context) (int, error) {
	keys, err := c.keys(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return int(n), nil
}

// Len returns the number of cached results
func (c *ResultCache) Len(ctx context.Context) (int, error) {
	keys, err := c.keys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (c *ResultCache) keys(ctx context.Context) ([]string, error) {
	var cursor uint64
	var keys []string

	for {
		var batch []string
		var err error

		batch, cursor, err = c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	return keys, nil
}
