package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NgTruc2025/python-ntt/internal/domain"
)

// KeyPrefix namespaces handoff slots in Redis.
const KeyPrefix = "pending_ai_exercise:"

// DefaultTTL bounds how long an unclaimed exercise is kept.
const DefaultTTL = 30 * time.Minute

// RedisChannel stores pending exercises in Redis so a tab survives a
// daemon restart.
type RedisChannel struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("redis URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return opts, nil
}

// NewRedisChannel connects to Redis and verifies the connection.
func NewRedisChannel(ctx context.Context, url string, ttl time.Duration) (*RedisChannel, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return NewRedisChannelFromClient(client, ttl), nil
}

// NewRedisChannelFromClient wraps an existing client.
func NewRedisChannelFromClient(client *redis.Client, ttl time.Duration) *RedisChannel {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisChannel{client: client, ttl: ttl, logger: slog.Default()}
}

func key(tabID string) string {
	return KeyPrefix + tabID
}

func (c *RedisChannel) Put(ctx context.Context, tabID string, ex *domain.Exercise) error {
	if tabID == "" || ex == nil {
		return domain.ErrInvalidInput
	}
	data, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("marshal exercise: %w", err)
	}
	if err := c.client.Set(ctx, key(tabID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("store pending exercise: %w", err)
	}
	return nil
}

// Take uses GETDEL so concurrent readers cannot both claim the value.
func (c *RedisChannel) Take(ctx context.Context, tabID string) (*domain.Exercise, error) {
	data, err := c.client.GetDel(ctx, key(tabID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("take pending exercise: %w", err)
	}

	var ex domain.Exercise
	if err := json.Unmarshal(data, &ex); err != nil {
		c.logger.Warn("dropping corrupt pending exercise", "tab_id", tabID, "error", err)
		return nil, ErrEmpty
	}
	return &ex, nil
}

// Drop discards any pending exercise for a closed tab.
func (c *RedisChannel) Drop(tabID string) {
	if err := c.client.Del(context.Background(), key(tabID)).Err(); err != nil {
		c.logger.Warn("drop pending exercise", "tab_id", tabID, "error", err)
	}
}

// Close shuts down the Redis client.
func (c *RedisChannel) Close() error {
	return c.client.Close()
}

// HealthCheck verifies the Redis connection is alive.
func (c *RedisChannel) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

var (
	_ Channel = (*MemoryChannel)(nil)
	_ Channel = (*RedisChannel)(nil)
)
