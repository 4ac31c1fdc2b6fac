package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"cajadual/backend/internal/domain"
)

const (
	DefaultNamespace  = "cajadual"
	DefaultSummaryTTL = time.Minute
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Namespace prefixes every key. Several registers can share one redis
	// database as long as each uses its own namespace.
	Namespace string
	// TTL applies when Set is called with a non-positive ttl.
	TTL time.Duration
}

// RedisSummaryCache stores each day's summary as JSON under
// "<namespace>:summary:<day>". An entry that no longer decodes is dropped
// and reported as a miss.
type RedisSummaryCache struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

func NewRedisSummaryCache(opts RedisOptions) *RedisSummaryCache {
	namespace := strings.TrimSuffix(strings.TrimSpace(opts.Namespace), ":")
	if namespace == "" {
		namespace = DefaultNamespace
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisSummaryCache{client: client, namespace: namespace, ttl: ttl}
}

// Key returns the redis key holding the summary of day.
func (c *RedisSummaryCache) Key(day string) string {
	return c.namespace + ":summary:" + day
}

func (c *RedisSummaryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisSummaryCache) Close() error {
	return c.client.Close()
}

func (c *RedisSummaryCache) Get(ctx context.Context, day string) (*domain.DailySummary, bool, error) {
	key := c.Key(day)
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var summary domain.DailySummary
	if err := json.Unmarshal(raw, &summary); err != nil || summary.Date != day {
		return nil, false, c.client.Del(ctx, key).Err()
	}
	return &summary, true, nil
}

func (c *RedisSummaryCache) Set(ctx context.Context, day string, value *domain.DailySummary, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.Key(day), payload, ttl).Err()
}

func (c *RedisSummaryCache) Delete(ctx context.Context, day string) error {
	return c.client.Del(ctx, c.Key(day)).Err()
}
