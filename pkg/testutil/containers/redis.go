//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"exposure/internal/platform/config"
)

// RedisContainer runs the Redis instance that backs country-code sightings in
// integration tests.
type RedisContainer struct {
	Container testcontainers.Container
	Client    *redis.Client
	url       string
}

// NewRedisContainer starts Redis and connects a client to it. Prefer
// Manager.GetRedis, which shares one instance per test binary.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redis connection string: %v", err)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to parse redis URL %q: %v", url, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping redis: %v", err)
	}

	return &RedisContainer{Container: container, Client: client, url: url}
}

// URL is the redis:// address of the container.
func (r *RedisContainer) URL() string {
	return r.url
}

// Config returns the settings the server would read from REDIS_URL for this
// container, with a small pool.
func (r *RedisContainer) Config() config.RedisConfig {
	return config.RedisConfig{
		URL:         r.url,
		PoolSize:    2,
		DialTimeout: 5 * time.Second,
	}
}

// DeleteKeys removes every key matching pattern. Suites scope their keys with
// a prefix and clear only those, so packages sharing the instance stay apart.
func (r *RedisContainer) DeleteKeys(ctx context.Context, pattern string) error {
	iter := r.Client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := r.Client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("delete %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

// Scores reads a sorted set as member to score, for asserting what a store
// actually wrote.
func (r *RedisContainer) Scores(ctx context.Context, key string) (map[string]float64, error) {
	members, err := r.Client.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read sorted set %s: %w", key, err)
	}
	out := make(map[string]float64, len(members))
	for _, z := range members {
		out[fmt.Sprint(z.Member)] = z.Score
	}
	return out, nil
}
