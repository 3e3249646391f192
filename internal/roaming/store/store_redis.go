package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"exposure/internal/roaming/models"
	"exposure/pkg/platform/sentinel"
)

var redisOpDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "exposure_country_code_redis_duration_ms",
	Help:    "Latency of country code Redis operations in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
}, []string{"operation"})

// DefaultKey is the sorted set holding country codes scored by last-seen unix milliseconds.
const DefaultKey = "roaming:country_codes"

// RedisStore keeps country code sightings in a Redis sorted set so several
// processes for the same device profile share one history.
type RedisStore struct {
	client *redis.Client
	key    string
}

type RedisOption func(*RedisStore)

// WithKey overrides the sorted set key, mostly to isolate tests.
func WithKey(key string) RedisOption {
	return func(s *RedisStore) {
		s.key = key
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, key: DefaultKey}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Upsert uses ZADD GT so a delayed, older sighting cannot move a code back in time.
func (s *RedisStore) Upsert(ctx context.Context, code models.CountryCode) error {
	defer observe("upsert", time.Now())
	err := s.client.ZAddArgs(ctx, s.key, redis.ZAddArgs{
		GT:      true,
		Members: []redis.Z{{Score: float64(code.LastSeen.UnixMilli()), Member: code.Code}},
	}).Err()
	if err != nil {
		return fmt.Errorf("store country code %s: %w", code.Code, sentinel.Unavailable(err))
	}
	return nil
}

func (s *RedisStore) DeleteSeenBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	defer observe("delete_seen_before", time.Now())
	maxScore := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
	n, err := s.client.ZRemRangeByScore(ctx, s.key, "-inf", maxScore).Result()
	if err != nil {
		return 0, fmt.Errorf("delete obsolete country codes: %w", sentinel.Unavailable(err))
	}
	return n, nil
}

func (s *RedisStore) ListSeenSince(ctx context.Context, since time.Time) ([]models.CountryCode, error) {
	defer observe("list_seen_since", time.Now())
	members, err := s.client.ZRevRangeByScoreWithScores(ctx, s.key, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list country codes: %w", sentinel.Unavailable(err))
	}
	out := make([]models.CountryCode, 0, len(members))
	for _, z := range members {
		code, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("country code member %v: %w", z.Member, sentinel.ErrInvalidState)
		}
		out = append(out, models.CountryCode{
			Code:     code,
			LastSeen: time.UnixMilli(int64(z.Score)).UTC(),
		})
	}
	return out, nil
}

func observe(operation string, start time.Time) {
	redisOpDurationMs.WithLabelValues(operation).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
