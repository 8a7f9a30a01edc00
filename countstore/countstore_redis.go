package countstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisCountPrefix string = "count/"
var redisDistinctPrefix string = "distinct/"

type RedisCountStore struct {
	Client *redis.Client
	Prefix string
}

var _ CountStore = (*RedisCountStore)(nil)

// Wraps an existing client. All keys are namespaced under prefix.
func NewRedisCountStore(client *redis.Client, prefix string) *RedisCountStore {
	return &RedisCountStore{
		Client: client,
		Prefix: prefix,
	}
}

func (s *RedisCountStore) countKey(name, val, period string, now time.Time) string {
	return s.Prefix + redisCountPrefix + periodBucket(name, val, period, now)
}

func (s *RedisCountStore) distinctKey(name, val, period string, now time.Time) string {
	return s.Prefix + redisDistinctPrefix + periodBucket(name, val, period, now)
}

func (s *RedisCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	c, err := s.Client.Get(ctx, s.countKey(name, val, period, time.Now())).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

func (s *RedisCountStore) Increment(ctx context.Context, name, val string) error {
	now := time.Now()

	// all three buckets in one round-trip
	multi := s.Client.Pipeline()

	key := s.countKey(name, val, PeriodHour, now)
	multi.Incr(ctx, key)
	multi.Expire(ctx, key, 2*time.Hour)

	key = s.countKey(name, val, PeriodDay, now)
	multi.Incr(ctx, key)
	multi.Expire(ctx, key, 48*time.Hour)

	multi.Incr(ctx, s.countKey(name, val, PeriodTotal, now))

	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisCountStore) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	c, err := s.Client.PFCount(ctx, s.distinctKey(name, bucket, period, time.Now())).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return int(c), nil
}

func (s *RedisCountStore) IncrementDistinct(ctx context.Context, name, bucket, val string) error {
	now := time.Now()
	multi := s.Client.Pipeline()

	key := s.distinctKey(name, bucket, PeriodHour, now)
	multi.PFAdd(ctx, key, val)
	multi.Expire(ctx, key, 2*time.Hour)

	key = s.distinctKey(name, bucket, PeriodDay, now)
	multi.PFAdd(ctx, key, val)
	multi.Expire(ctx, key, 48*time.Hour)

	multi.PFAdd(ctx, s.distinctKey(name, bucket, PeriodTotal, now), val)

	_, err := multi.Exec(ctx)
	return err
}
