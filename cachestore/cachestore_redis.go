package cachestore

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// Redis-backed cache with a small in-process TinyLFU layer in front.
type RedisCacheStore struct {
	Data   *cache.Cache
	TTL    time.Duration
	Prefix string
}

var _ CacheStore = (*RedisCacheStore)(nil)

func NewRedisCacheStore(client *redis.Client, prefix string, ttl time.Duration) *RedisCacheStore {
	data := cache.New(&cache.Options{
		Redis:      client,
		LocalCache: cache.NewTinyLFU(10_000, ttl),
	})
	return &RedisCacheStore{
		Data:   data,
		TTL:    ttl,
		Prefix: prefix,
	}
}

func (s *RedisCacheStore) cacheKey(name, key string) string {
	return s.Prefix + "cache/" + name + "/" + key
}

func (s *RedisCacheStore) Get(ctx context.Context, name, key string) (string, error) {
	var val string
	err := s.Data.Get(ctx, s.cacheKey(name, key), &val)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisCacheStore) Set(ctx context.Context, name, key string, val string) error {
	return s.Data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   s.cacheKey(name, key),
		Value: val,
		TTL:   s.TTL,
	})
}

func (s *RedisCacheStore) Purge(ctx context.Context, name, key string) error {
	err := s.Data.Delete(ctx, s.cacheKey(name, key))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}
