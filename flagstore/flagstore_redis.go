package flagstore

import (
	"context"
	"sort"

	"github.com/redis/go-redis/v9"
)

var redisFlagPrefix string = "flags/"

type RedisFlagStore struct {
	Client *redis.Client
	Prefix string
}

var _ FlagStore = (*RedisFlagStore)(nil)

func NewRedisFlagStore(client *redis.Client, prefix string) *RedisFlagStore {
	return &RedisFlagStore{
		Client: client,
		Prefix: prefix,
	}
}

func (s *RedisFlagStore) key(key string) string {
	return s.Prefix + redisFlagPrefix + key
}

// Redis sets are unordered; flags come back sorted.
func (s *RedisFlagStore) Get(ctx context.Context, key string) ([]string, error) {
	l, err := s.Client.SMembers(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return []string{}, nil
	} else if err != nil {
		return nil, err
	}
	sort.Strings(l)
	return l, nil
}

func (s *RedisFlagStore) Add(ctx context.Context, key string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	members := make([]interface{}, len(flags))
	for i, f := range flags {
		members[i] = f
	}
	return s.Client.SAdd(ctx, s.key(key), members...).Err()
}

func (s *RedisFlagStore) Remove(ctx context.Context, key string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	members := make([]interface{}, len(flags))
	for i, f := range flags {
		members[i] = f
	}
	return s.Client.SRem(ctx, s.key(key), members...).Err()
}
