package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// CacheStore is a JSON key-value cache namespaced by a group prefix. Every
// key it writes lives under "<group>:" so the whole group can be flushed.
type CacheStore struct {
	client *goredis.Client
	group  string
}

func NewCacheStore(client *goredis.Client, group string) (*CacheStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if group == "" {
		return nil, fmt.Errorf("cache group is required")
	}
	return &CacheStore{client: client, group: group}, nil
}

func (s *CacheStore) key(key string) string {
	return s.group + ":" + key
}

func (s *CacheStore) indexKey(category string) string {
	return s.group + ":_index:" + category
}

// Get decodes the cached value into dest. A missing key returns false and no error.
func (s *CacheStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

func (s *CacheStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return s.client.Set(ctx, s.key(key), data, ttl).Err()
}

func (s *CacheStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.key(k))
	}
	return s.client.Del(ctx, full...).Err()
}

// Track records key as live under category.
func (s *CacheStore) Track(ctx context.Context, category, key string) error {
	return s.client.SAdd(ctx, s.indexKey(category), key).Err()
}

// Tracked returns the keys recorded under category.
func (s *CacheStore) Tracked(ctx context.Context, category string) ([]string, error) {
	return s.client.SMembers(ctx, s.indexKey(category)).Result()
}

// Untrack removes keys from the category index. The set itself is left to
// Redis, which drops it once empty.
func (s *CacheStore) Untrack(ctx context.Context, category string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]any, 0, len(keys))
	for _, k := range keys {
		members = append(members, k)
	}
	return s.client.SRem(ctx, s.indexKey(category), members...).Err()
}

// FlushGroup deletes every key of the group, index sets included.
func (s *CacheStore) FlushGroup(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.group+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// SetNX stores a marker only if key is absent and reports whether it did.
func (s *CacheStore) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.key(key), 1, ttl).Result()
}

// Incr increments a counter, starting its ttl on first use.
func (s *CacheStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	full := s.key(key)
	n, err := s.client.Incr(ctx, full).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := s.client.Expire(ctx, full, ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}
