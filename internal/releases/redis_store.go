package releases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fixturefox/fixturefox/internal/models"
)

// Redis key layouts for the release cache
const (
	redisKeyEntry = "release:guid:%s"
	redisKeyIndex = "release:idx:%s:%d:%s"
)

// RedisStore backs the release cache with Redis so multiple processes
// share one dedup window. Entry keys expire with the cache TTL; index sets
// are kept alive slightly longer and stale members are skipped on read.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed cache store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// PutIfAbsent stores the entry under its guid with SETNX semantics
func (s *RedisStore) PutIfAbsent(ctx context.Context, entry *models.CacheEntry) (bool, *models.CacheEntry, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, nil, fmt.Errorf("failed to encode cache entry: %w", err)
	}

	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return false, nil, fmt.Errorf("%w: cache entry already expired", models.ErrInvalidInput)
	}

	key := fmt.Sprintf(redisKeyEntry, entry.GUID)
	stored, err := s.client.SetNX(ctx, key, payload, ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("failed to store cache entry: %w", err)
	}
	if !stored {
		existing, err := s.Get(ctx, entry.GUID)
		if err != nil {
			return false, nil, err
		}
		if existing != nil {
			return false, existing, nil
		}
		// Entry expired between SETNX and Get; retry once
		if _, err := s.client.SetNX(ctx, key, payload, ttl).Result(); err != nil {
			return false, nil, fmt.Errorf("failed to store cache entry: %w", err)
		}
	}

	indexKey := fmt.Sprintf(redisKeyIndex, entry.Sport, entry.Year, entry.Round)
	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, indexKey, entry.GUID)
	pipe.Expire(ctx, indexKey, ttl+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, nil, fmt.Errorf("failed to index cache entry: %w", err)
	}
	return true, entry, nil
}

// Get returns the entry for a guid, or nil when absent or expired in Redis
func (s *RedisStore) Get(ctx context.Context, guid string) (*models.CacheEntry, error) {
	payload, err := s.client.Get(ctx, fmt.Sprintf(redisKeyEntry, guid)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	var entry models.CacheEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &entry, nil
}

// ListByKey returns all live entries indexed under the search key
func (s *RedisStore) ListByKey(ctx context.Context, key models.ReleaseSearchKey) ([]*models.CacheEntry, error) {
	indexKey := fmt.Sprintf(redisKeyIndex, key.Sport, key.Year, key.Round)
	guids, err := s.client.SMembers(ctx, indexKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache index: %w", err)
	}

	entries := make([]*models.CacheEntry, 0, len(guids))
	for _, guid := range guids {
		entry, err := s.Get(ctx, guid)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			// Expired member; drop it from the index opportunistically
			s.client.SRem(ctx, indexKey, guid)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
