package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
)

// RecordCacheTTL bounds staleness for record lookups that race with an
// in-flight index update; the engine also invalidates touched keys eagerly.
const RecordCacheTTL = 5 * time.Minute

const recordKeyPrefix = "record:"

// CacheService provides a Redis cache-aside layer for record point-lookups.
type CacheService struct {
	rdb *redis.Client
}

// NewCacheService creates a new CacheService. If redisURL is empty or the
// connection fails, it returns a CacheService with a nil client (cache
// operations become no-ops).
func NewCacheService(redisURL string) *CacheService {
	if redisURL == "" {
		log.Println("redis: no URL configured, caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("redis: invalid URL %q, caching disabled: %v", redisURL, err)
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis: connection failed, caching disabled: %v", err)
		return &CacheService{}
	}

	log.Println("redis: connected, caching enabled")
	return &CacheService{rdb: rdb}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetRecord retrieves a cached record lookup. The second return is false on
// a cache miss or when caching is disabled. An empty slot ("no record for
// this key") is cached too, as a JSON null.
func (c *CacheService) GetRecord(ctx context.Context, key model.RecordKey) (*model.RecordSlot, bool, error) {
	if c.rdb == nil {
		return nil, false, nil
	}
	data, err := c.rdb.Get(ctx, recordKeyPrefix+key.String()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var slot *model.RecordSlot
	if err := json.Unmarshal(data, &slot); err != nil {
		return nil, false, err
	}
	return slot, true, nil
}

// SetRecord stores a record lookup result; slot may be nil for empty slots.
func (c *CacheService) SetRecord(ctx context.Context, key model.RecordKey, slot *model.RecordSlot) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(slot)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, recordKeyPrefix+key.String(), b, RecordCacheTTL).Err()
}

// InvalidateRecord drops one cached slot (called after the index engine
// touches its key).
func (c *CacheService) InvalidateRecord(ctx context.Context, key model.RecordKey) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, recordKeyPrefix+key.String()).Err()
}

// InvalidateAllRecords drops every cached slot (called after a rebuild,
// which can change arbitrarily many keys).
func (c *CacheService) InvalidateAllRecords(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, recordKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("del %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
