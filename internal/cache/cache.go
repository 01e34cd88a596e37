// Package cache implements an optional Redis read-through cache for entry
// searches. The cache only shortens repeated lookups; correctness never
// depends on it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"kladovka/internal/models"
)

// Cache wraps a Redis client with a fixed TTL.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// New builds a cache over the given client. TTL must be positive.
func New(rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

func searchKey(term string, limit int) string {
	return fmt.Sprintf("kladovka:search:%d:%s", limit, term)
}

// GetSearch returns cached search results, or ok=false on miss. Redis errors
// degrade to a miss.
func (c *Cache) GetSearch(ctx context.Context, term string, limit int) ([]models.Entry, bool) {
	data, err := c.rdb.Get(ctx, searchKey(term, limit)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("redis get failed, treating as miss")
		return nil, false
	}

	var entries []models.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn().Err(err).Msg("corrupt cache payload, treating as miss")
		return nil, false
	}
	return entries, true
}

// SetSearch stores search results under the term/limit key.
func (c *Cache) SetSearch(ctx context.Context, term string, limit int, entries []models.Entry) {
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, searchKey(term, limit), data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis set failed")
	}
}

// InvalidateSearches drops every cached search result, used after inventory
// changes.
func (c *Cache) InvalidateSearches(ctx context.Context) {
	iter := c.rdb.Scan(ctx, 0, "kladovka:search:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", iter.Val()).Msg("redis del failed")
			return
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis scan failed")
	}
}
