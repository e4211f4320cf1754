package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Poll clients hit the audit read path every few seconds; a short TTL keeps
// them off Postgres without making progress look stale. Channel lookups can
// live much longer — the cache row itself only changes on re-sync.
const (
	AuditCacheTTL   = 3 * time.Second
	ChannelCacheTTL = 15 * time.Minute
)

// CacheService provides a Redis cache-aside layer for audit poll reads and
// channel lookups.
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

// GetAudit retrieves a cached audit response. Returns nil if not cached or
// cache is disabled.
func (c *CacheService) GetAudit(ctx context.Context, auditID string) ([]byte, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, auditKey(auditID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// SetAudit stores an audit response in cache.
func (c *CacheService) SetAudit(ctx context.Context, auditID string, data interface{}) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, auditKey(auditID), b, AuditCacheTTL).Err()
}

// InvalidateAudit removes an audit from cache (called on delete).
func (c *CacheService) InvalidateAudit(ctx context.Context, auditID string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, auditKey(auditID)).Err()
}

// GetChannel retrieves a cached channel response. Returns nil if not cached.
func (c *CacheService) GetChannel(ctx context.Context, channelID string) ([]byte, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, channelKey(channelID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// SetChannel stores a channel response in cache.
func (c *CacheService) SetChannel(ctx context.Context, channelID string, data interface{}) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, channelKey(channelID), b, ChannelCacheTTL).Err()
}

// InvalidateChannel removes a channel from cache (called after a re-sync).
func (c *CacheService) InvalidateChannel(ctx context.Context, channelID string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, channelKey(channelID)).Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func auditKey(auditID string) string {
	return fmt.Sprintf("audit:%s", auditID)
}

func channelKey(channelID string) string {
	return fmt.Sprintf("channel:%s", channelID)
}
