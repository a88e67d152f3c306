package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client wraps Redis for the two caching concerns of the service: session
// token expiry and catalog read caching.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// PutSession stores a session token with TTL
func (c *Client) PutSession(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, sessionKey(token), userID, ttl).Err()
}

// SessionUserID resolves a token to its user id. Returns ok=false for an
// unknown or expired token.
func (c *Client) SessionUserID(ctx context.Context, token string) (int64, bool, error) {
	id, err := c.rdb.Get(ctx, sessionKey(token)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// TouchSession extends a session's TTL. Returns false if the token is gone.
func (c *Client) TouchSession(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	return c.rdb.Expire(ctx, sessionKey(token), ttl).Result()
}

// DeleteSession removes a session token
func (c *Client) DeleteSession(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, sessionKey(token)).Err()
}

// CacheSet stores a JSON-encoded value under a catalog cache key
func (c *Client) CacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return c.rdb.Set(ctx, cacheKey(key), data, ttl).Err()
}

// CacheGet loads a JSON-encoded value from a catalog cache key. Returns
// false on a miss.
func (c *Client) CacheGet(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, cacheKey(key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

// CacheInvalidate drops catalog cache keys matching the pattern
func (c *Client) CacheInvalidate(ctx context.Context, pattern string) error {
	keys, err := c.rdb.Keys(ctx, cacheKey(pattern)).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func cacheKey(key string) string {
	return fmt.Sprintf("catalog:%s", key)
}
