package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	return json.Unmarshal([]byte(val), dest)
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	return n > 0, err
}

// Allow counts one attempt against key and reports whether it stays under
// limit within the window. Redis trouble allows the attempt: throttling is a
// convenience and must not take logins down with the cache. Contrast with
// the token denylist, which fails closed.
func (c *Cache) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("rate limit check failed, allowing", "key", key, "error", err)
		return true
	}
	return incr.Val() <= int64(limit)
}

const otpPrefix = "otp:verify:"

// SetOTP stores a verification code for the user, replacing any pending one.
func (c *Cache) SetOTP(ctx context.Context, userID, code string, ttl time.Duration) error {
	return c.client.Set(ctx, otpPrefix+userID, code, ttl).Err()
}

// ConsumeOTP checks the code and deletes it on match. A code verifies at
// most once; a wrong guess leaves the stored code intact.
func (c *Cache) ConsumeOTP(ctx context.Context, userID, code string) (bool, error) {
	key := otpPrefix + userID
	stored, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("otp lookup: %w", err)
	}
	if stored != code {
		return false, nil
	}
	c.client.Del(ctx, key)
	return true, nil
}
