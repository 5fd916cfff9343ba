package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/donorkit/styleforge/internal/config"
	"github.com/donorkit/styleforge/internal/domain"
)

// Cache provides Redis caching functionality
type Cache struct {
	client *redis.Client
}

// Key prefixes for different cache types
const (
	PrefixAnalysis  = "analysis:"
	PrefixRateLimit = "ratelimit:"
)

// Default TTLs
const (
	DefaultAnalysisTTL = 24 * time.Hour
	RateLimitWindow    = 15 * time.Minute
)

// New creates a new Redis cache client
func New(cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// NewFromClient wraps an existing client
func NewFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Health checks Redis connectivity
func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Client returns the underlying Redis client for advanced operations
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Analysis caching

// GetAnalysis retrieves a cached analysis by normalized URL. A miss returns
// nil without error.
func (c *Cache) GetAnalysis(ctx context.Context, url string) (*domain.StyleAnalysis, error) {
	data, err := c.client.Get(ctx, analysisKey(url)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var analysis domain.StyleAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("decoding cached analysis: %w", err)
	}

	return &analysis, nil
}

// SetAnalysis caches an analysis. A zero ttl uses DefaultAnalysisTTL.
func (c *Cache) SetAnalysis(ctx context.Context, url string, analysis *domain.StyleAnalysis, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultAnalysisTTL
	}
	data, err := json.Marshal(analysis)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, analysisKey(url), data, ttl).Err()
}

// InvalidateAnalysis removes a cached analysis
func (c *Cache) InvalidateAnalysis(ctx context.Context, url string) error {
	return c.client.Del(ctx, analysisKey(url)).Err()
}

func analysisKey(url string) string {
	return PrefixAnalysis + domain.URLHash(url)
}

// Rate limiting

// CheckRateLimit increments the fixed-window counter for key and reports
// whether it is still within limit. The window starts at the first hit.
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	if window <= 0 {
		window = RateLimitWindow
	}
	fullKey := PrefixRateLimit + key

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, err
	}

	count := int(incr.Val())
	return count <= limit, count, nil
}

// GetRateLimitRemaining returns remaining rate limit
func (c *Cache) GetRateLimitRemaining(ctx context.Context, key string, limit int) (int, error) {
	fullKey := PrefixRateLimit + key
	count, err := c.client.Get(ctx, fullKey).Int()
	if err != nil {
		if err == redis.Nil {
			return limit, nil
		}
		return 0, err
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

// RateLimitReset returns how long until the window for key ends
func (c *Cache) RateLimitReset(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := c.client.TTL(ctx, PrefixRateLimit+key).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Generic caching methods

// Get retrieves a value from cache
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Set stores a value in cache
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a value from cache
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// DeletePattern removes all keys matching a pattern
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}

	return nil
}
