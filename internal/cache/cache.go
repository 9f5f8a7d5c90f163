// Package cache memoizes analysis results keyed by a content hash of the
// input records and detection parameters. A small in-process LRU tier sits
// in front of an optional shared Redis tier.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/henrilopes1/log-analyzer/internal/detect"
	"github.com/henrilopes1/log-analyzer/internal/schema"
)

// Config holds cache sizing and lifetime settings.
type Config struct {
	TTL        time.Duration `yaml:"ttl"`
	MemorySize int           `yaml:"memory_size"`
	Redis      RedisConfig   `yaml:"redis"`
}

// TwoTier checks a process-local LRU first and falls back to Redis.
// Memory hits never reach the network; Redis hits are promoted into
// the memory tier.
type TwoTier struct {
	memory *expirable.LRU[string, []byte]
	redis  RedisClient
	logger *slog.Logger
}

// NewTwoTier builds the cache. redis may be nil, in which case only the
// memory tier is used.
func NewTwoTier(cfg Config, redisClient RedisClient, logger *slog.Logger) *TwoTier {
	if cfg.MemorySize <= 0 {
		cfg.MemorySize = 128
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TwoTier{
		memory: expirable.NewLRU[string, []byte](cfg.MemorySize, nil, cfg.TTL),
		redis:  redisClient,
		logger: logger,
	}
}

// Get returns the cached analysis result for key, or ErrMiss.
func (c *TwoTier) Get(ctx context.Context, key string) (*detect.Result, error) {
	if data, ok := c.memory.Get(key); ok {
		return decodeResult(data)
	}

	if c.redis == nil {
		return nil, ErrMiss
	}

	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, ErrMiss
		}
		// A broken Redis tier degrades to a miss.
		c.logger.Warn("redis cache read failed", "error", err)
		return nil, ErrMiss
	}

	c.memory.Add(key, data)
	return decodeResult(data)
}

// Put stores an analysis result in both tiers.
func (c *TwoTier) Put(ctx context.Context, key string, result *detect.Result, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache: encode result: %w", err)
	}

	c.memory.Add(key, data)

	if c.redis != nil {
		if err := c.redis.Set(ctx, key, data, ttl); err != nil {
			c.logger.Warn("redis cache write failed", "error", err)
		}
	}
	return nil
}

// Close releases the Redis connection if one is attached.
func (c *TwoTier) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

func decodeResult(data []byte) (*detect.Result, error) {
	var result detect.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("cache: decode result: %w", err)
	}
	return &result, nil
}

// Key derives a deterministic cache key from the normalized records and the
// detection parameters. The same inputs always hash to the same key, so a
// repeated analysis of unchanged logs is served from cache.
func Key(records []schema.Record, params detect.Params) (string, error) {
	h := sha256.New()

	enc := json.NewEncoder(h)
	if err := enc.Encode(params); err != nil {
		return "", fmt.Errorf("cache: hash params: %w", err)
	}
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return "", fmt.Errorf("cache: hash record: %w", err)
		}
	}

	return "analysis:" + hex.EncodeToString(h.Sum(nil)), nil
}
