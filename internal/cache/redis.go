package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss signals that a key is absent from a cache tier.
var ErrMiss = errors.New("cache: miss")

// RedisClient is the small surface the cache needs from Redis. The
// production wrapper and the in-memory mock both satisfy it.
type RedisClient interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (int, error)
	Close() error
}

// RedisConfig holds connection settings for the shared cache tier.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
	TLSEnabled   bool          `yaml:"tls_enabled"`
}

// GoRedisClient wraps the go-redis client to implement the RedisClient interface.
type GoRedisClient struct {
	client *redis.Client
}

// NewGoRedisClient creates a new Redis client from configuration.
func NewGoRedisClient(cfg RedisConfig) (*GoRedisClient, error) {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	}

	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &GoRedisClient{client: client}, nil
}

// Set stores a value with TTL.
func (g *GoRedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.client.Set(ctx, key, value, ttl).Err()
}

// Get retrieves a value.
func (g *GoRedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := g.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return []byte(val), nil
}

// Delete removes one or more keys.
func (g *GoRedisClient) Delete(ctx context.Context, keys ...string) error {
	return g.client.Del(ctx, keys...).Err()
}

// Exists checks if keys exist.
func (g *GoRedisClient) Exists(ctx context.Context, keys ...string) (int, error) {
	count, err := g.client.Exists(ctx, keys...).Result()
	return int(count), err
}

// Close closes the Redis connection.
func (g *GoRedisClient) Close() error {
	return g.client.Close()
}

// MockRedisClient is an in-memory implementation for testing and for
// running without a Redis deployment.
type MockRedisClient struct {
	data   map[string][]byte
	expiry map[string]time.Time
	mu     sync.RWMutex
	closed bool
}

// NewMockRedisClient creates a new mock Redis client.
func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		data:   make(map[string][]byte),
		expiry: make(map[string]time.Time),
	}
}

// Set stores a value with TTL.
func (m *MockRedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("client closed")
	}

	m.data[key] = value
	if ttl > 0 {
		m.expiry[key] = time.Now().Add(ttl)
	}
	return nil
}

// Get retrieves a value.
func (m *MockRedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, errors.New("client closed")
	}

	if exp, ok := m.expiry[key]; ok && time.Now().After(exp) {
		return nil, ErrMiss
	}

	val, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return val, nil
}

// Delete removes keys.
func (m *MockRedisClient) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("client closed")
	}

	for _, key := range keys {
		delete(m.data, key)
		delete(m.expiry, key)
	}
	return nil
}

// Exists checks if keys exist.
func (m *MockRedisClient) Exists(ctx context.Context, keys ...string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, errors.New("client closed")
	}

	count := 0
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			count++
		}
	}
	return count, nil
}

// Close marks the client as closed.
func (m *MockRedisClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
