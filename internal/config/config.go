// Package config handles configuration loading for the log analyzer.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/henrilopes1/log-analyzer/internal/detect"
)

// Config holds the complete application configuration.
type Config struct {
	Detection detect.Params `yaml:"detection"`
	Geo       GeoConfig     `yaml:"geo"`
	Cache     CacheConfig   `yaml:"cache"`
	Export    ExportConfig  `yaml:"export"`
	Kafka     KafkaConfig   `yaml:"kafka"`
	Storage   StorageConfig `yaml:"storage"`
	Server    ServerConfig  `yaml:"server"`
	Auth      AuthConfig    `yaml:"auth"`
	Logging   LoggingConfig `yaml:"logging"`
	Report    ReportConfig  `yaml:"report"`
}

// GeoConfig holds geolocation lookup settings.
type GeoConfig struct {
	Enabled           bool          `yaml:"enabled"`
	APIURL            string        `yaml:"api_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CacheSize         int           `yaml:"cache_size"`
	HighRiskCountries []string      `yaml:"high_risk_countries"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	TTL        time.Duration `yaml:"ttl"`
	MemorySize int           `yaml:"memory_size"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection settings for the distributed cache
// tier.
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
	TLSEnabled   bool          `yaml:"tls_enabled"`
}

// ExportConfig holds report export settings.
type ExportConfig struct {
	Directory     string   `yaml:"directory"`
	Filename      string   `yaml:"filename"`
	AutoTimestamp bool     `yaml:"auto_timestamp"`
	S3            S3Config `yaml:"s3"`
}

// S3Config holds S3 archive upload settings.
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// KafkaConfig holds findings publisher settings.
type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxRetries   int           `yaml:"max_retries"`
}

// StorageConfig holds analysis result storage settings.
type StorageConfig struct {
	Enabled    bool             `yaml:"enabled"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Hosts           []string      `yaml:"hosts"`
	Database        string        `yaml:"database"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	TLSEnabled      bool          `yaml:"tls_enabled"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Environment    string        `yaml:"environment"`
	HTTPPort       int           `yaml:"http_port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxPayloadSize int           `yaml:"max_payload_size"`
	MaxBatchSize   int           `yaml:"max_batch_size"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	Enabled      bool     `yaml:"enabled"`
	APIKeyHeader string   `yaml:"api_key_header"`
	APIKeys      []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ReportConfig holds console report settings.
type ReportConfig struct {
	TopN int `yaml:"top_n"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Detection: detect.DefaultParams(),
		Geo: GeoConfig{
			Enabled:           true,
			APIURL:            "http://ip-api.com/json",
			Timeout:           5 * time.Second,
			RequestsPerSecond: 0.67, // ~40 requests/minute, under the public API ceiling
			Burst:             1,
			CacheSize:         4096,
			HighRiskCountries: []string{"CN", "RU", "KP", "IR", "BY"},
		},
		Cache: CacheConfig{
			Enabled:    false,
			TTL:        time.Hour,
			MemorySize: 1024,
			Redis: RedisConfig{
				Enabled:      false,
				Addr:         "localhost:6379",
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
				PoolSize:     10,
			},
		},
		Export: ExportConfig{
			Directory:     "exports",
			Filename:      "suspect_ips.csv",
			AutoTimestamp: true,
			S3: S3Config{
				Enabled: false,
				Region:  "us-east-1",
				Prefix:  "reports/",
			},
		},
		Kafka: KafkaConfig{
			Enabled:      false,
			Brokers:      []string{"localhost:9092"},
			Topic:        "log-analyzer.findings",
			BatchSize:    100,
			BatchTimeout: time.Second,
			WriteTimeout: 10 * time.Second,
			MaxRetries:   3,
		},
		Storage: StorageConfig{
			Enabled: false,
			ClickHouse: ClickHouseConfig{
				Hosts:           []string{"localhost:9000"},
				Database:        "loganalyzer",
				Username:        "default",
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: time.Hour,
				DialTimeout:     10 * time.Second,
			},
		},
		Server: ServerConfig{
			Environment:    "development",
			HTTPPort:       8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxPayloadSize: 10 * 1024 * 1024, // 10MB
			MaxBatchSize:   100000,
		},
		Auth: AuthConfig{
			Enabled:      false,
			APIKeyHeader: "X-API-Key",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Report: ReportConfig{
			TopN: 10,
		},
	}
}

// Load loads configuration from a file or returns defaults. The path comes
// from LOG_ANALYZER_CONFIG or defaults to configs/config.yaml; a missing
// file is not an error.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("LOG_ANALYZER_CONFIG"))
}

// LoadFile loads configuration from the given path, falling back to the
// default location and then to defaults when the file does not exist.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if env := os.Getenv("LOG_ANALYZER_ENV"); env != "" {
		c.Server.Environment = env
	}

	if port := os.Getenv("LOG_ANALYZER_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.HTTPPort = p
		}
	}

	if level := os.Getenv("LOG_ANALYZER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if apiKey := os.Getenv("LOG_ANALYZER_API_KEY"); apiKey != "" {
		c.Auth.APIKeys = append(c.Auth.APIKeys, apiKey)
		c.Auth.Enabled = true
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Cache.Redis.Addr = addr
		c.Cache.Redis.Enabled = true
		c.Cache.Enabled = true
	}

	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		c.Cache.Redis.Password = pass
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitAndTrim(brokers, ",")
		c.Kafka.Enabled = true
	}

	if host := os.Getenv("CLICKHOUSE_HOST"); host != "" {
		c.Storage.ClickHouse.Hosts = []string{host}
		c.Storage.Enabled = true
	}

	if pass := os.Getenv("CLICKHOUSE_PASSWORD"); pass != "" {
		c.Storage.ClickHouse.Password = pass
	}
}

// splitAndTrim splits a string by separator and trims whitespace from each
// part, dropping empties.
func splitAndTrim(s, sep string) []string {
	var parts []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// Validate validates the configuration. Detection parameter defects are
// rejected here, at load time, with a descriptive error.
func (c *Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.Server.HTTPPort)
	}

	if c.Server.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive")
	}

	if c.Geo.Enabled {
		if c.Geo.Timeout <= 0 {
			return fmt.Errorf("geo timeout must be positive")
		}
		if c.Geo.RequestsPerSecond <= 0 {
			return fmt.Errorf("geo requests_per_second must be positive")
		}
	}

	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic required when kafka is enabled")
		}
	}

	if c.Report.TopN <= 0 {
		return fmt.Errorf("report top_n must be positive")
	}

	return nil
}
