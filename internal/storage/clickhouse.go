// Package storage persists analysis results to ClickHouse and archives
// exported reports to S3-compatible object storage. Both sinks are
// optional; the analyzer runs fully without them.
package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/henrilopes1/log-analyzer/internal/config"
	"github.com/henrilopes1/log-analyzer/internal/detect"
)

// ClickHouseClient wraps the ClickHouse connection used as a results sink.
type ClickHouseClient struct {
	conn   driver.Conn
	logger *slog.Logger
}

// NewClickHouseClient connects to ClickHouse and verifies the connection.
func NewClickHouseClient(cfg config.ClickHouseConfig, logger *slog.Logger) (*ClickHouseClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := &clickhouse.Options{
		Addr: cfg.Hosts,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionZSTD,
		},
		DialTimeout:     cfg.DialTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}

	if cfg.TLSEnabled {
		opts.TLS = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("storage: ping clickhouse: %w", err)
	}

	return &ClickHouseClient{conn: conn, logger: logger}, nil
}

// Migrate creates the result tables if they do not exist.
func (c *ClickHouseClient) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			analysis_id UUID,
			generated_at DateTime64(3, 'UTC'),
			total_records UInt64,
			firewall_records UInt64,
			auth_records UInt64,
			dropped_records UInt64,
			suspect_count UInt32
		) ENGINE = MergeTree()
		ORDER BY (generated_at, analysis_id)`,
		`CREATE TABLE IF NOT EXISTS suspects (
			analysis_id UUID,
			generated_at DateTime64(3, 'UTC'),
			address String,
			alert_types Array(String),
			access_count UInt64,
			risk_tier LowCardinality(String),
			attempt_count UInt32,
			unique_port_count UInt32
		) ENGINE = MergeTree()
		ORDER BY (generated_at, address)`,
	}

	for _, stmt := range statements {
		if err := c.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("storage: migrate: %w", err)
		}
	}
	return nil
}

// StoreResult inserts one analysis run and its suspect profiles.
func (c *ClickHouseClient) StoreResult(ctx context.Context, result *detect.Result) error {
	if err := c.conn.Exec(ctx,
		`INSERT INTO analysis_runs (analysis_id, generated_at, total_records, firewall_records, auth_records, dropped_records, suspect_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.AnalysisID,
		result.GeneratedAt,
		uint64(result.Stats.Total),
		uint64(result.Stats.Firewall),
		uint64(result.Stats.Auth),
		uint64(result.Stats.Dropped),
		uint32(len(result.Suspects)),
	); err != nil {
		return fmt.Errorf("storage: insert run: %w", err)
	}

	if len(result.Suspects) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx,
		`INSERT INTO suspects (analysis_id, generated_at, address, alert_types, access_count, risk_tier, attempt_count, unique_port_count)`)
	if err != nil {
		return fmt.Errorf("storage: prepare batch: %w", err)
	}

	for i := range result.Suspects {
		s := &result.Suspects[i]

		alertTypes := make([]string, 0, 2)
		for _, at := range s.AlertTypes() {
			alertTypes = append(alertTypes, string(at))
		}

		var attempts, ports uint32
		if s.BruteForce != nil {
			attempts = uint32(s.BruteForce.AttemptCount)
		}
		if s.PortScan != nil {
			ports = uint32(s.PortScan.UniquePortCount)
		}

		if err := batch.Append(
			result.AnalysisID,
			result.GeneratedAt,
			s.Address,
			alertTypes,
			uint64(s.AccessCount),
			string(s.RiskTier),
			attempts,
			ports,
		); err != nil {
			return fmt.Errorf("storage: append suspect: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("storage: send batch: %w", err)
	}

	c.logger.Debug("stored analysis result",
		"analysis_id", result.AnalysisID,
		"suspects", len(result.Suspects),
	)
	return nil
}

// RecentSuspects returns addresses flagged in runs within the lookback
// window, most recent first, deduplicated by address.
func (c *ClickHouseClient) RecentSuspects(ctx context.Context, lookback time.Duration, limit int) ([]string, error) {
	rows, err := c.conn.Query(ctx,
		`SELECT DISTINCT address FROM suspects
		 WHERE generated_at >= now() - toIntervalSecond(?)
		 ORDER BY address
		 LIMIT ?`,
		int64(lookback.Seconds()), limit)
	if err != nil {
		return nil, fmt.Errorf("storage: query recent suspects: %w", err)
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("storage: scan suspect: %w", err)
		}
		addresses = append(addresses, addr)
	}
	return addresses, rows.Err()
}

// Ping checks if the connection is alive.
func (c *ClickHouseClient) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes the ClickHouse connection.
func (c *ClickHouseClient) Close() error {
	return c.conn.Close()
}
