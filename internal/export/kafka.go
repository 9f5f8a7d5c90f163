package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/henrilopes1/log-analyzer/internal/config"
	"github.com/henrilopes1/log-analyzer/internal/detect"
)

// ErrPublisherClosed is returned by publish calls after Close.
var ErrPublisherClosed = fmt.Errorf("export: publisher is closed")

// Publisher sends suspect findings to a Kafka topic, one message per
// suspect keyed by source address so a partition sees an address's
// findings in order.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
	closed atomic.Bool

	published atomic.Int64
	errors    atomic.Int64
}

// NewPublisher creates a findings publisher from configuration.
func NewPublisher(cfg config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("export: at least one kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("export: kafka topic is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxAttempts:  cfg.MaxRetries,
		RequiredAcks: kafka.RequireOne,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(msg, args...), "component", "kafka-writer")
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...), "component", "kafka-writer")
		}),
	}

	logger.Info("findings publisher initialized",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
	)

	return &Publisher{writer: writer, logger: logger}, nil
}

// findingEnvelope is the wire shape of one published suspect.
type findingEnvelope struct {
	AnalysisID  string                 `json:"analysis_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	AlertTypes  []detect.AlertType     `json:"alert_types"`
	Suspect     *detect.SuspectProfile `json:"suspect"`
}

// PublishFindings sends every suspect profile in the result.
func (p *Publisher) PublishFindings(ctx context.Context, result *detect.Result) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}
	if len(result.Suspects) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(result.Suspects))
	for i := range result.Suspects {
		suspect := &result.Suspects[i]
		value, err := json.Marshal(findingEnvelope{
			AnalysisID:  result.AnalysisID.String(),
			GeneratedAt: result.GeneratedAt,
			AlertTypes:  suspect.AlertTypes(),
			Suspect:     suspect,
		})
		if err != nil {
			return fmt.Errorf("export: marshal finding: %w", err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(suspect.Address),
			Value: value,
			Time:  time.Now(),
		})
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.errors.Add(1)
		return fmt.Errorf("export: publish findings: %w", err)
	}

	p.published.Add(int64(len(messages)))
	p.logger.Debug("published findings",
		"count", len(messages),
		"analysis_id", result.AnalysisID,
	)
	return nil
}

// Published returns the number of findings sent so far.
func (p *Publisher) Published() int64 {
	return p.published.Load()
}

// Close flushes buffered messages and shuts the writer down.
func (p *Publisher) Close() error {
	if p.closed.Swap(true) {
		return nil
	}

	p.logger.Info("closing findings publisher", "published", p.published.Load())

	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("export: close publisher: %w", err)
	}
	return nil
}
