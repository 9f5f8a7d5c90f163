package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/henrilopes1/log-analyzer/internal/config"
)

// Archiver uploads exported reports to an S3-compatible bucket.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewArchiver builds an S3 archiver from configuration. Static credentials
// take precedence; otherwise the default AWS credential chain applies.
func NewArchiver(ctx context.Context, cfg config.S3Config, logger *slog.Logger) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: s3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("storage: s3 region is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	logger.Info("s3 archiver initialized", "bucket", cfg.Bucket, "region", cfg.Region)

	return &Archiver{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// ArchiveReport uploads a report under a date-partitioned key and returns
// the object key.
func (a *Archiver) ArchiveReport(ctx context.Context, name string, data []byte, contentType string, now time.Time) (string, error) {
	key := path.Join(a.prefix, now.Format("2006/01/02"), name)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("storage: upload %s: %w", key, err)
	}

	a.logger.Info("archived report", "key", key, "bytes", len(data))
	return key, nil
}
