// Package kafka feeds place upsert events from a Kafka topic into bulk ingestion.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/domain/place"
	"github.com/kailas-cloud/poisearch/internal/usecase/ingest"
)

// Defaults for Config zero values.
const (
	DefaultBatchSize  = 100
	DefaultFlushAfter = time.Second
	DefaultRetryDelay = 5 * time.Second
)

// Config describes the topic subscription.
type Config struct {
	Brokers    []string
	Topic      string
	GroupID    string
	BatchSize  int
	FlushAfter time.Duration
	RetryDelay time.Duration
}

// Reader is the subset of *kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Ingester loads one micro-batch.
type Ingester interface {
	BulkIngest(ctx context.Context, req ingest.Request) (ingest.Response, error)
}

// NewReader creates a consumer-group reader with manual commits.
func NewReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// Consumer micro-batches place events into bulk ingestion. Offsets are
// committed only after a batch has been ingested.
type Consumer struct {
	reader     Reader
	ingester   Ingester
	batchSize  int
	flushAfter time.Duration
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewConsumer creates a consumer. batchSize must not exceed the ingester's batch limit.
func NewConsumer(r Reader, ing Ingester, cfg Config, logger *zap.Logger) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushAfter <= 0 {
		cfg.FlushAfter = DefaultFlushAfter
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Consumer{
		reader:     r,
		ingester:   ing,
		batchSize:  cfg.BatchSize,
		flushAfter: cfg.FlushAfter,
		retryDelay: cfg.RetryDelay,
		logger:     logger.With(zap.String("topic", cfg.Topic)),
	}
}

// Run consumes until ctx is canceled. It returns nil on cancellation and the
// reader's error otherwise.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Kafka consumer started", zap.Int("batch_size", c.batchSize))
	for {
		msgs, fetchErr := c.collect(ctx)
		if len(msgs) > 0 {
			if err := c.flush(ctx, msgs); err != nil {
				return stopErr(ctx, err)
			}
		}
		if fetchErr != nil {
			return stopErr(ctx, fmt.Errorf("fetch message: %w", fetchErr))
		}
	}
}

func stopErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// collect gathers up to batchSize messages, or fewer once flushAfter has
// passed since the first one arrived.
func (c *Consumer) collect(ctx context.Context) ([]kafka.Message, error) {
	var (
		msgs     []kafka.Message
		deadline time.Time
	)
	for len(msgs) < c.batchSize {
		fctx, cancel := ctx, context.CancelFunc(func() {})
		if len(msgs) > 0 {
			fctx, cancel = context.WithDeadline(ctx, deadline)
		}
		msg, err := c.reader.FetchMessage(fctx)
		cancel()
		if err != nil {
			if len(msgs) > 0 && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return msgs, nil
			}
			return msgs, err
		}
		if len(msgs) == 0 {
			deadline = time.Now().Add(c.flushAfter)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// flush ingests the batch, retrying while ingestion reports a batch-level
// failure, then commits. Upserts are idempotent so a retry is safe.
func (c *Consumer) flush(ctx context.Context, msgs []kafka.Message) error {
	req := ingest.Request{Places: make([]place.Place, 0, len(msgs))}
	for _, m := range msgs {
		var p place.Place
		if err := json.Unmarshal(m.Value, &p); err != nil {
			c.logger.Warn("Skipping undecodable place event",
				zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.Error(err))
			continue
		}
		req.Places = append(req.Places, p)
	}

	for len(req.Places) > 0 {
		resp, err := c.ingester.BulkIngest(ctx, req)
		if err == nil {
			c.logger.Info("Kafka batch ingested",
				zap.String("batch_id", resp.BatchID),
				zap.Int("success_count", resp.SuccessCount),
				zap.Int("error_count", resp.ErrorCount),
			)
			if resp.ErrorCount > 0 {
				c.logger.Warn("Kafka batch had rejected records", zap.Strings("errors", resp.Errors))
			}
			break
		}
		c.logger.Warn("Kafka batch failed, retrying", zap.Error(err), zap.Duration("retry_in", c.retryDelay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}

	if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("commit offsets: %w", err)
	}
	return nil
}
