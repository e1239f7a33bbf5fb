package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler processes one decoded message payload.
type Handler func(ctx context.Context, payload []byte) error

// Consumer wraps a kafka-go Reader for the storage-events topic.
type Consumer struct {
	reader        *kafkago.Reader
	logger        *zap.Logger
	commitTimeout time.Duration
}

type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	GroupID       string
	MinBytes      int
	MaxBytes      int
	CommitTimeout time.Duration
}

// NewConsumer constructs a Consumer from the given configuration.
func NewConsumer(cfg ConsumerConfig, logger *zap.Logger) *Consumer {
	commitTimeout := cfg.CommitTimeout
	if commitTimeout == 0 {
		commitTimeout = 10 * time.Second
	}
	return &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          cfg.Topic,
			GroupID:        cfg.GroupID,
			MinBytes:       cfg.MinBytes,
			MaxBytes:       cfg.MaxBytes,
			CommitInterval: 0, // explicit commits
			StartOffset:    kafkago.LastOffset,
		}),
		logger:        logger,
		commitTimeout: commitTimeout,
	}
}

// Run fetches messages and hands them to the handler until ctx is done.
// Offsets are committed whether or not the handler succeeded: each message is
// one independent pipeline run, and a failed run is reported through logs and
// metrics rather than redelivered forever.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if err := handle(ctx, msg.Value); err != nil {
			c.logger.Error("event handler failed",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}

		commitCtx, cancel := context.WithTimeout(ctx, c.commitTimeout)
		err = c.reader.CommitMessages(commitCtx, msg)
		cancel()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
