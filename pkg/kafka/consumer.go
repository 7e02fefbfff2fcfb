package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultMaxAttempts is how often a handler is tried before its message is
// dead-lettered and committed.
const DefaultMaxAttempts = 3

// Handler processes one decoded event. A returned error triggers a retry.
type Handler func(ctx context.Context, event *Event) error

type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	MinBytes int
	MaxBytes int
	// MaxAttempts per message; 0 means DefaultMaxAttempts.
	MaxAttempts int
	// RetryBackoff scales linearly: attempt n waits n*RetryBackoff.
	RetryBackoff time.Duration
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a consumer group's topics and feeds decoded events to a
// Handler with at-least-once delivery: a message is committed once handled,
// dead-lettered or found undecodable, never before.
type Consumer struct {
	reader      messageReader
	handler     Handler
	dlq         *DLQProducer
	logger      *slog.Logger
	group       string
	maxAttempts int
	backoff     time.Duration

	closeOnce sync.Once
	closeErr  error
}

func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
	})
	return newConsumer(r, cfg, handler, logger)
}

func newConsumer(r messageReader, cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	c := &Consumer{
		reader:      r,
		handler:     handler,
		logger:      logger.With(slog.String("group", cfg.GroupID)),
		group:       cfg.GroupID,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.backoff <= 0 {
		c.backoff = 100 * time.Millisecond
	}
	return c
}

// WithDLQ sends messages that exhaust their attempts, or cannot be decoded,
// to dlq before committing them.
func (c *Consumer) WithDLQ(dlq *DLQProducer) *Consumer {
	c.dlq = dlq
	return c
}

// Start consumes until ctx is cancelled or the reader is closed; both end
// it with a nil error.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.logger.Info("consumer stopped")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		switch {
		case err == nil:
			if !c.process(ctx, msg) {
				return nil
			}
		case ctx.Err() != nil, errors.Is(err, io.EOF):
			return nil
		default:
			c.logger.Error("fetch message failed", slog.String("error", err.Error()))
			if sleep(ctx, c.backoff) != nil {
				return nil
			}
		}
	}
}

// process returns false when ctx ended between attempts. The message is then
// left uncommitted so the group redelivers it.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	receivedTotal.WithLabelValues(msg.Topic, c.group).Inc()
	start := time.Now()
	defer func() {
		handleSeconds.WithLabelValues(msg.Topic, c.group).Observe(time.Since(start).Seconds())
	}()
	log := c.logger.With(
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		log.Error("undecodable message", slog.String("error", err.Error()))
		c.settle(ctx, msg, outcomeUndecodable, err)
		return true
	}
	log = log.With(
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
	)

	interrupted, err := c.attempt(ctx, extractTraceContext(ctx, &msg), event, log)
	switch {
	case interrupted:
		return false
	case err != nil:
		log.Error("giving up on message", slog.Int("attempts", c.maxAttempts), slog.String("error", err.Error()))
		c.settle(ctx, msg, outcomeFailed, err)
	default:
		c.settle(ctx, msg, outcomeHandled, nil)
	}
	return true
}

// attempt runs the handler up to maxAttempts times. handlerCtx carries the
// producer's trace; ctx governs the waits in between.
func (c *Consumer) attempt(ctx, handlerCtx context.Context, event *Event, log *slog.Logger) (interrupted bool, err error) {
	for n := 1; ; n++ {
		if err = c.handler(handlerCtx, event); err == nil {
			return false, nil
		}
		log.Warn("handler failed", slog.Int("attempt", n), slog.String("error", err.Error()))
		if n == c.maxAttempts {
			return false, err
		}
		if sleep(ctx, time.Duration(n)*c.backoff) != nil {
			return true, err
		}
	}
}

// settle records the outcome, dead-letters failures and commits.
func (c *Consumer) settle(ctx context.Context, msg kafka.Message, outcome string, cause error) {
	consumedTotal.WithLabelValues(msg.Topic, c.group, outcome).Inc()
	if cause != nil && c.dlq != nil {
		if err := c.dlq.Publish(ctx, msg, cause, c.group); err == nil {
			consumedTotal.WithLabelValues(msg.Topic, c.group, outcomeDeadLettered).Inc()
		}
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("commit failed",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close is safe to call more than once.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.reader.Close() })
	return c.closeErr
}
