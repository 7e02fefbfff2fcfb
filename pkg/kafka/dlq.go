package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// DLQTopicPrefix namespaces the storefront's dead-letter topics.
const DLQTopicPrefix = "storefront.dlq"

// Header keys attached to dead-lettered messages.
const (
	HeaderDLQTopic     = "dlq.original_topic"
	HeaderDLQPartition = "dlq.original_partition"
	HeaderDLQOffset    = "dlq.original_offset"
	HeaderDLQGroup     = "dlq.consumer_group"
	HeaderDLQError     = "dlq.error"
	HeaderDLQFailedAt  = "dlq.failed_at"
)

// DLQTopic returns the dead-letter topic for topic.
func DLQTopic(topic string) string {
	return DLQTopicPrefix + "." + topic
}

// DLQProducer parks messages a consumer gave up on, keeping the original
// key, value and headers so they can be replayed.
type DLQProducer struct {
	writer messageWriter
	logger *slog.Logger
	now    func() time.Time
}

func NewDLQProducer(brokers []string, logger *slog.Logger) *DLQProducer {
	return &DLQProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			BatchSize:              1,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Publish copies msg onto its dead-letter topic, recording where it came
// from and why it failed.
func (d *DLQProducer) Publish(ctx context.Context, msg kafka.Message, cause error, group string) error {
	out := kafka.Message{
		Topic:   DLQTopic(msg.Topic),
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: append(append([]kafka.Header(nil), msg.Headers...), d.headers(msg, cause, group)...),
	}

	attrs := []any{
		slog.String("dlq_topic", out.Topic),
		slog.String("original_topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	}
	if err := d.writer.WriteMessages(ctx, out); err != nil {
		d.logger.ErrorContext(ctx, "dead-letter publish failed", append(attrs, slog.String("error", err.Error()))...)
		return fmt.Errorf("publish to DLQ %s: %w", out.Topic, err)
	}
	d.logger.WarnContext(ctx, "message dead-lettered", append(attrs, slog.String("consumer_group", group))...)
	return nil
}

func (d *DLQProducer) headers(msg kafka.Message, cause error, group string) []kafka.Header {
	now := time.Now
	if d.now != nil {
		now = d.now
	}
	h := []kafka.Header{
		{Key: HeaderDLQTopic, Value: []byte(msg.Topic)},
		{Key: HeaderDLQPartition, Value: []byte(strconv.Itoa(msg.Partition))},
		{Key: HeaderDLQOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		{Key: HeaderDLQGroup, Value: []byte(group)},
		{Key: HeaderDLQFailedAt, Value: []byte(now().UTC().Format(time.RFC3339))},
	}
	if cause != nil {
		h = append(h, kafka.Header{Key: HeaderDLQError, Value: []byte(cause.Error())})
	}
	return h
}

func (d *DLQProducer) Close() error {
	return d.writer.Close()
}
