package event

import (
	"context"
	"log/slog"
	"time"

	pkgkafka "github.com/sarthakastic/storefront/pkg/kafka"
)

// Catalog change topics published by the product service.
var (
	TopicProductCreated = pkgkafka.Topic(pkgkafka.CatalogPrefix, "product", "created")
	TopicProductUpdated = pkgkafka.Topic(pkgkafka.CatalogPrefix, "product", "updated")
	TopicProductDeleted = pkgkafka.Topic(pkgkafka.CatalogPrefix, "product", "deleted")
)

// CatalogTopics lists the topics the catalog consumer subscribes to.
func CatalogTopics() []string {
	return []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted}
}

// ProductEventData is the subset of a product event payload the storefront
// reads.
type ProductEventData struct {
	ID any `json:"id"`
}

// Invalidator drops cached catalog data.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// CatalogHandler invalidates the catalog cache whenever a product changes.
type CatalogHandler struct {
	cache  Invalidator
	logger *slog.Logger
}

func NewCatalogHandler(cache Invalidator, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{cache: cache, logger: logger}
}

// Handle processes one catalog event. Unknown event types are ignored.
// An invalidation failure is returned so the consumer retries it.
func (h *CatalogHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated, TopicProductDeleted:
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	var data ProductEventData
	if err := event.UnmarshalData(&data); err != nil {
		h.logger.WarnContext(ctx, "unreadable product event payload",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
	}

	if err := h.cache.Invalidate(ctx); err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "catalog cache invalidated",
		slog.String("event_type", event.EventType),
		slog.Any("product_id", data.ID),
	)
	return nil
}

// CatalogConsumerConfig configures the catalog consumer.
type CatalogConsumerConfig struct {
	Brokers        []string
	GroupID        string
	IdempotencyTTL time.Duration
}

// CatalogConsumer consumes product events, deduplicated by event ID, with
// poison messages routed to the dead letter queue.
type CatalogConsumer struct {
	consumer *pkgkafka.Consumer
	dlq      *pkgkafka.DLQProducer
}

// NewCatalogConsumer wires the catalog handler into a Kafka consumer group.
// A nil store falls back to an in-memory idempotency store.
func NewCatalogConsumer(cfg CatalogConsumerConfig, cache Invalidator, store pkgkafka.IdempotencyStore, logger *slog.Logger) *CatalogConsumer {
	if store == nil {
		ttl := cfg.IdempotencyTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		store = pkgkafka.NewMemoryIdempotencyStore(ttl)
	}
	handler := pkgkafka.IdempotentHandler(store, NewCatalogHandler(cache, logger).Handle, logger)

	dlq := pkgkafka.NewDLQProducer(cfg.Brokers, logger)
	consumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topics:  CatalogTopics(),
	}, handler, logger).WithDLQ(dlq)

	return &CatalogConsumer{consumer: consumer, dlq: dlq}
}

// Start blocks consuming until ctx is cancelled.
func (c *CatalogConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Close stops the consumer and its dead letter producer.
func (c *CatalogConsumer) Close() error {
	err := c.consumer.Close()
	if dlqErr := c.dlq.Close(); err == nil {
		err = dlqErr
	}
	return err
}
