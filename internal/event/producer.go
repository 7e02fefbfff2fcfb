package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sarthakastic/storefront/internal/domain"
	"github.com/sarthakastic/storefront/internal/theme"
	pkgkafka "github.com/sarthakastic/storefront/pkg/kafka"
	"github.com/sarthakastic/storefront/pkg/logger"
)

// Kafka topics for storefront activity events.
var (
	TopicFavoriteAdded   = pkgkafka.Topic(pkgkafka.StorefrontPrefix, "favorite", "added")
	TopicFavoriteRemoved = pkgkafka.Topic(pkgkafka.StorefrontPrefix, "favorite", "removed")
	TopicFiltersChanged  = pkgkafka.Topic(pkgkafka.StorefrontPrefix, "filters", "changed")
	TopicThemeChanged    = pkgkafka.Topic(pkgkafka.StorefrontPrefix, "theme", "changed")
)

const (
	AggregateTypeSession = "session"
	SourceStorefront     = "storefront"

	publishTimeout = 5 * time.Second
)

// FavoriteData is the payload for favorite.added and favorite.removed.
type FavoriteData struct {
	SessionID string  `json:"session_id"`
	ProductID int     `json:"product_id"`
	Title     string  `json:"title,omitempty"`
	Category  string  `json:"category,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Count     int     `json:"favorites_count"`
}

// FiltersData is the payload for filters.changed.
type FiltersData struct {
	SessionID   string `json:"session_id"`
	SearchQuery string `json:"search_query"`
	Category    string `json:"category"`
	SortOrder   string `json:"sort_order"`
}

// ThemeData is the payload for theme.changed.
type ThemeData struct {
	SessionID string `json:"session_id"`
	Theme     string `json:"theme"`
}

// Publisher emits storefront activity. Publishing is best effort: failures
// are logged and never surface to the shopper.
type Publisher interface {
	FavoriteAdded(ctx context.Context, sessionID string, p domain.Product, count int)
	FavoriteRemoved(ctx context.Context, sessionID string, productID, count int)
	FiltersChanged(ctx context.Context, sessionID string, f domain.FilterState)
	ThemeChanged(ctx context.Context, sessionID string, t theme.Theme)
}

// eventWriter is satisfied by *pkgkafka.Producer.
type eventWriter interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// KafkaPublisher publishes activity events through a Kafka producer. Each
// publish runs in the background so a slow broker never delays a request;
// Close waits for the ones still in flight.
type KafkaPublisher struct {
	writer eventWriter
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewKafkaPublisher(writer eventWriter, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: logger}
}

func (p *KafkaPublisher) FavoriteAdded(ctx context.Context, sessionID string, product domain.Product, count int) {
	p.publish(ctx, TopicFavoriteAdded, sessionID, FavoriteData{
		SessionID: sessionID,
		ProductID: product.ID,
		Title:     product.TitleOrEmpty(),
		Category:  product.Category,
		Price:     product.PriceOrZero(),
		Count:     count,
	})
}

func (p *KafkaPublisher) FavoriteRemoved(ctx context.Context, sessionID string, productID, count int) {
	p.publish(ctx, TopicFavoriteRemoved, sessionID, FavoriteData{
		SessionID: sessionID,
		ProductID: productID,
		Count:     count,
	})
}

func (p *KafkaPublisher) FiltersChanged(ctx context.Context, sessionID string, f domain.FilterState) {
	p.publish(ctx, TopicFiltersChanged, sessionID, FiltersData{
		SessionID:   sessionID,
		SearchQuery: f.SearchQuery,
		Category:    f.Category,
		SortOrder:   string(f.SortOrder),
	})
}

func (p *KafkaPublisher) ThemeChanged(ctx context.Context, sessionID string, t theme.Theme) {
	p.publish(ctx, TopicThemeChanged, sessionID, ThemeData{SessionID: sessionID, Theme: string(t)})
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, sessionID string, data any) {
	evt, err := pkgkafka.NewEvent(topic, sessionID, AggregateTypeSession, SourceStorefront, data)
	if err != nil {
		p.logger.ErrorContext(ctx, "build activity event failed",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return
	}
	evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	// Keep trace and correlation values, drop the request's cancellation.
	bg := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		pubCtx, cancel := context.WithTimeout(bg, publishTimeout)
		defer cancel()

		if err := p.writer.Publish(pubCtx, topic, evt); err != nil {
			p.logger.WarnContext(pubCtx, "activity event dropped",
				slog.String("topic", topic),
				slog.String("event_id", evt.EventID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Close waits for in-flight publishes. It does not close the underlying
// producer.
func (p *KafkaPublisher) Close() error {
	p.wg.Wait()
	return nil
}

// NoopPublisher discards every event. It is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) FavoriteAdded(context.Context, string, domain.Product, int) {}
func (NoopPublisher) FavoriteRemoved(context.Context, string, int, int)          {}
func (NoopPublisher) FiltersChanged(context.Context, string, domain.FilterState) {}
func (NoopPublisher) ThemeChanged(context.Context, string, theme.Theme)          {}

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = NoopPublisher{}
)

