package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sarthakastic/storefront/pkg/logger"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestDefaultProducerConfig(t *testing.T) {
	brokers := []string{"broker1:9092", "broker2:9092"}
	cfg := DefaultProducerConfig(brokers)

	assert.Equal(t, brokers, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.BatchTimeout)
	assert.False(t, cfg.Async)
}

func TestNewProducer_DoesNotConnect(t *testing.T) {
	p := NewProducer(DefaultProducerConfig([]string{"localhost:19092"}), logger.Discard())
	require.NotNil(t, p)
	assert.Equal(t, []string{"localhost:19092"}, p.brokers)
	assert.NoError(t, p.Close())
}

func TestProducer_Publish_WritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, logger: logger.Discard()}

	event, err := NewEvent("favorite.added", "s-1", "session", "storefront", map[string]int{"product_id": 2})
	require.NoError(t, err)
	event.WithCorrelationID("corr-1")

	topic := Topic(StorefrontPrefix, "favorite", "added")
	require.NoError(t, p.Publish(context.Background(), topic, event))

	msgs := w.written()
	require.Len(t, msgs, 1)
	assert.Equal(t, "storefront.favorite.added", msgs[0].Topic)
	assert.Equal(t, []byte("s-1"), msgs[0].Key)
	assert.Equal(t, "favorite.added", header(msgs[0], HeaderEventType))
	assert.Equal(t, "storefront", header(msgs[0], HeaderSource))
	assert.Equal(t, "corr-1", header(msgs[0], HeaderCorrelationID))

	decoded, err := UnmarshalEvent(msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
}

func TestProducer_Publish_InjectsTraceContext(t *testing.T) {
	prevProp := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prevProp) })

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background()) //nolint:errcheck
	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	w := &fakeWriter{}
	p := &Producer{writer: w, logger: logger.Discard()}
	event, err := NewEvent("theme.changed", "s-1", "session", "storefront", nil)
	require.NoError(t, err)

	require.NoError(t, p.Publish(ctx, "storefront.theme.changed", event))

	traceparent := header(w.written()[0], "traceparent")
	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())
}

func TestProducer_Publish_WriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := &Producer{writer: w, logger: logger.Discard()}
	topic := "storefront.filters.changed"

	failures := publishedTotal.WithLabelValues(topic, "error")
	before := testutil.ToFloat64(failures)

	event, err := NewEvent("filters.changed", "s-1", "session", "storefront", nil)
	require.NoError(t, err)
	err = p.Publish(context.Background(), topic, event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to storefront.filters.changed")

	assert.InDelta(t, before+1, testutil.ToFloat64(failures), 0.001)
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, logger: logger.Discard()}
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestTopic(t *testing.T) {
	tests := []struct {
		prefix, domain, action, want string
	}{
		{StorefrontPrefix, "favorite", "added", "storefront.favorite.added"},
		{StorefrontPrefix, "favorite", "removed", "storefront.favorite.removed"},
		{StorefrontPrefix, "theme", "changed", "storefront.theme.changed"},
		{CatalogPrefix, "product", "updated", "ecommerce.product.updated"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Topic(tt.prefix, tt.domain, tt.action))
		})
	}
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	for _, brokers := range [][]string{nil, {}} {
		err := PingBrokers(t.Context(), brokers)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no brokers configured")
	}
}

func TestPingBrokers_ReportsEveryBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	err := PingBrokers(ctx, []string{"127.0.0.1:1", "127.0.0.1:2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all brokers unreachable")
	assert.Contains(t, err.Error(), "127.0.0.1:1")
	assert.Contains(t, err.Error(), "127.0.0.1:2")
}
