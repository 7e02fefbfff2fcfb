package kafka

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarthakastic/storefront/pkg/logger"
)

func sampleCount(t *testing.T, h prometheus.Observer) uint64 {
	t.Helper()
	m, ok := h.(prometheus.Metric)
	require.True(t, ok)
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	return out.GetHistogram().GetSampleCount()
}

func TestMetrics_Namespaced(t *testing.T) {
	receivedTotal.WithLabelValues("t", "g")
	consumedTotal.WithLabelValues("t", "g", outcomeHandled)
	handleSeconds.WithLabelValues("t", "g")
	duplicatesTotal.WithLabelValues("product.updated")
	publishedTotal.WithLabelValues("t", "ok")
	publishSeconds.WithLabelValues("t")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var found int
	for _, fam := range families {
		if !strings.HasPrefix(fam.GetName(), metricsNamespace+"_") {
			continue
		}
		found++
		assert.NotEmpty(t, fam.GetHelp(), fam.GetName())
	}
	assert.Equal(t, 6, found)
}

func TestConsumer_RecordsOutcome(t *testing.T) {
	topic := "metrics-test.product.created"
	group := "storefront-metrics"
	r := &fakeReader{queue: []kafka.Message{eventMessage(t, topic, "product.created", 1)}}

	handled := consumedTotal.WithLabelValues(topic, group, outcomeHandled)
	received := receivedTotal.WithLabelValues(topic, group)
	handledBefore, receivedBefore := testutil.ToFloat64(handled), testutil.ToFloat64(received)

	c := newConsumer(r, ConsumerConfig{GroupID: group}, func(context.Context, *Event) error { return nil }, logger.Discard())
	runUntilCommitted(t, c, r, 1)

	assert.InDelta(t, handledBefore+1, testutil.ToFloat64(handled), 0.001)
	assert.InDelta(t, receivedBefore+1, testutil.ToFloat64(received), 0.001)
	assert.GreaterOrEqual(t, sampleCount(t, handleSeconds.WithLabelValues(topic, group)), uint64(1))
}

func TestConsumer_UndecodableOutcome(t *testing.T) {
	topic := "metrics-test.product.garbled"
	group := "storefront-metrics"
	r := &fakeReader{queue: []kafka.Message{{Topic: topic, Value: []byte("not json")}}}

	undecodable := consumedTotal.WithLabelValues(topic, group, outcomeUndecodable)
	before := testutil.ToFloat64(undecodable)

	c := newConsumer(r, ConsumerConfig{GroupID: group}, func(context.Context, *Event) error { return nil }, logger.Discard())
	runUntilCommitted(t, c, r, 1)

	assert.InDelta(t, before+1, testutil.ToFloat64(undecodable), 0.001)
}

func TestProducer_RecordsPublish(t *testing.T) {
	topic := "metrics-test.favorite.added"
	ok := publishedTotal.WithLabelValues(topic, "ok")
	before := testutil.ToFloat64(ok)

	p := &Producer{writer: &fakeWriter{}, logger: logger.Discard()}
	event, err := NewEvent("favorite.added", "s", "session", "storefront", nil)
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), topic, event))

	assert.InDelta(t, before+1, testutil.ToFloat64(ok), 0.001)
	assert.GreaterOrEqual(t, sampleCount(t, publishSeconds.WithLabelValues(topic)), uint64(1))
}
