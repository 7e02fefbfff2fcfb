package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const testTraceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

func TestHeaderCarrier(t *testing.T) {
	msg := &kafka.Message{Headers: []kafka.Header{{Key: "event_type", Value: []byte("product.updated")}}}
	c := headerCarrier{msg}

	assert.Equal(t, "product.updated", c.Get("event_type"))
	assert.Empty(t, c.Get("traceparent"))

	c.Set("traceparent", testTraceparent)
	c.Set("event_type", "product.deleted")

	assert.Equal(t, []string{"event_type", "traceparent"}, c.Keys())
	assert.Equal(t, "product.deleted", c.Get("event_type"))
	assert.Len(t, msg.Headers, 2, "Set overwrites in place")
}

func TestHeaderCarrier_Empty(t *testing.T) {
	c := headerCarrier{&kafka.Message{}}
	assert.Empty(t, c.Keys())
	assert.Empty(t, c.Get("anything"))
}

func TestTraceContext_SurvivesHop(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	in := &kafka.Message{Headers: []kafka.Header{{Key: "traceparent", Value: []byte(testTraceparent)}}}
	ctx := extractTraceContext(context.Background(), in)

	sc := trace.SpanContextFromContext(ctx)
	assert.True(t, sc.IsRemote())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sc.TraceID().String())

	out := &kafka.Message{}
	injectTraceContext(ctx, out)
	assert.Equal(t, testTraceparent, headerCarrier{out}.Get("traceparent"))
}
