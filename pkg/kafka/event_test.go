package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type favoritePayload struct {
	SessionID string `json:"session_id"`
	ProductID int    `json:"product_id"`
}

func TestNewEvent_Fields(t *testing.T) {
	data := favoritePayload{SessionID: "s-1", ProductID: 3}
	event, err := NewEvent("favorite.added", "s-1", "session", "storefront", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "favorite.added", event.EventType)
	assert.Equal(t, "s-1", event.AggregateID)
	assert.Equal(t, "session", event.AggregateType)
	assert.Equal(t, "storefront", event.Source)
	assert.Equal(t, EnvelopeVersion, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)
	assert.Empty(t, event.Metadata)

	var got favoritePayload
	require.NoError(t, json.Unmarshal(event.Data, &got))
	assert.Equal(t, data, got)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("test.event", "agg-1", "test", "storefront", make(chan int))
	require.Error(t, err)
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	a, err := NewEvent("theme.changed", "s-1", "session", "storefront", nil)
	require.NoError(t, err)
	b, err := NewEvent("theme.changed", "s-1", "session", "storefront", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.EventID, b.EventID)
}

func TestEvent_MarshalPreservesEnvelope(t *testing.T) {
	original, err := NewEvent("filters.changed", "s-9", "session", "storefront", map[string]string{"category": "jewelery"})
	require.NoError(t, err)
	original.WithCorrelationID("corr-abc").WithMetadata("path", "/api/v1/filters")

	raw, err := original.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, original.EventID, restored.EventID)
	assert.Equal(t, "corr-abc", restored.CorrelationID)
	assert.Equal(t, "/api/v1/filters", restored.Metadata["path"])
	assert.JSONEq(t, string(original.Data), string(restored.Data))
}

func TestEvent_WithMetadata(t *testing.T) {
	event := &Event{EventID: "e"}

	result := event.WithMetadata("k1", "v1").WithMetadata("k2", "v2").WithMetadata("empty", "")
	assert.Same(t, event, result)
	assert.Equal(t, map[string]string{"k1": "v1", "k2": "v2"}, event.Metadata)
}

func TestUnmarshalEvent_ProductServiceEnvelope(t *testing.T) {
	// Shape emitted by the catalog's product service.
	raw := `{
		"event_id":"8a2c","event_type":"product.updated","aggregate_id":"5",
		"aggregate_type":"product","version":1,"timestamp":"2026-01-02T03:04:05Z",
		"source":"product-service","data":{"id":5,"price":695}
	}`
	event, err := UnmarshalEvent([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "product.updated", event.EventType)

	var data struct {
		ID    int     `json:"id"`
		Price float64 `json:"price"`
	}
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, 5, data.ID)
	assert.Equal(t, 695.0, data.Price)
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte(`{broken json`))
	require.Error(t, err)
	_, err = UnmarshalEvent(nil)
	require.Error(t, err)

	_, err = UnmarshalEvent([]byte(`{"event_type":"product.updated","data":{}}`))
	require.ErrorIs(t, err, ErrMalformedEvent)
	assert.Contains(t, err.Error(), "event_id")

	event := &Event{Data: json.RawMessage(`not json`)}
	var target map[string]string
	require.Error(t, event.UnmarshalData(&target))
}

func TestEvent_UnmarshalDataEmpty(t *testing.T) {
	event := &Event{EventID: "e-1", EventType: "product.deleted"}
	var target map[string]any
	err := event.UnmarshalData(&target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product.deleted event e-1 has no data")
}
