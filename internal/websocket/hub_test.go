package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishOnNilHub(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() {
		hub.Publish(EventStockChanged, map[string]interface{}{"x": 1})
	})
}

func TestPublishEnvelope(t *testing.T) {
	hub := NewHub()
	hub.Publish(EventInvoiceCreated, map[string]interface{}{"number": "INV-20250115-00001"})

	payload := <-hub.Broadcast
	var msg struct {
		Event string                 `json:"event"`
		Data  map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, EventInvoiceCreated, msg.Event)
	assert.Equal(t, "INV-20250115-00001", msg.Data["number"])
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	// Nobody is draining Broadcast; filling past the buffer must not block.
	for i := 0; i < 200; i++ {
		hub.Publish(EventStockChanged, map[string]interface{}{"i": i})
	}
	assert.Len(t, hub.Broadcast, cap(hub.Broadcast))
}
