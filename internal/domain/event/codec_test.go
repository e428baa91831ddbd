package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointUpdateIsFlat(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewEndpointUpdate(EndpointUpdate{
		EndpointID: 7, Name: "api", URL: "https://api.example.com",
		Status: "down", PreviousStatus: "up", Uptime: 99.5, LatencyMs: 120,
		CheckedAt: at, StatusChanged: true,
	})

	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "endpoint_update", m["type"])
	assert.EqualValues(t, 7, m["endpoint_id"])
	assert.Equal(t, "down", m["status"])
	assert.Equal(t, "up", m["previous_status"])
	assert.Equal(t, true, m["status_changed"])

	var back Event
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, e, back)
	assert.EqualValues(t, 7, back.Key())
}

func TestConnectedHasOnlyType(t *testing.T) {
	raw, err := json.Marshal(Connected())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"connected"}`, string(raw))
}

func TestUnknownType(t *testing.T) {
	var e Event
	require.Error(t, json.Unmarshal([]byte(`{"type":"nope"}`), &e))
}
