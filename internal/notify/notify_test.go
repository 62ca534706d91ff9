package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliver(t *testing.T) {
	var received AlertEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, zerolog.Nop())
	event := AlertEvent{
		AlertID:   "a1",
		DeviceID:  "ESP32-001",
		AlertType: "temperature_high",
		Severity:  "critical",
		Title:     "High Temperature Alert",
	}

	require.NoError(t, hook.Deliver(context.Background(), event))
	assert.Equal(t, event, received)
}

func TestDeliverServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, zerolog.Nop())
	hook.client.SetRetryCount(0)

	err := hook.Deliver(context.Background(), AlertEvent{AlertID: "a1"})
	assert.Error(t, err)
}

func TestHandleMalformedPayload(t *testing.T) {
	hook := NewWebhook("http://unused.invalid", zerolog.Nop())

	// Drop without error so the bus does not redeliver.
	assert.NoError(t, hook.handle(context.Background(), []byte("{not json")))
}
