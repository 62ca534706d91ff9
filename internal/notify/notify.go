package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"carbonseed/internal/bus"
)

// AlertEvent is the payload published when a reading breaches a threshold.
type AlertEvent struct {
	AlertID   string `json:"alert_id"`
	DeviceID  string `json:"device_id"`
	FactoryID string `json:"factory_id"`
	AlertType string `json:"alert_type"`
	Severity  string `json:"severity"`
	Title     string `json:"title"`
	Message   string `json:"message"`
}

// Webhook forwards triggered alerts to an external HTTP endpoint, typically a
// chat integration or an on-call pager bridge.
type Webhook struct {
	client *resty.Client
	url    string
	log    zerolog.Logger
}

func NewWebhook(url string, log zerolog.Logger) *Webhook {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	return &Webhook{client: client, url: url, log: log}
}

// Start consumes triggered alerts from the bus and delivers each one to the
// webhook. The returned closer stops the subscription.
func (w *Webhook) Start(ctx context.Context, events *bus.Bus) (io.Closer, error) {
	return events.Subscribe(ctx, bus.SubjectAlertTriggered, "alert-webhook", w.handle)
}

func (w *Webhook) handle(ctx context.Context, data []byte) error {
	var event AlertEvent
	if err := json.Unmarshal(data, &event); err != nil {
		// Malformed events are dropped rather than redelivered forever.
		w.log.Error().Err(err).Msg("drop malformed alert event")
		return nil
	}

	if err := w.Deliver(ctx, event); err != nil {
		w.log.Warn().Err(err).Str("alert_id", event.AlertID).Msg("webhook delivery failed")
		return err
	}

	w.log.Info().
		Str("alert_id", event.AlertID).
		Str("severity", event.Severity).
		Msg("alert delivered to webhook")
	return nil
}

// Deliver posts a single alert event to the webhook endpoint.
func (w *Webhook) Deliver(ctx context.Context, event AlertEvent) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(w.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned %s", resp.Status())
	}
	return nil
}
