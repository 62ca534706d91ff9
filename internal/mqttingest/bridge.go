package mqttingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"carbonseed/internal/ingest"
)

// TopicPattern is the subscription filter for device readings. Devices
// publish to carbonseed/<device_id>/readings.
const TopicPattern = "carbonseed/+/readings"

const handleTimeout = 10 * time.Second

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Bridge subscribes to the readings topic and feeds each message through the
// ingest pipeline. Devices on flaky plant networks prefer MQTT over HTTP; the
// bridge gives them the same validation and alerting path.
type Bridge struct {
	client  mqtt.Client
	service *ingest.Service
	log     zerolog.Logger
}

// New connects to the broker. The returned bridge is not yet subscribed;
// call Start.
func New(opts Options, service *ingest.Service, log zerolog.Logger) (*Bridge, error) {
	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(opts.Broker)
	clientOpts.SetClientID(opts.ClientID)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	clientOpts.SetAutoReconnect(true)
	clientOpts.SetCleanSession(false)
	clientOpts.SetOrderMatters(false)

	client := mqtt.NewClient(clientOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	return &Bridge{client: client, service: service, log: log}, nil
}

// Start subscribes to the readings topic. Messages are handled until ctx is
// cancelled, after which the client disconnects.
func (b *Bridge) Start(ctx context.Context) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		handlerCtx, cancel := context.WithTimeout(ctx, handleTimeout)
		defer cancel()
		b.handle(handlerCtx, msg.Topic(), msg.Payload())
	}

	if token := b.client.Subscribe(TopicPattern, 1, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", TopicPattern, token.Error())
	}

	b.log.Info().Str("topic", TopicPattern).Msg("mqtt bridge subscribed")

	go func() {
		<-ctx.Done()
		b.client.Disconnect(250)
	}()

	return nil
}

func (b *Bridge) handle(ctx context.Context, topic string, data []byte) {
	deviceID, err := DeviceFromTopic(topic)
	if err != nil {
		b.log.Warn().Err(err).Str("topic", topic).Msg("drop mqtt message")
		return
	}

	var payload ingest.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		b.log.Warn().Err(err).Str("device", deviceID).Msg("drop malformed mqtt payload")
		return
	}
	// The topic is authoritative for the sender's identity.
	payload.DeviceID = deviceID

	device, err := b.service.DeviceByExternalID(ctx, deviceID)
	if err != nil {
		b.log.Warn().Err(err).Str("device", deviceID).Msg("mqtt reading for unknown device")
		return
	}

	if _, _, err := b.service.IngestForDevice(ctx, device, payload, ingest.SourceMQTT); err != nil {
		b.log.Warn().Err(err).Str("device", deviceID).Msg("mqtt ingest failed")
		return
	}

	b.log.Debug().Str("device", deviceID).Msg("mqtt reading ingested")
}

// DeviceFromTopic extracts the device identifier from a readings topic.
func DeviceFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "carbonseed" || parts[2] != "readings" || parts[1] == "" {
		return "", fmt.Errorf("unexpected topic %q", topic)
	}
	return parts[1], nil
}
