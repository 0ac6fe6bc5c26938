// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package mqttbridge wires the protocol loop to an MQTT broker: inbound
// set-requests arrive as subscribed messages and are pushed onto a
// bounded channel the loop drains between bus events; outbound
// telemetry is published as retained messages, generalizing the
// serial-to-MQTT bridge shape of a broader home-automation gateway to
// this daemon's iNet box topics.
package mqttbridge

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// SetRequest is one inbound name/value pair received on the set topic.
type SetRequest struct {
	Key   string
	Value string
}

// Bridge owns the MQTT client and the queue set-requests are pushed
// onto for the protocol loop to drain.
type Bridge struct {
	client  mqtt.Client
	prefix  string
	log     zerolog.Logger
	inbound chan SetRequest
}

// Config carries the broker connection parameters.
type Config struct {
	BrokerURL string
	Username  string
	Password  string
	Prefix    string
	ClientID  string
}

// New connects to the broker and subscribes to the set-request topic.
// Inbound requests are queued on a bounded channel (capacity 32): the
// protocol loop is the sole consumer and drains it between bus events,
// per the concurrency model's single-mutator rule. The queue is not
// lossless: while it is full, handleSet drops each newly arriving
// request and logs a warning.
func New(cfg Config, log zerolog.Logger) (*Bridge, error) {
	b := &Bridge{
		prefix:  cfg.Prefix,
		log:     log,
		inbound: make(chan SetRequest, 32),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "inetbox-emu"
	}
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Info().Str("broker", cfg.BrokerURL).Msg("connected to MQTT broker")
		topic := fmt.Sprintf("service/%s/set/+", b.prefix)
		if token := c.Subscribe(topic, 0, b.handleSet); token.Wait() && token.Error() != nil {
			log.Error().Err(token.Error()).Str("topic", topic).Msg("failed to subscribe to set-request topic")
		}
	})

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		log.Warn().Err(token.Error()).Msg("could not connect to MQTT initially, will retry in background")
	}
	return b, nil
}

func (b *Bridge) handleSet(_ mqtt.Client, msg mqtt.Message) {
	topic := msg.Topic()
	prefixLen := len("service/") + len(b.prefix) + len("/set/")
	if len(topic) <= prefixLen {
		b.log.Warn().Str("topic", topic).Msg("malformed set-request topic")
		return
	}
	key := topic[prefixLen:]
	req := SetRequest{Key: key, Value: string(msg.Payload())}
	select {
	case b.inbound <- req:
	default:
		b.log.Warn().Str("key", key).Msg("inbound set-request queue full, dropping oldest is not permitted: rejecting newest")
	}
}

// Requests returns the channel the protocol loop drains for inbound
// set-requests.
func (b *Bridge) Requests() <-chan SetRequest { return b.inbound }

// PublishStatus publishes a decoded status view (display_status or
// control_status) as retained JSON-shaped key=value pairs are avoided
// here in favor of one flat scalar topic per field, matching the
// per-field topic layout of the gateway this bridge generalizes.
func (b *Bridge) PublishStatus(stream string, view map[string]interface{}) {
	for key, value := range view {
		topic := fmt.Sprintf("service/%s/status/%s/%s", b.prefix, stream, key)
		b.client.Publish(topic, 0, true, fmt.Sprintf("%v", value))
	}
}

// PublishScalar publishes a single scalar telemetry value (update_status,
// cp_plus_status, or error) as a retained message.
func (b *Bridge) PublishScalar(stream, value string) {
	topic := fmt.Sprintf("service/%s/status/%s", b.prefix, stream)
	b.client.Publish(topic, 0, true, value)
}

// PublishError publishes a validation or transport error onto the error
// stream, per §7's surfaced-error policy.
func (b *Bridge) PublishError(key, reason string) {
	b.PublishScalar("error", fmt.Sprintf("%s: %s", key, reason))
}

// PublishRaw publishes payload to topic verbatim and retained, for
// callers that already own their topic namespace (Home Assistant
// discovery documents, which live under homeassistant/ rather than
// this bridge's own service/<prefix>/ tree).
func (b *Bridge) PublishRaw(topic string, payload []byte) {
	b.client.Publish(topic, 0, true, payload)
}

// Close disconnects from the broker, waiting up to 250ms to flush.
func (b *Bridge) Close() {
	b.client.Disconnect(250)
}
