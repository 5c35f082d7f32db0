// Package telemetry publishes boat state to an MQTT broker so dashboards
// and loggers can watch a session without joining the WebSocket hub.
package telemetry

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/opd-ai/go-sail/pkg/config"
	"github.com/opd-ai/go-sail/pkg/dynamics"
	"github.com/opd-ai/go-sail/pkg/logging"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Publisher sends boat state snapshots to an MQTT broker. Publishing is
// best effort: a dropped broker connection never stalls the simulation
// tick, paho reconnects in the background.
type Publisher struct {
	cfg    config.TelemetryConfig
	client mqtt.Client
	logger *logging.Logger
}

// NewPublisher creates a publisher from telemetry configuration. Call
// Connect before publishing.
func NewPublisher(cfg config.TelemetryConfig) *Publisher {
	return &Publisher{
		cfg:    cfg,
		logger: logging.NewLogger(),
	}
}

// BrokerURL builds the broker URL from the configured host, port and TLS
// setting.
func BrokerURL(cfg config.TelemetryConfig) string {
	protocol := "tcp"
	if cfg.UseTLS {
		protocol = "tls"
	}
	return fmt.Sprintf("%s://%s:%d", protocol, cfg.Broker, cfg.Port)
}

// BoatTopic returns the topic a boat's state is published on.
func BoatTopic(prefix, boatID string) string {
	return fmt.Sprintf("%s/%s/state", prefix, boatID)
}

// Connect establishes the broker connection.
func (p *Publisher) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()

	brokerURL := BrokerURL(p.cfg)
	opts.AddBroker(brokerURL)

	clientID := fmt.Sprintf("go-sail-%d", time.Now().Unix())
	opts.SetClientID(clientID)

	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}

	if p.cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{})
	}

	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		p.logger.Info(ctx, "telemetry broker connected", "broker", brokerURL)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		p.logger.Warn(ctx, "telemetry broker connection lost", "error", err.Error())
	}

	p.client = mqtt.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("telemetry connect timeout after %s", connectTimeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("telemetry connect failed: %w", token.Error())
	}

	p.logger.Info(ctx, "telemetry publisher started",
		"broker", brokerURL,
		"client_id", clientID,
		"topic_prefix", p.cfg.TopicPrefix,
	)
	return nil
}

// Disconnect closes the broker connection, allowing in-flight publishes
// up to a second to drain.
func (p *Publisher) Disconnect() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(1000)
	}
}

// Connected reports whether the broker connection is up.
func (p *Publisher) Connected() bool {
	return p.client != nil && p.client.IsConnected()
}

// PublishBoatState publishes one boat's snapshot as JSON on its state
// topic.
func (p *Publisher) PublishBoatState(boatID string, state dynamics.State) error {
	if !p.Connected() {
		return fmt.Errorf("telemetry publisher not connected")
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode boat state: %w", err)
	}

	topic := BoatTopic(p.cfg.TopicPrefix, boatID)
	token := p.client.Publish(topic, byte(p.cfg.QoS), false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout on %s", topic)
	}
	return token.Error()
}
