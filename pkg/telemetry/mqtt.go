//go:build !tinygo

package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	// DefaultTopic is the topic readings are published to.
	DefaultTopic = "pseudobend/readings"
	// DefaultClientID identifies the publisher to the broker.
	DefaultClientID = "pseudobend"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// MQTTConfig selects the broker and topic.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// Payload is the JSON body of a published reading.
type Payload struct {
	Timestamp string `json:"timestamp"`
	Left      int32  `json:"left"`
	Right     int32  `json:"right"`
}

// FormatPayload renders r as a JSON message body.
func FormatPayload(r Reading) ([]byte, error) {
	return json.Marshal(Payload{
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
		Left:      r.Left,
		Right:     r.Right,
	})
}

// publisher is the part of paho.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// MQTT publishes readings to a broker.
type MQTT struct {
	client publisher
	topic  string
}

var _ Sink = (*MQTT)(nil)

// DialMQTT connects to the broker in cfg.
func DialMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	return &MQTT{client: client, topic: cfg.Topic}, nil
}

// Send publishes r at QoS 0, not retained.
func (m *MQTT) Send(r Reading) error {
	payload, err := FormatPayload(r)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	token := m.client.Publish(m.topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish: timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.client.Disconnect(1000)
	return nil
}
