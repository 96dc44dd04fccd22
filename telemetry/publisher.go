// Package telemetry publishes completed cycle tallies to an MQTT broker.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/eclipse/paho.golang/paho"

	"bleproximity/config"
	"bleproximity/scanner"
)

// Message is the JSON document published for each cycle.
type Message struct {
	CycleID   string    `json:"cycle_id"`
	Timestamp time.Time `json:"timestamp"`
	Near      int       `json:"near"`
	Medium    int       `json:"medium"`
	Far       int       `json:"far"`
	Total     int       `json:"total"`
}

// NewMessage builds the published document for a cycle.
func NewMessage(res scanner.CycleResult) Message {
	return Message{
		CycleID:   res.ID,
		Timestamp: res.Finished.UTC(),
		Near:      res.Tally.Near,
		Medium:    res.Tally.Medium,
		Far:       res.Tally.Far,
		Total:     res.Tally.Total(),
	}
}

// Publisher sends tallies over a single MQTT v5 connection.
type Publisher struct {
	client *paho.Client
	topic  string
	qos    byte
	logger *slog.Logger
}

// Dial connects to cfg.Broker and performs the MQTT handshake.
func Dial(ctx context.Context, cfg config.MQTTConfig, logger *slog.Logger) (*Publisher, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("dial broker %s: %w", cfg.Broker, err)
	}

	client := paho.NewClient(paho.ClientConfig{
		ClientID: cfg.ClientID,
		Conn:     conn,
		OnClientError: func(err error) {
			logger.Warn("mqtt client error", "error", err)
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			logger.Warn("mqtt broker disconnected", "reason_code", d.ReasonCode)
		},
	})

	ack, err := client.Connect(ctx, &paho.Connect{
		ClientID:   cfg.ClientID,
		KeepAlive:  uint16(cfg.KeepAlive / time.Second),
		CleanStart: true,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	if ack.ReasonCode >= 0x80 {
		conn.Close()
		return nil, fmt.Errorf("mqtt connect refused: reason code 0x%02x", ack.ReasonCode)
	}

	logger.Info("mqtt connected", "broker", cfg.Broker, "topic", cfg.Topic)
	return &Publisher{client: client, topic: cfg.Topic, qos: cfg.QoS, logger: logger}, nil
}

// Publish sends one cycle's tally.
func (p *Publisher) Publish(ctx context.Context, res scanner.CycleResult) error {
	payload, err := json.Marshal(NewMessage(res))
	if err != nil {
		return fmt.Errorf("encode tally: %w", err)
	}

	_, err = p.client.Publish(ctx, &paho.Publish{
		Topic:   p.topic,
		QoS:     p.qos,
		Payload: payload,
		Properties: &paho.PublishProperties{
			ContentType: "application/json",
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", p.topic, err)
	}
	p.logger.Debug("tally published", "cycle_id", res.ID, "total", res.Tally.Total())
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	return p.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}
