// Package upload forwards finished package records to the central reporting
// service over MQTT. The station keeps working when the broker is away; the
// local database remains the source of truth and upload failures are only
// logged by the caller.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/parcel.station/internal/fusion"
	"github.com/banshee-data/parcel.station/internal/monitoring"
)

// ClientConfig holds the broker connection settings.
type ClientConfig struct {
	Broker    string // e.g. "tcp://broker.example.com:1883"
	ClientID  string // unique per station, e.g. the station ID
	Username  string
	Password  string
	StationID string // topic segment; falls back to ClientID when empty
}

// Client publishes package records to station/<station-id>/packages.
type Client struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
}

// NewClient connects to the broker. The connection auto-reconnects; records
// published while disconnected fail fast rather than queueing.
func NewClient(config ClientConfig) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		monitoring.Logf("upload: connected to broker %s", config.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		monitoring.Logf("upload: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", token.Error())
	}

	station := config.StationID
	if station == "" {
		station = config.ClientID
	}

	return &Client{
		client:  client,
		topic:   recordTopic(station),
		timeout: 5 * time.Second,
	}, nil
}

// recordTopic returns the per-station publish topic.
func recordTopic(stationID string) string {
	return fmt.Sprintf("station/%s/packages", stationID)
}

// UploadRecord publishes one record at QoS 1. It returns once the broker
// acknowledges the publish, the timeout elapses, or the context is cancelled.
func (c *Client) UploadRecord(ctx context.Context, r *fusion.PackageRecord) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", r.ID, err)
	}

	token := c.client.Publish(c.topic, 1, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish record %s: %w", r.ID, err)
		}
		return nil
	case <-time.After(c.timeout):
		return fmt.Errorf("publish of record %s timed out", r.ID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsConnected reports whether the broker connection is up.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects from the broker, allowing 250ms for in-flight work.
func (c *Client) Close() {
	c.client.Disconnect(250)
}
