package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/jgoulah/binpusher/internal/config"
	"github.com/jgoulah/binpusher/pkg/models"
)

const publishTimeout = 10 * time.Second

// Publisher mirrors published bin telemetry to an MQTT broker
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
}

// New connects to the broker described by mqttCfg
func New(mqttCfg config.MQTTConfig, topicPrefix string) (*Publisher, error) {
	if mqttCfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	broker := mqttCfg.Broker
	if !strings.Contains(broker, "://") {
		broker = fmt.Sprintf("tcp://%s", broker)
	}

	// Configure MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID("binpusher-" + uuid.NewString()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)

	if mqttCfg.Username != "" {
		opts.SetUsername(mqttCfg.Username)
	}
	if mqttCfg.Password != "" {
		opts.SetPassword(mqttCfg.Password)
	}

	// Create and connect client
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: strings.TrimRight(topicPrefix, "/"),
	}, nil
}

// StatusTopic returns the retained topic carrying the latest status of binID
func (p *Publisher) StatusTopic(binID string) string {
	return fmt.Sprintf("%s/%s/status", p.topicPrefix, binID)
}

// LogTopic returns the topic carrying waste log entries of binID
func (p *Publisher) LogTopic(binID string) string {
	return fmt.Sprintf("%s/%s/wastelog", p.topicPrefix, binID)
}

// Mirror publishes the bin status (retained) and the waste log entry
func (p *Publisher) Mirror(ctx context.Context, status models.BinStatus, entry models.WasteLogEntry) error {
	if err := p.publish(ctx, p.StatusTopic(status.HouseID), true, status); err != nil {
		return fmt.Errorf("publishing bin status: %w", err)
	}
	if err := p.publish(ctx, p.LogTopic(entry.HouseID), false, entry); err != nil {
		return fmt.Errorf("publishing waste log: %w", err)
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, topic string, retained bool, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	token := p.client.Publish(topic, 1, retained, body)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	return token.Error()
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
