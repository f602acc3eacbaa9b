// Package mqttconverter feeds messages from an MQTT broker into the flow pipeline.
package mqttconverter

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/illmade-knight/go-flowtransforms/pkg/messagepipeline"
	"github.com/rs/zerolog"
)

// TopicAttribute is the message attribute holding the MQTT topic a message arrived on.
const TopicAttribute = "mqtt_topic"

// MqttConsumer implements the messagepipeline.MessageConsumer interface for an MQTT source.
type MqttConsumer struct {
	client     mqtt.Client
	cfg        *MQTTClientConfig
	logger     zerolog.Logger
	outputChan chan messagepipeline.Message
	doneChan   chan struct{}
	stopOnce   sync.Once

	mu      sync.RWMutex
	stopped bool
}

// NewMqttConsumer creates a new MqttConsumer around client. It does not connect until
// Start is called.
func NewMqttConsumer(client mqtt.Client, cfg *MQTTClientConfig, logger zerolog.Logger) (*MqttConsumer, error) {
	if client == nil {
		return nil, fmt.Errorf("MQTT client cannot be nil")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("MQTT topic is required")
	}
	return &MqttConsumer{
		client:     client,
		cfg:        cfg,
		logger:     logger.With().Str("component", "MqttConsumer").Str("topic", cfg.Topic).Logger(),
		outputChan: make(chan messagepipeline.Message, 1000),
		doneChan:   make(chan struct{}),
	}, nil
}

// Messages returns the read-only channel from which raw messages can be consumed.
func (c *MqttConsumer) Messages() <-chan messagepipeline.Message {
	return c.outputChan
}

// Start connects to the broker and subscribes to the configured topic with QoS 1.
func (c *MqttConsumer) Start(ctx context.Context) error {
	timeout := c.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c.logger.Info().Msg("Attempting to connect to MQTT broker...")
	token := c.client.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("timed out connecting to MQTT broker after %s", timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	subToken := c.client.Subscribe(c.cfg.Topic, 1, c.handleIncomingMessage(ctx))
	if subToken.WaitTimeout(timeout) && subToken.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.cfg.Topic, subToken.Error())
	}
	c.logger.Info().Msg("Subscribed to MQTT topic.")

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()
	return nil
}

// Stop unsubscribes, disconnects and closes the output channel.
func (c *MqttConsumer) Stop(_ context.Context) error {
	c.stopOnce.Do(func() {
		c.logger.Info().Msg("Stopping MqttConsumer...")
		if c.client.IsConnected() {
			if token := c.client.Unsubscribe(c.cfg.Topic); token.WaitTimeout(2*time.Second) && token.Error() != nil {
				c.logger.Warn().Err(token.Error()).Msg("Failed to unsubscribe from MQTT topic.")
			}
			c.client.Disconnect(500)
		}

		// Handlers check stopped under the read lock, so no send can race the close.
		c.mu.Lock()
		c.stopped = true
		close(c.outputChan)
		c.mu.Unlock()

		close(c.doneChan)
		c.logger.Info().Msg("MqttConsumer stopped.")
	})
	return nil
}

// Done returns a channel that is closed when the consumer has fully stopped.
func (c *MqttConsumer) Done() <-chan struct{} {
	return c.doneChan
}

// handleIncomingMessage converts MQTT messages to pipeline messages.
func (c *MqttConsumer) handleIncomingMessage(ctx context.Context) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		payloadCopy := make([]byte, len(msg.Payload()))
		copy(payloadCopy, msg.Payload())

		consumed := messagepipeline.Message{
			MessageData: messagepipeline.MessageData{
				ID:          fmt.Sprintf("%d", msg.MessageID()),
				Payload:     payloadCopy,
				PublishTime: time.Now().UTC(),
			},
			Attributes: map[string]string{TopicAttribute: msg.Topic()},
			// With QoS 1 the Paho client acknowledges at the protocol level.
			Ack:  func() {},
			Nack: func() {},
		}

		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.stopped {
			c.logger.Warn().Str("mqtt_topic", msg.Topic()).Msg("Consumer is stopped, dropping MQTT message.")
			return
		}
		select {
		case c.outputChan <- consumed:
		case <-ctx.Done():
			c.logger.Warn().Str("mqtt_topic", msg.Topic()).Msg("Consumer is shutting down, dropping MQTT message.")
		}
	}
}
