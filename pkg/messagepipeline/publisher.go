package messagepipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

// SimplePublisher defines a generic, direct publisher interface.
type SimplePublisher interface {
	Publish(ctx context.Context, payload []byte, attributes map[string]string) error
	// Stop flushes any pending messages and accepts a context for timeout control.
	Stop(ctx context.Context) error
}

// GoogleSimplePublisherConfig holds configuration for a GoogleSimplePublisher.
type GoogleSimplePublisherConfig struct {
	TopicID string `yaml:"topic_id"`
	// PublishTimeout bounds how long Publish waits for the server to confirm a message.
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// NewGoogleSimplePublisherDefaults returns a config for topicID with sensible defaults.
func NewGoogleSimplePublisherDefaults(topicID string) *GoogleSimplePublisherConfig {
	return &GoogleSimplePublisherConfig{
		TopicID:        topicID,
		PublishTimeout: 30 * time.Second,
	}
}

// GoogleSimplePublisher implements a direct-to-Pub/Sub publisher.
type GoogleSimplePublisher struct {
	topic          *pubsub.Topic
	publishTimeout time.Duration
	logger         zerolog.Logger
}

// NewGoogleSimplePublisher creates a new simple, non-batching publisher.
// It uses ctx to verify that the target topic exists before returning.
func NewGoogleSimplePublisher(ctx context.Context, cfg *GoogleSimplePublisherConfig, client *pubsub.Client, logger zerolog.Logger) (*GoogleSimplePublisher, error) {
	if client == nil {
		return nil, errors.New("pubsub client cannot be nil")
	}
	topic := client.Topic(cfg.TopicID)

	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for topic %s: %w", cfg.TopicID, err)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub topic %s does not exist", cfg.TopicID)
	}

	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GoogleSimplePublisher{
		topic:          topic,
		publishTimeout: timeout,
		logger:         logger.With().Str("component", "GoogleSimplePublisher").Str("topic_id", cfg.TopicID).Logger(),
	}, nil
}

// Publish sends a single message and waits for the server to confirm it, so a
// failed publish can Nack the source message.
func (p *GoogleSimplePublisher) Publish(ctx context.Context, payload []byte, attributes map[string]string) error {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: attributes,
	})

	getCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()
	msgID, err := result.Get(getCtx)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to publish message")
		return fmt.Errorf("publish to %s: %w", p.topic.ID(), err)
	}
	p.logger.Debug().Str("published_msg_id", msgID).Msg("Message sent successfully.")
	return nil
}

// Stop flushes any pending messages for the topic, respecting the context's timeout.
func (p *GoogleSimplePublisher) Stop(ctx context.Context) error {
	if p.topic == nil {
		return nil
	}

	// topic.Stop() is blocking, so we wrap it to respect the context timeout.
	stopDone := make(chan struct{})
	go func() {
		p.topic.Stop()
		close(stopDone)
	}()

	select {
	case <-stopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewPublishingProcessor returns a StreamProcessor that JSON-encodes each payload and
// publishes it as the replacement message body. The message's attributes travel with
// it so downstream nodes keep any route hints set by the transformer.
func NewPublishingProcessor[T any](publisher SimplePublisher) StreamProcessor[T] {
	return func(ctx context.Context, original Message, payload *T) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload for msg %s: %w", original.ID, err)
		}
		return publisher.Publish(ctx, data, original.Attributes)
	}
}
