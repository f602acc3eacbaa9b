package messagepipeline_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/illmade-knight/go-flowtransforms/pkg/messagepipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGooglePubsubConsumer_ReceiveMessage(t *testing.T) {
	// --- Arrange ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	client := newTestPubsubClient(t, "test-project")
	topic, _ := createTopicAndSubscription(t, client, "stream-aliases", "stream-aliases-sub")

	consumer, err := messagepipeline.NewGooglePubsubConsumer(
		messagepipeline.NewGooglePubsubConsumerDefaults("stream-aliases-sub"), client, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, consumer.Start(ctx))
	t.Cleanup(func() { _ = consumer.Stop(context.Background()) })

	// --- Act ---
	res := topic.Publish(ctx, &pubsub.Message{
		Data:       []byte("cam7"),
		Attributes: map[string]string{"source": "test-harness"},
	})
	_, err = res.Get(ctx)
	require.NoError(t, err)

	// --- Assert ---
	select {
	case msg := <-consumer.Messages():
		assert.Equal(t, []byte("cam7"), msg.Payload)
		assert.Equal(t, "test-harness", msg.Attributes["source"])
		assert.NotEmpty(t, msg.ID)
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message from consumer")
	}
}

func TestGooglePubsubConsumer_Stop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	client := newTestPubsubClient(t, "test-project-stop")
	createTopicAndSubscription(t, client, "stop-topic", "stop-sub")

	consumer, err := messagepipeline.NewGooglePubsubConsumer(
		messagepipeline.NewGooglePubsubConsumerDefaults("stop-sub"), client, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, consumer.Start(ctx))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, consumer.Stop(stopCtx))

	select {
	case <-consumer.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer.Done() channel was not closed after stop")
	}
	_, ok := <-consumer.Messages()
	assert.False(t, ok, "consumer.Messages() channel should be closed")
}

func TestNewGooglePubsubConsumer_MissingSubscription(t *testing.T) {
	client := newTestPubsubClient(t, "test-project-missing")

	_, err := messagepipeline.NewGooglePubsubConsumer(
		messagepipeline.NewGooglePubsubConsumerDefaults("no-such-sub"), client, zerolog.Nop())
	require.Error(t, err)
}
