package messagepipeline

import (
	"time"
)

// Message is the canonical, internal representation of an event flowing through the
// pipeline. It mirrors a flow message: a payload plus auxiliary attributes that
// downstream routing may read.
type Message struct {
	// MessageData contains the core payload and any values added by transformers.
	MessageData

	// Attributes holds string metadata from the message broker (e.g., Pub/Sub attributes,
	// MQTT topic) and route hints set by transformers.
	Attributes map[string]string

	// Ack is a function to call to signal that processing was successful and the
	// message can be permanently removed from the source.
	Ack func()

	// Nack is a function to call to signal that processing has failed and the
	// message should be re-queued or sent to a dead-letter queue.
	Nack func()
}

// MessageData holds the essential payload of a message.
type MessageData struct {
	// ID is the unique identifier for the message from the source broker.
	ID string `json:"id"`

	// Payload is the raw byte content of the message.
	Payload []byte `json:"payload"`

	// PublishTime is the timestamp when the message was originally published.
	PublishTime time.Time `json:"publishTime"`

	// EnrichmentData is a generic map to hold typed side-channel values added by
	// pipeline transformers, e.g. the route values looked up by the stream builder.
	EnrichmentData map[string]interface{} `json:"enrichmentData,omitempty"`
}

// SetAttribute sets a string attribute, allocating the map on first use.
func (m *Message) SetAttribute(key, value string) {
	if m.Attributes == nil {
		m.Attributes = make(map[string]string)
	}
	m.Attributes[key] = value
}

// SetEnrichment stores a value in EnrichmentData, allocating the map on first use.
func (m *Message) SetEnrichment(key string, value interface{}) {
	if m.EnrichmentData == nil {
		m.EnrichmentData = make(map[string]interface{})
	}
	m.EnrichmentData[key] = value
}
