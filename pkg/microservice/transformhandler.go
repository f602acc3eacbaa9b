package microservice

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/illmade-knight/go-flowtransforms/pkg/messagepipeline"
	"github.com/rs/zerolog"
)

// AttributeHeaderPrefix prefixes message attributes echoed as response headers.
const AttributeHeaderPrefix = "X-Flow-"

const maxRequestBytes = 1 << 20

// TransformHandler serves a MessageTransformer over HTTP. The request body becomes the
// message payload and the response is the transformed payload as JSON. Attributes set
// on the message are echoed as X-Flow-<name> headers. A skipped message gets 204.
func TransformHandler[T any](transformer messagepipeline.MessageTransformer[T], logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusRequestEntityTooLarge)
			return
		}

		msg := messagepipeline.Message{
			MessageData: messagepipeline.MessageData{
				ID:          uuid.NewString(),
				Payload:     body,
				PublishTime: time.Now().UTC(),
			},
		}

		payload, skip, err := transformer(r.Context(), &msg)
		if err != nil {
			logger.Error().Err(err).Str("msg_id", msg.ID).Msg("Transform failed for HTTP request.")
			http.Error(w, "transform failed", http.StatusInternalServerError)
			return
		}

		for name, value := range msg.Attributes {
			w.Header().Set(AttributeHeaderPrefix+name, value)
		}
		w.Header().Set("X-Flow-Message-Id", msg.ID)

		if skip || payload == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Warn().Err(err).Str("msg_id", msg.ID).Msg("Failed to write HTTP response.")
		}
	})
}
