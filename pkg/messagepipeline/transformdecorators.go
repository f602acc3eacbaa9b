package messagepipeline

import (
	"context"

	"github.com/rs/zerolog"
)

// WithTransformLogging is a decorator function. It wraps an existing MessageTransformer
// and records the outcome of every call in the log and, if metrics is non-nil, in the
// transform counters. The inner transformer's results are returned untouched.
func WithTransformLogging[T any](
	innerTransformer MessageTransformer[T],
	name string,
	metrics *TransformMetrics,
	logger zerolog.Logger,
) MessageTransformer[T] {
	logger = logger.With().Str("transform", name).Logger()

	return func(ctx context.Context, msg *Message) (*T, bool, error) {
		payload, skip, err := innerTransformer(ctx, msg)
		switch {
		case err != nil:
			logger.Error().Err(err).Str("msg_id", msg.ID).Msg("Transform failed.")
			metrics.observe(name, OutcomeFailed)
		case skip:
			logger.Debug().Str("msg_id", msg.ID).Msg("Transform skipped message.")
			metrics.observe(name, OutcomeSkipped)
		default:
			logger.Debug().Str("msg_id", msg.ID).Int("payload_size", len(msg.Payload)).Msg("Transform produced payload.")
			metrics.observe(name, OutcomeTransformed)
		}
		return payload, skip, err
	}
}
