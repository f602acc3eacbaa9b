package bqstore

import (
	"context"
	"time"

	"github.com/illmade-knight/go-flowtransforms/pkg/messagepipeline"
	"github.com/illmade-knight/go-flowtransforms/pkg/reportmapper"
	"github.com/rs/zerolog"
)

// NewArchivingProcessor returns a processor that runs next and then queues the body for
// archiving on batcher. A nil next archives only. The archive never fails the message:
// a row that cannot be queued is dropped with a warning.
func NewArchivingProcessor(
	next messagepipeline.StreamProcessor[reportmapper.RESTReportBody],
	batcher *BatchInserter[ReportRow],
	logger zerolog.Logger,
) messagepipeline.StreamProcessor[reportmapper.RESTReportBody] {
	logger = logger.With().Str("component", "ReportArchiver").Logger()
	return func(ctx context.Context, original messagepipeline.Message, payload *reportmapper.RESTReportBody) error {
		if next != nil {
			if err := next(ctx, original, payload); err != nil {
				return err
			}
		}
		if payload == nil {
			return nil
		}

		row := NewReportRow(original.ID, *payload, time.Now().UTC())
		if err := batcher.Enqueue(ctx, &row); err != nil {
			logger.Warn().Err(err).Str("msg_id", original.ID).Msg("Report was not archived.")
		}
		return nil
	}
}
