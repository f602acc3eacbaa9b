package bqstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/illmade-knight/go-flowtransforms/pkg/bqstore"
	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
	"github.com/illmade-knight/go-flowtransforms/pkg/messagepipeline"
	"github.com/illmade-knight/go-flowtransforms/pkg/reportmapper"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchiveBatcher(t *testing.T) (*bqstore.BatchInserter[bqstore.ReportRow], *MockDataBatchInserter[bqstore.ReportRow]) {
	t.Helper()
	mockInserter := &MockDataBatchInserter[bqstore.ReportRow]{}
	batcher, err := bqstore.NewBatcher[bqstore.ReportRow](&bqstore.BatchInserterConfig{
		BatchSize:     1,
		FlushInterval: time.Second,
	}, mockInserter, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	batcher.Start(ctx)
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		_ = batcher.Stop(stopCtx)
	})
	return batcher, mockInserter
}

func TestArchivingProcessor(t *testing.T) {
	body := reportmapper.MapReport(reportmapper.IncomingReport{Name: flowvalue.Of("Obj1")})
	msg := messagepipeline.Message{MessageData: messagepipeline.MessageData{ID: "msg-1"}}

	t.Run("runs next then archives", func(t *testing.T) {
		batcher, mockInserter := newTestArchiveBatcher(t)
		var nextCalled bool
		next := func(ctx context.Context, original messagepipeline.Message, payload *reportmapper.RESTReportBody) error {
			nextCalled = true
			return nil
		}

		processor := bqstore.NewArchivingProcessor(next, batcher, zerolog.Nop())
		require.NoError(t, processor(context.Background(), msg, &body))
		assert.True(t, nextCalled)

		require.Eventually(t, func() bool {
			return mockInserter.GetCallCount() == 1
		}, time.Second, 10*time.Millisecond)
		row := mockInserter.GetReceivedItems()[0][0]
		assert.Equal(t, "msg-1", row.MessageID)
		assert.Equal(t, "Obj1", row.Name.StringVal)
	})

	t.Run("failure in next is returned and nothing is archived", func(t *testing.T) {
		batcher, mockInserter := newTestArchiveBatcher(t)
		next := func(ctx context.Context, original messagepipeline.Message, payload *reportmapper.RESTReportBody) error {
			return errors.New("publish failed")
		}

		processor := bqstore.NewArchivingProcessor(next, batcher, zerolog.Nop())
		require.Error(t, processor(context.Background(), msg, &body))

		assert.Never(t, func() bool {
			return mockInserter.GetCallCount() > 0
		}, 100*time.Millisecond, 10*time.Millisecond)
	})

	t.Run("nil next archives only", func(t *testing.T) {
		batcher, mockInserter := newTestArchiveBatcher(t)
		processor := bqstore.NewArchivingProcessor(nil, batcher, zerolog.Nop())
		require.NoError(t, processor(context.Background(), msg, &body))

		require.Eventually(t, func() bool {
			return mockInserter.GetCallCount() == 1
		}, time.Second, 10*time.Millisecond)
	})
}
