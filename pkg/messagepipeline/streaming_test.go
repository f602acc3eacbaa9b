package messagepipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/illmade-knight/go-flowtransforms/pkg/messagepipeline"
	"github.com/illmade-knight/go-flowtransforms/pkg/reportmapper"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type streamTestPayload struct {
	Data string
}

// newTestStreamingService is a helper to create a StreamingService with mocks for testing.
func newTestStreamingService(
	t *testing.T,
	processor messagepipeline.StreamProcessor[streamTestPayload],
) (*messagepipeline.StreamingService[streamTestPayload], *MockMessageConsumer) {
	consumer := NewMockMessageConsumer(10)
	t.Cleanup(consumer.Close)

	transformer := func(ctx context.Context, msg *messagepipeline.Message) (*streamTestPayload, bool, error) {
		switch string(msg.Payload) {
		case "skip":
			return nil, true, nil
		case "transform_error":
			return nil, false, errors.New("transformation failed")
		}
		return &streamTestPayload{Data: string(msg.Payload)}, false, nil
	}

	service, err := messagepipeline.NewStreamingService[streamTestPayload](
		messagepipeline.StreamingServiceConfig{Name: "test", NumWorkers: 1},
		consumer, transformer, processor, zerolog.Nop(),
	)
	require.NoError(t, err)
	return service, consumer
}

func startService(t *testing.T, service interface{ Start(context.Context) error }) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, service.Start(ctx))
}

func TestNewStreamingService_Validation(t *testing.T) {
	noopTransformer := func(context.Context, *messagepipeline.Message) (*streamTestPayload, bool, error) {
		return nil, false, nil
	}
	noopProcessor := func(context.Context, messagepipeline.Message, *streamTestPayload) error { return nil }
	cfg := messagepipeline.StreamingServiceConfig{}

	_, err := messagepipeline.NewStreamingService[streamTestPayload](cfg, nil, noopTransformer, noopProcessor, zerolog.Nop())
	assert.Error(t, err)
	_, err = messagepipeline.NewStreamingService[streamTestPayload](cfg, NewMockMessageConsumer(1), nil, noopProcessor, zerolog.Nop())
	assert.Error(t, err)
	_, err = messagepipeline.NewStreamingService[streamTestPayload](cfg, NewMockMessageConsumer(1), noopTransformer, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestStreamingService_Lifecycle(t *testing.T) {
	processor := func(context.Context, messagepipeline.Message, *streamTestPayload) error { return nil }
	service, consumer := newTestStreamingService(t, processor)

	startService(t, service)
	assert.Equal(t, 1, consumer.GetStartCount())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, service.Stop(stopCtx))
	assert.Equal(t, 1, consumer.GetStopCount())
}

func TestStreamingService_MessageOutcomes(t *testing.T) {
	testCases := []struct {
		name         string
		payload      string
		processorErr error
		expectAck    bool
		expectCalled bool
	}{
		{name: "success acks", payload: "original", expectAck: true, expectCalled: true},
		{name: "skip acks without processing", payload: "skip", expectAck: true},
		{name: "transform error nacks", payload: "transform_error"},
		{name: "processor error nacks", payload: "process_me", processorErr: errors.New("processing failed"), expectCalled: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var processorCalled atomic.Bool
			processor := func(_ context.Context, _ messagepipeline.Message, payload *streamTestPayload) error {
				processorCalled.Store(true)
				assert.Equal(t, tc.payload, payload.Data)
				return tc.processorErr
			}
			service, consumer := newTestStreamingService(t, processor)
			startService(t, service)

			var acked, nacked atomic.Bool
			consumer.Push(messagepipeline.Message{
				MessageData: messagepipeline.MessageData{ID: "msg-" + tc.payload, Payload: []byte(tc.payload)},
				Ack:         func() { acked.Store(true) },
				Nack:        func() { nacked.Store(true) },
			})

			require.Eventually(t, func() bool {
				return acked.Load() || nacked.Load()
			}, time.Second, 10*time.Millisecond, "message was never settled")
			assert.Equal(t, tc.expectAck, acked.Load())
			assert.Equal(t, !tc.expectAck, nacked.Load())
			assert.Equal(t, tc.expectCalled, processorCalled.Load())
		})
	}
}

func TestStreamingService_ReportFlowPublishesRESTBody(t *testing.T) {
	consumer := NewMockMessageConsumer(10)
	t.Cleanup(consumer.Close)
	publisher := &mockPublisher{}

	service, err := messagepipeline.NewStreamingService[reportmapper.RESTReportBody](
		messagepipeline.StreamingServiceConfig{Name: "reports", NumWorkers: 2},
		consumer,
		reportmapper.NewTransformer(zerolog.Nop()),
		messagepipeline.NewPublishingProcessor[reportmapper.RESTReportBody](publisher),
		zerolog.Nop(),
	)
	require.NoError(t, err)
	startService(t, service)

	var acked atomic.Bool
	consumer.Push(messagepipeline.Message{
		MessageData: messagepipeline.MessageData{
			ID:      "report-1",
			Payload: []byte(`{"name":"Obj1","address":"Field A","time":"12:00"}`),
		},
		Attributes: map[string]string{"source": "field-unit"},
		Ack:        func() { acked.Store(true) },
		Nack:       func() { t.Error("Nack was called unexpectedly") },
	})

	require.Eventually(t, acked.Load, time.Second, 10*time.Millisecond)
	require.Equal(t, 1, publisher.count())

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.JSONEq(t, `{
		"name":"Obj1","address":"Field A",
		"body":{"userCallsign":null,"dateTime":null,"TimeObserved":"12:00","MethodOfDetection":null,
		"SurveillanceType":null,"DurationofEvent":null,"eventScale":null,"type":null,"Size":null,
		"Equipment":null,"activity":null,"importance":null,"status":null,"Identification":null,
		"AssessedThreats":null,"FinalRemarks":null}
	}`, string(publisher.payloads[0]))
	assert.Equal(t, map[string]string{"source": "field-unit"}, publisher.attributes[0])
}
