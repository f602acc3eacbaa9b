package bqstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// BatchInserterConfig holds configuration for the BatchInserter.
type BatchInserterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"` // How often to flush a partial batch.
	InsertTimeout time.Duration `yaml:"insert_timeout"` // Timeout for a single flush.
}

// NewBatchInserterDefaults returns a config suitable for a low-volume archive.
func NewBatchInserterDefaults() *BatchInserterConfig {
	return &BatchInserterConfig{
		BatchSize:     50,
		FlushInterval: 5 * time.Second,
		InsertTimeout: 30 * time.Second,
	}
}

// ErrBatcherStopped is returned by Enqueue once the batcher no longer accepts items.
var ErrBatcherStopped = errors.New("batcher is stopped")

// BatchInserter collects items of type T and writes them in batches.
// A failed batch is logged and dropped.
type BatchInserter[T any] struct {
	config     *BatchInserterConfig
	inserter   DataBatchInserter[T]
	logger     zerolog.Logger
	inputChan  chan *T
	workerDone chan struct{}
	wg         sync.WaitGroup
	stopOnce   sync.Once

	mu      sync.RWMutex
	stopped bool
}

// NewBatcher creates a new BatchInserter. Call Start before sending to Input.
func NewBatcher[T any](
	config *BatchInserterConfig,
	inserter DataBatchInserter[T],
	logger zerolog.Logger,
) (*BatchInserter[T], error) {
	if config == nil || config.BatchSize <= 0 || config.FlushInterval <= 0 {
		return nil, errors.New("batch size and flush interval must be positive")
	}
	if inserter == nil {
		return nil, errors.New("inserter cannot be nil")
	}
	return &BatchInserter[T]{
		config:     config,
		inserter:   inserter,
		logger:     logger.With().Str("component", "BatchInserter").Logger(),
		inputChan:  make(chan *T, config.BatchSize*2),
		workerDone: make(chan struct{}),
	}, nil
}

// Start begins the batching worker.
func (b *BatchInserter[T]) Start(ctx context.Context) {
	b.logger.Info().
		Int("batch_size", b.config.BatchSize).
		Dur("flush_interval", b.config.FlushInterval).
		Msg("Starting BatchInserter worker...")
	b.wg.Add(1)
	go b.worker(ctx)
}

// Stop closes the input, flushes the final partial batch and closes the inserter.
// Enqueue calls racing Stop either land before the close or get ErrBatcherStopped.
func (b *BatchInserter[T]) Stop(ctx context.Context) error {
	var stopErr error
	b.stopOnce.Do(func() {
		b.logger.Info().Msg("Stopping BatchInserter...")
		// Enqueue sends under the read lock, so no send can race the close.
		b.mu.Lock()
		b.stopped = true
		close(b.inputChan)
		b.mu.Unlock()

		done := make(chan struct{})
		go func() {
			b.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			b.logger.Error().Err(ctx.Err()).Msg("Timeout waiting for BatchInserter worker to stop.")
			stopErr = ctx.Err()
			return
		}

		if err := b.inserter.Close(); err != nil {
			b.logger.Error().Err(err).Msg("Error closing underlying data inserter")
		}
		b.logger.Info().Msg("BatchInserter stopped.")
	})
	return stopErr
}

// Enqueue queues item for the next batch. It blocks while the queue is full and
// returns ctx.Err() if ctx ends first. After Stop, or once the worker has exited, it
// returns ErrBatcherStopped.
func (b *BatchInserter[T]) Enqueue(ctx context.Context, item *T) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		return ErrBatcherStopped
	}
	select {
	case b.inputChan <- item:
		return nil
	case <-b.workerDone:
		return ErrBatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *BatchInserter[T]) worker(ctx context.Context) {
	defer b.wg.Done()
	defer close(b.workerDone)
	batch := make([]*T, 0, b.config.BatchSize)
	ticker := time.NewTicker(b.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.flush(context.Background(), batch)
			return

		case item, ok := <-b.inputChan:
			if !ok {
				b.flush(context.Background(), batch)
				return
			}
			batch = append(batch, item)
			if len(batch) >= b.config.BatchSize {
				b.flush(ctx, batch)
				batch = make([]*T, 0, b.config.BatchSize)
				ticker.Reset(b.config.FlushInterval)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				b.flush(ctx, batch)
				batch = make([]*T, 0, b.config.BatchSize)
			}
		}
	}
}

func (b *BatchInserter[T]) flush(ctx context.Context, batch []*T) {
	if len(batch) == 0 {
		return
	}

	insertCtx := ctx
	if b.config.InsertTimeout > 0 {
		var cancel context.CancelFunc
		insertCtx, cancel = context.WithTimeout(ctx, b.config.InsertTimeout)
		defer cancel()
	}

	if err := b.inserter.InsertBatch(insertCtx, batch); err != nil {
		b.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("Failed to insert batch, dropping it.")
		return
	}
	b.logger.Debug().Int("batch_size", len(batch)).Msg("Flushed batch.")
}
