// Package buffered provides a batch buffer shared by the ledger backends.
package buffered

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ledgerbot/ledgerbot/pkg/api"
)

// DefaultBatchSize is the default number of expenses to buffer before flushing.
const DefaultBatchSize = 10

// DefaultFlushInterval is the default interval between automatic flushes.
const DefaultFlushInterval = 5 * time.Second

// Flusher appends a batch of expenses to the underlying ledger.
type Flusher func(expenses []*api.Expense) error

// Config holds configuration for buffered writing.
type Config struct {
	// BatchSize is the number of expenses to buffer before flushing.
	// Defaults to DefaultBatchSize.
	BatchSize int
	// FlushInterval is the interval between automatic flushes.
	// Defaults to DefaultFlushInterval.
	FlushInterval time.Duration
}

// Writer buffers expenses and flushes them in batches. After every flush
// attempt it reports one WriteResult per buffered expense, carrying the
// flush error on failure, so the chat gateway can answer the user either
// way.
type Writer struct {
	buffer  []*api.Expense
	mu      sync.Mutex
	flusher Flusher
	config  Config
	logger  *slog.Logger
}

// New creates a new buffered writer around the given flusher.
func New(flusher Flusher, cfg Config, logger *slog.Logger) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Writer{
		buffer:  make([]*api.Expense, 0, cfg.BatchSize),
		flusher: flusher,
		config:  cfg,
		logger:  logger,
	}
}

// Write consumes expenses from the input channel and buffers them for
// batch writes. It returns when the context is canceled or the input
// channel closes, flushing whatever remains first.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Expense, results chan<- api.WriteResult) error {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	w.logger.Info("buffered writer started",
		"batch_size", w.config.BatchSize,
		"flush_interval", w.config.FlushInterval,
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("buffered writer stopping, flushing remaining buffer")
			w.flush(ctx, results)
			return ctx.Err()
		case <-ticker.C:
			w.flush(ctx, results)
		case expense, ok := <-in:
			if !ok {
				w.logger.Info("input channel closed, flushing remaining buffer")
				w.flush(ctx, results)
				return nil
			}
			if w.add(expense) {
				w.flush(ctx, results)
			}
		}
	}
}

// add buffers an expense and reports whether the batch is full.
func (w *Writer) add(expense *api.Expense) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer = append(w.buffer, expense)
	return len(w.buffer) >= w.config.BatchSize
}

// flush writes all buffered expenses and reports a result per record.
// A failed flush drops the batch; each record's failure is reported
// rather than re-queued (one append attempt per command). Result sends
// give up on context cancellation so a final flush cannot block on a
// consumer that has already exited.
func (w *Writer) flush(ctx context.Context, results chan<- api.WriteResult) {
	w.mu.Lock()
	if len(w.buffer) == 0 {
		w.mu.Unlock()
		return
	}
	toFlush := make([]*api.Expense, len(w.buffer))
	copy(toFlush, w.buffer)
	w.buffer = w.buffer[:0]
	w.mu.Unlock()

	err := w.flusher(toFlush)
	if err != nil {
		w.logger.Error("failed to flush batch", "count", len(toFlush), "error", err)
	} else {
		w.logger.Info("flushed expenses", "count", len(toFlush))
	}

	if results == nil {
		return
	}
	for _, e := range toFlush {
		if e.MessageID == "" {
			continue
		}
		select {
		case results <- api.WriteResult{MessageID: e.MessageID, Err: err}:
		case <-ctx.Done():
			w.logger.Debug("dropping write results, context canceled",
				"remaining", len(toFlush),
			)
			return
		}
	}
}

// BufferLen returns the current number of buffered expenses.
func (w *Writer) BufferLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}
