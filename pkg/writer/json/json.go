// Package json implements a ledger Writer backed by a local JSON file.
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ledgerbot/ledgerbot/pkg/api"
	"github.com/ledgerbot/ledgerbot/pkg/writer/buffered"
)

// Writer appends expenses to a JSON file with buffered batching.
type Writer struct {
	filePath string
	expenses []*api.Expense
	mu       sync.Mutex
	buffered *buffered.Writer
	logger   *slog.Logger
}

// Config holds configuration for the JSON writer.
type Config struct {
	// FilePath is the path to the JSON output file.
	FilePath string
	// BatchSize is the number of expenses to buffer before writing.
	BatchSize int
	// FlushInterval is the interval between automatic flushes.
	FlushInterval time.Duration
}

// New creates a new JSON writer.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w := &Writer{
		filePath: cfg.FilePath,
		expenses: make([]*api.Expense, 0),
		logger:   logger,
	}

	// Load existing expenses if file exists
	if err := w.loadExisting(); err != nil {
		logger.Warn("could not load existing expenses", "error", err)
	}

	w.buffered = buffered.New(w.flushBatch, buffered.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger.With("component", "json_buffer"))

	logger.Info("json writer initialized", "file", cfg.FilePath, "existing_count", len(w.expenses))
	return w, nil
}

// loadExisting loads existing expenses from the JSON file if it exists.
func (w *Writer) loadExisting() error {
	data, err := os.ReadFile(w.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, &w.expenses)
}

// Write consumes expenses from the input channel and writes them to JSON.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Expense, results chan<- api.WriteResult) error {
	return w.buffered.Write(ctx, in, results)
}

// flushBatch appends a batch of expenses and rewrites the JSON file
// (JSON doesn't support appending).
func (w *Writer) flushBatch(expenses []*api.Expense) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.expenses = append(w.expenses, expenses...)

	data, err := json.MarshalIndent(w.expenses, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling json: %w", err)
	}

	if err := os.WriteFile(w.filePath, data, 0o600); err != nil {
		return fmt.Errorf("writing json file: %w", err)
	}

	w.logger.Debug("wrote expenses to json",
		"batch_count", len(expenses),
		"total_count", len(w.expenses),
	)
	return nil
}

// ExpenseCount returns the total number of expenses written.
func (w *Writer) ExpenseCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.expenses)
}
