package buffered

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ledgerbot/ledgerbot/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func expense(msgID string) *api.Expense {
	return &api.Expense{
		Date:        "2023-06-10",
		Amount:      5,
		Category:    "food",
		Description: "snack",
		Author:      "alice",
		MessageID:   msgID,
	}
}

// collectingFlusher records flushed batches and optionally fails.
type collectingFlusher struct {
	mu      sync.Mutex
	batches [][]*api.Expense
	err     error
}

func (f *collectingFlusher) flush(expenses []*api.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, expenses)
	return f.err
}

func (f *collectingFlusher) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func TestWrite_FlushOnBatchSize(t *testing.T) {
	f := &collectingFlusher{}
	w := New(f.flush, Config{BatchSize: 2, FlushInterval: time.Hour}, testLogger())

	in := make(chan *api.Expense)
	results := make(chan api.WriteResult, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Write(ctx, in, results) }()

	in <- expense("m1")
	in <- expense("m2")

	for i := 0; i < 2; i++ {
		select {
		case res := <-results:
			if res.Err != nil {
				t.Errorf("result %d: unexpected error %v", i, res.Err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for write result")
		}
	}

	if got := f.batchCount(); got != 1 {
		t.Errorf("batch count: got %d, want 1", got)
	}

	close(in)
	if err := <-done; err != nil {
		t.Errorf("Write: %v", err)
	}
}

func TestWrite_FlushOnClose(t *testing.T) {
	f := &collectingFlusher{}
	w := New(f.flush, Config{BatchSize: 10, FlushInterval: time.Hour}, testLogger())

	in := make(chan *api.Expense, 1)
	results := make(chan api.WriteResult, 1)
	in <- expense("m1")
	close(in)

	if err := w.Write(context.Background(), in, results); err != nil {
		t.Fatalf("Write: %v", err)
	}

	res := <-results
	if res.MessageID != "m1" || res.Err != nil {
		t.Errorf("result: got %+v, want success for m1", res)
	}
	if w.BufferLen() != 0 {
		t.Errorf("buffer not drained: %d left", w.BufferLen())
	}
}

func TestWrite_FailedFlushReportsErrors(t *testing.T) {
	wantErr := errors.New("ledger unavailable")
	f := &collectingFlusher{err: wantErr}
	w := New(f.flush, Config{BatchSize: 1, FlushInterval: time.Hour}, testLogger())

	in := make(chan *api.Expense, 1)
	results := make(chan api.WriteResult, 1)
	in <- expense("m1")
	close(in)

	if err := w.Write(context.Background(), in, results); err != nil {
		t.Fatalf("Write: %v", err)
	}

	res := <-results
	if !errors.Is(res.Err, wantErr) {
		t.Errorf("result error: got %v, want %v", res.Err, wantErr)
	}
}

func TestWrite_ShutdownWithoutResultsConsumer(t *testing.T) {
	f := &collectingFlusher{}
	w := New(f.flush, Config{BatchSize: 10, FlushInterval: time.Hour}, testLogger())

	in := make(chan *api.Expense, 1)
	in <- expense("m1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Write(ctx, in, make(chan api.WriteResult)) }()

	// Let the record get buffered, then cancel with nobody reading
	// results. The final flush must not block on the result send.
	for w.BufferLen() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Write: got %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Write did not return after cancellation with no results consumer")
	}

	if got := f.batchCount(); got != 1 {
		t.Errorf("batch count: got %d, want 1 (final flush must still run)", got)
	}
}

func TestWrite_SkipsResultsWithoutMessageID(t *testing.T) {
	f := &collectingFlusher{}
	w := New(f.flush, Config{BatchSize: 1, FlushInterval: time.Hour}, testLogger())

	in := make(chan *api.Expense, 1)
	results := make(chan api.WriteResult, 1)
	in <- expense("")
	close(in)

	if err := w.Write(context.Background(), in, results); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case res := <-results:
		t.Errorf("unexpected result for record without message id: %+v", res)
	default:
	}
}
