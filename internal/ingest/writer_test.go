package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"sensorcore/pkg/domain"
)

// fakeTSStore records batches and can fail a configurable number of calls.
type fakeTSStore struct {
	batches   [][]domain.Measurement
	calls     int
	failNext  int
	failAlway bool
}

func (f *fakeTSStore) InsertBatch(_ context.Context, batch []domain.Measurement) (int64, error) {
	f.calls++
	if f.failAlway || f.failNext > 0 {
		if f.failNext > 0 {
			f.failNext--
		}
		return 0, errors.New("connection reset")
	}
	cp := make([]domain.Measurement, len(batch))
	copy(cp, batch)
	f.batches = append(f.batches, cp)
	return int64(len(batch)), nil
}

func fastConfig(batchSize int, attempts uint64) WriterConfig {
	return WriterConfig{BatchSize: batchSize, MaxAttempts: attempts, InitialBackoff: time.Millisecond}
}

func sample(n int) []domain.Measurement {
	id := uuid.New()
	base := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Measurement, n)
	for i := range out {
		out[i] = domain.Measurement{SensorUUID: id, Timestamp: base.Add(time.Duration(i) * time.Minute), Value: float64(i)}
	}
	return out
}

func TestWriterFlushesFullBatches(t *testing.T) {
	store := &fakeTSStore{}
	w := NewWriter(store, fastConfig(2, 1))
	ctx := context.Background()

	for _, m := range sample(5) {
		if err := w.Add(ctx, m); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("final flush: %v", err)
	}
	if len(store.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(store.batches))
	}
	if len(store.batches[0]) != 2 || len(store.batches[2]) != 1 {
		t.Fatalf("unexpected batch sizes: %d/%d/%d",
			len(store.batches[0]), len(store.batches[1]), len(store.batches[2]))
	}
	st := w.Stats()
	if st.Written != 5 || st.Inserted != 5 || st.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	// Flushing an empty buffer is a no-op.
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("empty flush: %v", err)
	}
}

func TestWriterRetriesTransientFailure(t *testing.T) {
	store := &fakeTSStore{failNext: 2}
	w := NewWriter(store, fastConfig(10, 3))
	ctx := context.Background()

	for _, m := range sample(3) {
		if err := w.Add(ctx, m); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("flush should succeed on third attempt: %v", err)
	}
	if store.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", store.calls)
	}
	if st := w.Stats(); st.Written != 3 || st.BatchesFailed != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestWriterAbandonsBatchAfterRetries(t *testing.T) {
	store := &fakeTSStore{failAlway: true}
	w := NewWriter(store, fastConfig(2, 2))
	ctx := context.Background()

	ms := sample(2)
	if err := w.Add(ctx, ms[0]); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := w.Add(ctx, ms[1])
	if err == nil {
		t.Fatalf("expected batch failure")
	}
	if !IsBatchError(err) {
		t.Fatalf("expected BatchError, got %v", err)
	}
	var be *domain.BatchError
	if !errors.As(err, &be) || be.Records != 2 {
		t.Fatalf("unexpected batch error: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", store.calls)
	}
	st := w.Stats()
	if st.Failed != 2 || st.BatchesFailed != 1 || st.Written != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	// A failed batch must not block subsequent batches.
	store.failAlway = false
	for _, m := range sample(2) {
		if err := w.Add(ctx, m); err != nil {
			t.Fatalf("add after failure: %v", err)
		}
	}
	if st := w.Stats(); st.Written != 2 {
		t.Fatalf("subsequent batch not written: %+v", st)
	}
}

func TestWriterCancelledContextIsFatal(t *testing.T) {
	store := &fakeTSStore{failAlway: true}
	w := NewWriter(store, fastConfig(1, 10))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Add(ctx, sample(1)[0])
	if err == nil || IsBatchError(err) {
		t.Fatalf("expected fatal context error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
