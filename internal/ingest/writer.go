// Package ingest drives the batch ingestion pipeline: it buffers resolved
// measurements into fixed-size batches, writes them idempotently with
// bounded retries, and orchestrates the reader-resolver-writer flow.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"sensorcore/internal/metrics"
	"sensorcore/pkg/domain"
	"sensorcore/pkg/logger"
)

// MeasurementStore is the slice of the time-series persistence layer the
// writer needs.
type MeasurementStore interface {
	InsertBatch(ctx context.Context, batch []domain.Measurement) (int64, error)
}

// WriterConfig tunes batching and the retry policy. Zero values select the
// defaults.
type WriterConfig struct {
	// BatchSize is the number of records buffered before a flush (default 500).
	BatchSize int
	// MaxAttempts bounds write attempts per batch, first try included (default 3).
	MaxAttempts uint64
	// InitialBackoff is the first retry delay; subsequent delays grow
	// exponentially (default 250ms).
	InitialBackoff time.Duration
}

func (c WriterConfig) withDefaults() WriterConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 250 * time.Millisecond
	}
	return c
}

// WriterStats counts the outcome of all flushes so far.
type WriterStats struct {
	// Written counts records in batches the store accepted. Rows that
	// already existed count as written: the upsert is idempotent.
	Written int
	// Inserted counts rows actually added (duplicates excluded).
	Inserted int64
	// Failed counts records in batches abandoned after retries.
	Failed int
	// BatchesFailed counts abandoned batches.
	BatchesFailed int
}

// Writer accumulates resolved measurements and flushes them in batches.
// It is owned by a single ingestion flow; the buffer needs no locking. No
// state survives a batch boundary beyond the stats counters.
type Writer struct {
	store MeasurementStore
	cfg   WriterConfig
	buf   []domain.Measurement
	stats WriterStats
	log   *logger.Logger
}

// NewWriter builds a batch writer over the given store.
func NewWriter(store MeasurementStore, cfg WriterConfig) *Writer {
	cfg = cfg.withDefaults()
	return &Writer{
		store: store,
		cfg:   cfg,
		buf:   make([]domain.Measurement, 0, cfg.BatchSize),
		log:   logger.GetLogger("writer"),
	}
}

// Add buffers one measurement, flushing when the batch is full. A returned
// *domain.BatchError means that batch was abandoned after retries; the
// caller records it and continues. Any other error is fatal (e.g. context
// cancellation).
func (w *Writer) Add(ctx context.Context, m domain.Measurement) error {
	w.buf = append(w.buf, m)
	if len(w.buf) < w.cfg.BatchSize {
		return nil
	}
	return w.Flush(ctx)
}

// Flush writes the buffered batch, if any. The buffer is released whether
// the batch succeeds or is abandoned: a batch either completes or fails as
// a unit.
func (w *Writer) Flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}
	batch := w.buf
	w.buf = make([]domain.Measurement, 0, w.cfg.BatchSize)

	start := time.Now()
	inserted, err := w.writeWithRetry(ctx, batch)
	metrics.BatchFlushDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.stats.Failed += len(batch)
		w.stats.BatchesFailed++
		metrics.BatchesFailed.Inc()
		w.log.Error().Int("records", len(batch)).Err(err).Msg("abandoning batch after retries")
		return &domain.BatchError{Records: len(batch), Err: err}
	}
	w.stats.Written += len(batch)
	w.stats.Inserted += inserted
	metrics.RecordsWritten.Add(float64(len(batch)))
	metrics.RowsInserted.Add(float64(inserted))
	w.log.Debug().Int("records", len(batch)).Int64("inserted", inserted).Msg("flushed batch")
	return nil
}

func (w *Writer) writeWithRetry(ctx context.Context, batch []domain.Measurement) (int64, error) {
	var inserted int64
	op := func() error {
		n, err := w.store.InsertBatch(ctx, batch)
		if err != nil {
			return err
		}
		inserted = n
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.cfg.InitialBackoff
	notify := func(err error, next time.Duration) {
		metrics.WriteRetries.Inc()
		w.log.Warn().Dur("retry_in", next).Err(err).Msg("batch write failed, retrying")
	}
	err := backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(bo, w.cfg.MaxAttempts-1), ctx),
		notify)
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// Stats returns the flush counters accumulated so far.
func (w *Writer) Stats() WriterStats { return w.stats }

// IsBatchError reports whether err marks a non-fatal abandoned batch.
func IsBatchError(err error) bool {
	var be *domain.BatchError
	return errors.As(err, &be)
}
