// Package metrics holds the Prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsRead counts records parsed out of the source corpus.
	RecordsRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensorcore_records_read_total",
		Help: "Source records successfully parsed.",
	})

	// RecordsSkipped counts records dropped for parse failures.
	RecordsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensorcore_records_skipped_total",
		Help: "Source records skipped due to parse failures.",
	})

	// RecordsWritten counts records in successfully flushed batches.
	RecordsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensorcore_records_written_total",
		Help: "Records handed to the time-series store in successful batches.",
	})

	// RowsInserted counts rows actually inserted (duplicates excluded).
	RowsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensorcore_rows_inserted_total",
		Help: "New rows inserted into the time-series store.",
	})

	// BatchesFailed counts batches abandoned after retries were exhausted.
	BatchesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensorcore_batches_failed_total",
		Help: "Batches abandoned after write retries were exhausted.",
	})

	// WriteRetries counts individual batch write retry attempts.
	WriteRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensorcore_write_retries_total",
		Help: "Batch write attempts beyond the first.",
	})

	// BatchFlushDuration observes the latency of batch flushes.
	BatchFlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sensorcore_batch_flush_duration_seconds",
		Help:    "Wall time of one batch flush, including retries.",
		Buckets: prometheus.DefBuckets,
	})

	// QueryChunks counts chunks fetched by streaming retrievals.
	QueryChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensorcore_query_chunks_total",
		Help: "Chunks fetched from the time-series store by streaming queries.",
	})
)
