package domain

// RunState tracks an ingestion run through its lifecycle.
type RunState string

const (
	// RunNotStarted is the initial state before Run is invoked.
	RunNotStarted RunState = "not_started"
	// RunRunning indicates the pipeline is actively processing the corpus.
	RunRunning RunState = "running"
	// RunCompleted indicates the run finished with no record or batch errors.
	RunCompleted RunState = "completed"
	// RunCompletedWithErrors indicates the run finished but skipped records
	// or abandoned batches along the way.
	RunCompletedWithErrors RunState = "completed_with_errors"
)

// RunSummary aggregates the outcome of one ingestion run. A run always ends
// with a summary, even when degraded; only a fatal startup condition prevents
// one from being produced.
type RunSummary struct {
	State RunState

	ObjectsListed int
	RecordsRead   int
	// RecordsSkipped counts records dropped for parse failures.
	RecordsSkipped int
	// RecordsResolved counts records whose sensor name resolved to an identifier.
	RecordsResolved int
	// RecordsWritten counts records handed to the store in successful batches.
	// Rows already present count as written: the upsert is idempotent.
	RecordsWritten int
	// RecordsFailed counts records in batches abandoned after retries.
	RecordsFailed int
	BatchesFailed int
}

// Degraded reports whether any record was lost to a parse or write failure.
func (s RunSummary) Degraded() bool {
	return s.RecordsSkipped > 0 || s.RecordsFailed > 0 || s.BatchesFailed > 0
}
