package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"sensorcore/internal/blob"
	"sensorcore/internal/metrics"
	"sensorcore/internal/source"
	"sensorcore/pkg/domain"
	"sensorcore/pkg/logger"
)

// Source yields the raw corpus: measurement records and the optional
// mapping seed file.
type Source interface {
	ReadRecords(ctx context.Context, fn source.RecordFunc) (source.Stats, error)
	ReadMappings(ctx context.Context) ([]domain.SensorInfo, int, error)
}

// Resolver maps sensor names to stable identifiers.
type Resolver interface {
	Resolve(ctx context.Context, name string) (uuid.UUID, error)
}

// Seeder accepts explicit mapping pairs ahead of measurement ingestion.
type Seeder interface {
	SeedMappings(ctx context.Context, infos []domain.SensorInfo) error
}

// HealthChecker verifies the stores answer before a run starts.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Orchestrator wires Reader -> Resolver -> Writer for one ingestion run.
// A run accumulates per-record and per-batch failures and always ends with
// a summary; only an unreachable source or store at startup is fatal.
type Orchestrator struct {
	src      Source
	resolver Resolver
	writer   *Writer
	seeder   Seeder
	health   HealthChecker

	state  domain.RunState
	errs   []error
	log    *logger.Logger
	ranYet bool
}

// NewOrchestrator assembles a run. seeder and health may be nil when the
// deployment has no mapping file or no meaningful health probe.
func NewOrchestrator(src Source, resolver Resolver, writer *Writer, seeder Seeder, health HealthChecker) *Orchestrator {
	return &Orchestrator{
		src:      src,
		resolver: resolver,
		writer:   writer,
		seeder:   seeder,
		health:   health,
		state:    domain.RunNotStarted,
		log:      logger.GetLogger("ingest"),
	}
}

// State reports where the run is in its lifecycle.
func (o *Orchestrator) State() domain.RunState { return o.state }

// Errors returns the accumulated non-fatal errors of the run, combined.
func (o *Orchestrator) Errors() error { return multierr.Combine(o.errs...) }

// Run executes the pipeline end to end and returns the run summary. The
// returned error is non-nil only for fatal conditions; degraded runs report
// through the summary and Errors instead.
func (o *Orchestrator) Run(ctx context.Context) (domain.RunSummary, error) {
	if o.ranYet {
		return domain.RunSummary{State: o.state}, fmt.Errorf("orchestrator already ran")
	}
	o.ranYet = true
	o.state = domain.RunRunning
	o.log.Info().Msg("ingestion run starting")

	if o.health != nil {
		if err := o.health.HealthCheck(ctx); err != nil {
			o.state = domain.RunNotStarted
			return domain.RunSummary{State: o.state}, err
		}
	}

	if err := o.seedMappings(ctx); err != nil {
		o.state = domain.RunNotStarted
		return domain.RunSummary{State: o.state}, err
	}

	resolved := 0
	resolveFailed := 0
	stats, err := o.src.ReadRecords(ctx, func(rec domain.RawRecord) error {
		metrics.RecordsRead.Inc()
		id, rerr := o.resolver.Resolve(ctx, rec.SensorName)
		if rerr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			resolveFailed++
			o.errs = append(o.errs, fmt.Errorf("resolve %q (%s line %d): %w", rec.SensorName, rec.Object, rec.Line, rerr))
			o.log.Warn().Str("sensor", rec.SensorName).Str("object", rec.Object).Int("line", rec.Line).
				Err(rerr).Msg("resolution failed, dropping record")
			return nil
		}
		resolved++
		werr := o.writer.Add(ctx, domain.Measurement{SensorUUID: id, Timestamp: rec.Timestamp, Value: rec.Value})
		if werr != nil {
			if IsBatchError(werr) {
				o.errs = append(o.errs, werr)
				return nil
			}
			return werr
		}
		return nil
	})
	if err != nil {
		// Reader failure is fatal: the source is unreachable or the flow
		// was cancelled. Flush what we have so the blast radius stays at
		// one batch.
		if ferr := o.writer.Flush(ctx); ferr != nil && !IsBatchError(ferr) {
			err = multierr.Append(err, ferr)
		}
		o.state = domain.RunCompletedWithErrors
		return o.summary(stats, resolved, resolveFailed), err
	}
	if ferr := o.writer.Flush(ctx); ferr != nil {
		if !IsBatchError(ferr) {
			o.state = domain.RunCompletedWithErrors
			return o.summary(stats, resolved, resolveFailed), ferr
		}
		o.errs = append(o.errs, ferr)
	}

	metrics.RecordsSkipped.Add(float64(stats.RecordsSkipped))
	sum := o.summary(stats, resolved, resolveFailed)
	if sum.Degraded() || len(o.errs) > 0 {
		o.state = domain.RunCompletedWithErrors
	} else {
		o.state = domain.RunCompleted
	}
	sum.State = o.state
	o.log.Info().
		Int("objects", sum.ObjectsListed).
		Int("read", sum.RecordsRead).
		Int("skipped", sum.RecordsSkipped).
		Int("resolved", sum.RecordsResolved).
		Int("written", sum.RecordsWritten).
		Int("failed", sum.RecordsFailed).
		Int("batches_failed", sum.BatchesFailed).
		Str("state", string(sum.State)).
		Msg("ingestion run finished")
	return sum, nil
}

// seedMappings loads the explicit mapping file when present. A missing file
// is fine; a store rejection is fatal because the metadata store is the
// next thing every record needs.
func (o *Orchestrator) seedMappings(ctx context.Context) error {
	if o.seeder == nil {
		return nil
	}
	infos, skipped, err := o.src.ReadMappings(ctx)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			o.log.Debug().Msg("no mapping seed file, skipping")
			return nil
		}
		o.log.Warn().Err(err).Msg("mapping seed file unreadable, skipping")
		return nil
	}
	if skipped > 0 {
		o.log.Warn().Int("rows", skipped).Msg("mapping rows skipped")
	}
	if len(infos) == 0 {
		return nil
	}
	if err := o.seeder.SeedMappings(ctx, infos); err != nil {
		return fmt.Errorf("seed mappings: %w", err)
	}
	o.log.Info().Int("mappings", len(infos)).Msg("seeded explicit mappings")
	return nil
}

func (o *Orchestrator) summary(stats source.Stats, resolved, resolveFailed int) domain.RunSummary {
	ws := o.writer.Stats()
	return domain.RunSummary{
		State:           o.state,
		ObjectsListed:   stats.ObjectsListed,
		RecordsRead:     stats.RecordsRead,
		RecordsSkipped:  stats.RecordsSkipped,
		RecordsResolved: resolved,
		RecordsWritten:  ws.Written,
		RecordsFailed:   ws.Failed + resolveFailed,
		BatchesFailed:   ws.BatchesFailed,
	}
}
