// Package query serves range queries over ingested measurements, either as
// a bounded-memory streaming cursor or as a single explicit page.
package query

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sensorcore/internal/metrics"
	"sensorcore/pkg/domain"
	"sensorcore/pkg/logger"
)

// DefaultChunkSize is how many rows a streaming cursor fetches per round
// trip to the store.
const DefaultChunkSize = 500

// MeasurementReader is the slice of the time-series persistence layer the
// engine needs.
type MeasurementReader interface {
	SelectRange(ctx context.Context, sensorUUID uuid.UUID, start, end time.Time, limit, offset int) ([]domain.Reading, error)
	SelectAfter(ctx context.Context, sensorUUID uuid.UUID, after, end time.Time, limit int) ([]domain.Reading, error)
}

// SensorLookup resolves a sensor name without creating a mapping.
type SensorLookup interface {
	Lookup(ctx context.Context, name string) (uuid.UUID, bool, error)
}

// Params describes one retrieval request. PageNumber and PageSize must be
// supplied together (explicit pagination) or not at all (streaming mode);
// pages are 1-based.
type Params struct {
	SensorName string
	Start      time.Time
	End        time.Time
	PageNumber *int
	PageSize   *int
}

// Engine answers range queries. It is read-only and safe for concurrent use
// as long as its lookup is (each call owns its cursor).
type Engine struct {
	lookup    SensorLookup
	store     MeasurementReader
	chunkSize int
	log       *logger.Logger
}

// NewEngine builds a retrieval engine. chunkSize <= 0 selects
// DefaultChunkSize.
func NewEngine(lookup SensorLookup, store MeasurementReader, chunkSize int) *Engine {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Engine{lookup: lookup, store: store, chunkSize: chunkSize, log: logger.GetLogger("query")}
}

// validate rejects malformed requests before any I/O happens.
func validate(p Params) error {
	if p.SensorName == "" {
		return domain.ErrEmptySensorName
	}
	if p.Start.IsZero() || p.End.IsZero() {
		return domain.NewUsageError("start and end timestamps are required")
	}
	if p.Start.After(p.End) {
		return domain.NewUsageError("start timestamp %s is after end timestamp %s",
			p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
	}
	if (p.PageNumber == nil) != (p.PageSize == nil) {
		return domain.NewUsageError("page-number and page-size must be supplied together")
	}
	if p.PageNumber != nil {
		if *p.PageNumber < 1 {
			return domain.NewUsageError("page-number must be a positive integer")
		}
		if *p.PageSize < 1 {
			return domain.NewUsageError("page-size must be a positive integer")
		}
	}
	return nil
}

// Query validates params and returns a cursor over the result. In streaming
// mode the cursor lazily fetches fixed-size chunks; in paged mode it holds
// exactly the requested page. A sensor name that has never reported data
// yields an empty cursor, not an error.
func (e *Engine) Query(ctx context.Context, p Params) (*Cursor, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	id, found, err := e.lookup.Lookup(ctx, p.SensorName)
	if err != nil {
		return nil, err
	}
	if !found {
		e.log.Debug().Str("sensor", p.SensorName).Msg("unknown sensor, empty result")
		return &Cursor{done: true}, nil
	}
	if p.PageNumber != nil {
		page, err := e.page(ctx, id, p.Start, p.End, *p.PageNumber, *p.PageSize)
		if err != nil {
			return nil, err
		}
		return &Cursor{buf: page, done: true}, nil
	}
	return &Cursor{
		ctx:   ctx,
		store: e.store,
		id:    id,
		start: p.Start,
		end:   p.End,
		chunk: e.chunkSize,
	}, nil
}

// page fetches the slice of the ordered result set at offset
// (pageNumber-1)*pageSize. A page past the end is empty, not an error.
func (e *Engine) page(ctx context.Context, id uuid.UUID, start, end time.Time, pageNumber, pageSize int) ([]domain.Reading, error) {
	offset := (pageNumber - 1) * pageSize
	return e.store.SelectRange(ctx, id, start, end, pageSize, offset)
}

// Cursor is a forward-only iterator over a query result, in timestamp
// order. It follows the sql.Rows protocol: Next, then Reading, then Err
// after exhaustion.
type Cursor struct {
	ctx   context.Context
	store MeasurementReader
	id    uuid.UUID
	start time.Time
	end   time.Time
	chunk int

	buf     []domain.Reading
	idx     int
	cur     domain.Reading
	fetched bool
	done    bool
	err     error
}

// Next advances to the next reading, fetching the next chunk from the store
// when the buffer is drained. It returns false at the end of the result or
// on error.
func (c *Cursor) Next() bool {
	for {
		if c.idx < len(c.buf) {
			c.cur = c.buf[c.idx]
			c.idx++
			return true
		}
		if c.done || c.err != nil {
			return false
		}
		c.fetch()
	}
}

// fetch loads the next chunk. The cursor advances on the ordering key: the
// first chunk starts at the inclusive range start, later chunks strictly
// after the last seen timestamp. A short chunk is terminal.
func (c *Cursor) fetch() {
	var (
		rows []domain.Reading
		err  error
	)
	if !c.fetched {
		rows, err = c.store.SelectRange(c.ctx, c.id, c.start, c.end, c.chunk, 0)
	} else {
		rows, err = c.store.SelectAfter(c.ctx, c.id, c.cur.Timestamp, c.end, c.chunk)
	}
	c.fetched = true
	if err != nil {
		c.err = err
		c.done = true
		return
	}
	metrics.QueryChunks.Inc()
	c.buf = rows
	c.idx = 0
	if len(rows) < c.chunk {
		c.done = true
	}
}

// Reading returns the row Next advanced to.
func (c *Cursor) Reading() domain.Reading { return c.cur }

// Err returns the first error the cursor hit, if any.
func (c *Cursor) Err() error { return c.err }
