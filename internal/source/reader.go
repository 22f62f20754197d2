// Package source streams raw sensor records out of the object-store corpus.
// Objects are semicolon-separated CSV files with a header row; measurement
// files live under a common prefix, and an optional mapping file pre-seeds
// name-to-identifier pairs.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"sensorcore/internal/blob"
	"sensorcore/pkg/domain"
	"sensorcore/pkg/logger"
)

const (
	// DefaultPrefix is where measurement objects live in the bucket.
	DefaultPrefix = "timeseries/"
	// DefaultMappingKey is the optional seed file of explicit mappings.
	DefaultMappingKey = "mapping/mapping.csv"
	// DefaultSeparator matches the corpus CSV dialect.
	DefaultSeparator = ';'
)

// Config shapes a Reader. Zero values select the corpus defaults.
type Config struct {
	Prefix     string
	MappingKey string
	Separator  rune
}

// Stats counts what a read pass saw.
type Stats struct {
	ObjectsListed  int
	RecordsRead    int
	RecordsSkipped int
}

// RecordFunc consumes one parsed record. Returning an error aborts the read.
type RecordFunc func(domain.RawRecord) error

// Reader lists and streams source objects. It never materializes an object
// list beyond metadata, and object contents are decoded row by row.
type Reader struct {
	store blob.Store
	cfg   Config
	log   *logger.Logger
}

// NewReader builds a Reader over the given object store.
func NewReader(store blob.Store, cfg Config) *Reader {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.MappingKey == "" {
		cfg.MappingKey = DefaultMappingKey
	}
	if cfg.Separator == 0 {
		cfg.Separator = DefaultSeparator
	}
	return &Reader{store: store, cfg: cfg, log: logger.GetLogger("source")}
}

// ReadRecords streams every record under the measurement prefix into fn.
// A listing failure is fatal; a single unreadable object or unparsable
// record is skipped and counted so one corrupt file does not stop the rest
// of the corpus.
func (r *Reader) ReadRecords(ctx context.Context, fn RecordFunc) (Stats, error) {
	var stats Stats
	infos, err := r.store.List(ctx, r.cfg.Prefix)
	if err != nil {
		return stats, fmt.Errorf("list source objects: %w", err)
	}
	stats.ObjectsListed = len(infos)
	for _, info := range infos {
		if err := r.readObject(ctx, info.Key, fn, &stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (r *Reader) readObject(ctx context.Context, key string, fn RecordFunc, stats *Stats) error {
	rc, err := r.store.Get(ctx, key)
	if err != nil {
		// The object was listed but cannot be opened; skip it rather than
		// abandoning the remaining corpus.
		r.log.Warn().Str("object", key).Err(err).Msg("skipping unreadable object")
		stats.RecordsSkipped++
		return nil
	}
	defer func() { _ = rc.Close() }()

	cr := csv.NewReader(rc)
	cr.Comma = r.cfg.Separator
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		r.log.Warn().Str("object", key).Err(err).Msg("skipping object without header")
		stats.RecordsSkipped++
		return nil
	}
	cols, err := mapColumns(header)
	if err != nil {
		r.log.Warn().Str("object", key).Err(err).Msg("skipping object with unusable header")
		stats.RecordsSkipped++
		return nil
	}

	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				stats.RecordsSkipped++
				r.log.Warn().Str("object", key).Int("line", line).Err(err).Msg("skipping malformed row")
				continue
			}
			// Stream broke mid-object; give up on this object only.
			r.log.Warn().Str("object", key).Int("line", line).Err(err).Msg("abandoning object mid-read")
			stats.RecordsSkipped++
			return nil
		}
		rec, perr := parseRecord(row, cols, key, line)
		if perr != nil {
			stats.RecordsSkipped++
			r.log.Warn().Str("object", key).Int("line", line).Err(perr).Msg("skipping unparsable record")
			continue
		}
		stats.RecordsRead++
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// columns locates the fields of interest within a header row.
type columns struct {
	name, timestamp, value int
}

func mapColumns(header []string) (columns, error) {
	cols := columns{name: -1, timestamp: -1, value: -1}
	for i, h := range header {
		switch strings.TrimSpace(strings.ToLower(h)) {
		case "sensor_name":
			cols.name = i
		case "timestamp":
			cols.timestamp = i
		case "sensor_value", "value":
			cols.value = i
		}
	}
	if cols.name < 0 || cols.timestamp < 0 || cols.value < 0 {
		return cols, fmt.Errorf("header missing sensor_name/timestamp/sensor_value: %v", header)
	}
	return cols, nil
}

func parseRecord(row []string, cols columns, object string, line int) (domain.RawRecord, error) {
	max := cols.name
	if cols.timestamp > max {
		max = cols.timestamp
	}
	if cols.value > max {
		max = cols.value
	}
	if len(row) <= max {
		return domain.RawRecord{}, fmt.Errorf("row has %d fields, need %d", len(row), max+1)
	}
	name := strings.TrimSpace(row[cols.name])
	if name == "" {
		return domain.RawRecord{}, fmt.Errorf("empty sensor name")
	}
	ts, err := domain.ParseTimestamp(row[cols.timestamp])
	if err != nil {
		return domain.RawRecord{}, err
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(row[cols.value]), 64)
	if err != nil {
		return domain.RawRecord{}, fmt.Errorf("unparsable value %q: %w", row[cols.value], err)
	}
	return domain.RawRecord{
		SensorName: name,
		Timestamp:  ts,
		Value:      val,
		Object:     object,
		Line:       line,
	}, nil
}

// ReadMappings reads the optional seed file of explicit
// (sensor_name, sensor_uuid) pairs. A missing file is reported via
// blob.ErrNotFound; unparsable rows are skipped and counted.
func (r *Reader) ReadMappings(ctx context.Context) ([]domain.SensorInfo, int, error) {
	rc, err := r.store.Get(ctx, r.cfg.MappingKey)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rc.Close() }()

	cr := csv.NewReader(rc)
	cr.Comma = r.cfg.Separator
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read mapping header: %w", err)
	}
	nameIdx, uuidIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.ToLower(h)) {
		case "sensor_name":
			nameIdx = i
		case "sensor_uuid":
			uuidIdx = i
		}
	}
	if nameIdx < 0 || uuidIdx < 0 {
		return nil, 0, fmt.Errorf("mapping header missing sensor_name/sensor_uuid: %v", header)
	}

	var infos []domain.SensorInfo
	skipped := 0
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			skipped++
			continue
		}
		if len(row) <= nameIdx || len(row) <= uuidIdx {
			skipped++
			continue
		}
		name := strings.TrimSpace(row[nameIdx])
		id, perr := uuid.Parse(strings.TrimSpace(row[uuidIdx]))
		if name == "" || perr != nil {
			skipped++
			r.log.Warn().Str("object", r.cfg.MappingKey).Int("line", line).Msg("skipping invalid mapping row")
			continue
		}
		infos = append(infos, domain.SensorInfo{SensorName: name, SensorUUID: id})
	}
	return infos, skipped, nil
}
