package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sensorcore/pkg/domain"
)

// MeasurementStore reads and writes the sensor_measurement table.
type MeasurementStore struct {
	db *sql.DB
}

// NewMeasurementStore wraps the time-series database handle.
func NewMeasurementStore(db *sql.DB) *MeasurementStore { return &MeasurementStore{db: db} }

// InsertBatch bulk-inserts measurements, skipping rows whose
// (sensor_uuid, timestamp) pair already exists. It returns the number of
// rows actually inserted; a smaller number than len(batch) means the rest
// were already present, which is the expected outcome of a re-run.
func (s *MeasurementStore) InsertBatch(ctx context.Context, batch []domain.Measurement) (int64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO sensor_measurement (sensor_uuid, timestamp, sensor_value) VALUES `)
	args := make([]any, 0, len(batch)*3)
	for i, m := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3)
		args = append(args, m.SensorUUID.String(), m.Timestamp.UTC(), m.Value)
	}
	sb.WriteString(` ON CONFLICT (sensor_uuid, timestamp) DO NOTHING`)
	res, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("insert batch of %d: %w", len(batch), err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		// Driver without affected-row support; the write itself succeeded.
		return int64(len(batch)), nil
	}
	return inserted, nil
}

const selectReadings = `SELECT timestamp, sensor_value FROM sensor_measurement
	WHERE sensor_uuid = $1 AND timestamp >= $2 AND timestamp <= $3
	ORDER BY timestamp ASC`

// SelectRange returns up to limit readings for the sensor within
// [start, end], ordered by timestamp ascending, skipping offset rows.
// Offset addressing serves the explicit pagination mode.
func (s *MeasurementStore) SelectRange(ctx context.Context, sensorUUID uuid.UUID, start, end time.Time, limit, offset int) ([]domain.Reading, error) {
	rows, err := s.db.QueryContext(ctx, selectReadings+` LIMIT $4 OFFSET $5`,
		sensorUUID.String(), start.UTC(), end.UTC(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select range: %w", err)
	}
	return scanReadings(rows)
}

// SelectAfter returns up to limit readings strictly after the given
// timestamp and no later than end, ordered ascending. The streaming cursor
// advances on the ordering key with this query; (sensor_uuid, timestamp)
// uniqueness makes the exclusive bound precise.
func (s *MeasurementStore) SelectAfter(ctx context.Context, sensorUUID uuid.UUID, after, end time.Time, limit int) ([]domain.Reading, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, sensor_value FROM sensor_measurement
		 WHERE sensor_uuid = $1 AND timestamp > $2 AND timestamp <= $3
		 ORDER BY timestamp ASC LIMIT $4`,
		sensorUUID.String(), after.UTC(), end.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("select after: %w", err)
	}
	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]domain.Reading, error) {
	defer func() { _ = rows.Close() }()
	var out []domain.Reading
	for rows.Next() {
		var r domain.Reading
		if err := rows.Scan(&r.Timestamp, &r.Value); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.Timestamp = r.Timestamp.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return out, nil
}
