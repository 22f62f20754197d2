package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DDL is created on open rather than through migration tooling: the schema
// is two tables and the constraints are part of the write path's contract
// (conflict-tolerant inserts key on them).

const sensorInfoPostgres = `
CREATE TABLE IF NOT EXISTS sensor_info (
	sensor_uuid UUID PRIMARY KEY,
	sensor_name VARCHAR(100) NOT NULL UNIQUE
);
`

const sensorInfoSQLite = `
CREATE TABLE IF NOT EXISTS sensor_info (
	sensor_uuid TEXT PRIMARY KEY,
	sensor_name TEXT NOT NULL UNIQUE
);
`

const sensorMeasurementPostgres = `
CREATE TABLE IF NOT EXISTS sensor_measurement (
	id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	sensor_uuid UUID NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL,
	sensor_value DOUBLE PRECISION NOT NULL,
	UNIQUE (sensor_uuid, timestamp)
);
CREATE INDEX IF NOT EXISTS idx_sensor_measurement_timestamp
	ON sensor_measurement (timestamp);
`

const sensorMeasurementSQLite = `
CREATE TABLE IF NOT EXISTS sensor_measurement (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sensor_uuid TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	sensor_value REAL NOT NULL,
	UNIQUE (sensor_uuid, timestamp)
);
CREATE INDEX IF NOT EXISTS idx_sensor_measurement_timestamp
	ON sensor_measurement (timestamp);
`

// EnsureSchema applies the table definitions on both databases.
func (d *Databases) EnsureSchema(ctx context.Context) error {
	metaDDL := sensorInfoSQLite
	if d.metaDialect == DialectPostgres {
		metaDDL = sensorInfoPostgres
	}
	if err := execStatements(ctx, d.Metadata, metaDDL); err != nil {
		return fmt.Errorf("metadata schema: %w", err)
	}
	tsDDL := sensorMeasurementSQLite
	if d.tsDialect == DialectPostgres {
		tsDDL = sensorMeasurementPostgres
	}
	if err := execStatements(ctx, d.Timeseries, tsDDL); err != nil {
		return fmt.Errorf("time-series schema: %w", err)
	}
	return nil
}

func execStatements(ctx context.Context, db *sql.DB, ddl string) error {
	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}
