// Package persistence provides SQL access to the two relational stores: the
// metadata database mapping sensor names to identifiers, and the time-series
// database holding individual measurements. Postgres (including TimescaleDB)
// is the production backend via the pgx driver; sqlite backs hermetic tests
// and local development.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // register sqlite as a database/sql driver
)

// Dialect selects the SQL flavor for DDL.
type Dialect string

const (
	// DialectPostgres covers Postgres and TimescaleDB.
	DialectPostgres Dialect = "postgres"
	// DialectSQLite covers modernc sqlite databases.
	DialectSQLite Dialect = "sqlite"
)

// Config names the two database DSNs. Postgres DSNs use the usual
// postgres:// form; anything else is treated as a sqlite path.
type Config struct {
	MetadataDSN   string
	TimeseriesDSN string
}

// OpenFromEnv builds a Config from SENSORCORE_METADATA_DSN and
// SENSORCORE_TIMESERIES_DSN.
func OpenFromEnv(ctx context.Context) (*Databases, error) {
	cfg := Config{
		MetadataDSN:   os.Getenv("SENSORCORE_METADATA_DSN"),
		TimeseriesDSN: os.Getenv("SENSORCORE_TIMESERIES_DSN"),
	}
	return Open(ctx, cfg)
}

// Databases bundles the two store handles for one process.
type Databases struct {
	Metadata   *sql.DB
	Timeseries *sql.DB

	metaDialect Dialect
	tsDialect   Dialect
}

// DialectFor reports the dialect a DSN maps to.
func DialectFor(dsn string) Dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

func openOne(dsn string) (*sql.DB, Dialect, error) {
	if dsn == "" {
		return nil, "", fmt.Errorf("empty DSN")
	}
	dialect := DialectFor(dsn)
	driver := "sqlite"
	if dialect == DialectPostgres {
		driver = "pgx"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", driver, err)
	}
	if dialect == DialectSQLite {
		// modernc sqlite serializes writes per connection; a single
		// connection avoids table-lock errors under concurrent use.
		db.SetMaxOpenConns(1)
	}
	return db, dialect, nil
}

// Open connects to both databases and applies the schema for each. The
// connections are not pinged here; HealthCheck does that explicitly at the
// start of a run.
func Open(ctx context.Context, cfg Config) (*Databases, error) {
	meta, metaDialect, err := openOne(cfg.MetadataDSN)
	if err != nil {
		return nil, fmt.Errorf("metadata store: %w", err)
	}
	ts, tsDialect, err := openOne(cfg.TimeseriesDSN)
	if err != nil {
		_ = meta.Close()
		return nil, fmt.Errorf("time-series store: %w", err)
	}
	d := &Databases{Metadata: meta, Timeseries: ts, metaDialect: metaDialect, tsDialect: tsDialect}
	if err := d.EnsureSchema(ctx); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// HealthCheck verifies both databases answer a trivial query. Failure here
// is fatal for an ingestion run: nothing downstream is attempted.
func (d *Databases) HealthCheck(ctx context.Context) error {
	if _, err := d.Metadata.ExecContext(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("metadata store unreachable: %w", err)
	}
	if _, err := d.Timeseries.ExecContext(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("time-series store unreachable: %w", err)
	}
	return nil
}

// Close releases both database handles.
func (d *Databases) Close() error {
	var first error
	if err := d.Metadata.Close(); err != nil {
		first = err
	}
	if err := d.Timeseries.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
