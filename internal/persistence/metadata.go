package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"sensorcore/pkg/domain"
)

// MetadataStore reads and writes the sensor_info table. Uniqueness of
// sensor_name is enforced by the store, not in-process: concurrent
// first-sight inserts of the same name are resolved by the conflict clause.
type MetadataStore struct {
	db *sql.DB
}

// NewMetadataStore wraps the metadata database handle.
func NewMetadataStore(db *sql.DB) *MetadataStore { return &MetadataStore{db: db} }

// LookupSensor returns the identifier for name, or found=false when the name
// has never been registered.
func (s *MetadataStore) LookupSensor(ctx context.Context, name string) (uuid.UUID, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT sensor_uuid FROM sensor_info WHERE sensor_name = $1`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("lookup sensor %q: %w", name, err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("sensor %q has malformed identifier %q: %w", name, raw, err)
	}
	return id, true, nil
}

// RegisterSensor inserts a (name, identifier) mapping, tolerating a
// concurrent insert of the same name. It returns the identifier that ended
// up owning the name, which may differ from the one proposed when another
// writer got there first.
func (s *MetadataStore) RegisterSensor(ctx context.Context, info domain.SensorInfo) (uuid.UUID, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sensor_info (sensor_uuid, sensor_name) VALUES ($1, $2)
		 ON CONFLICT (sensor_name) DO NOTHING`,
		info.SensorUUID.String(), info.SensorName)
	if err != nil {
		return uuid.Nil, fmt.Errorf("register sensor %q: %w", info.SensorName, err)
	}
	id, found, err := s.LookupSensor(ctx, info.SensorName)
	if err != nil {
		return uuid.Nil, err
	}
	if !found {
		return uuid.Nil, fmt.Errorf("sensor %q missing after insert", info.SensorName)
	}
	return id, nil
}

// SeedMappings bulk-inserts explicit (name, identifier) pairs, skipping any
// name or identifier already present. Used by the mapping-file ingestion
// stage; lazily created mappings and seeded ones coexist.
func (s *MetadataStore) SeedMappings(ctx context.Context, infos []domain.SensorInfo) error {
	if len(infos) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO sensor_info (sensor_uuid, sensor_name) VALUES `)
	args := make([]any, 0, len(infos)*2)
	for i, info := range infos {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d, $%d)", i*2+1, i*2+2)
		args = append(args, info.SensorUUID.String(), info.SensorName)
	}
	// Bare DO NOTHING: a seed row may collide on either the name or the
	// identifier and both cases mean "mapping already decided".
	sb.WriteString(` ON CONFLICT DO NOTHING`)
	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("seed %d mappings: %w", len(infos), err)
	}
	return nil
}
