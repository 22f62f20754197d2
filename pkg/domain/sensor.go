// Package domain defines the core entities and value types shared by the
// ingestion pipeline and the retrieval engine.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SensorInfo maps a human-readable sensor name to its stable identifier.
// The identifier is assigned once, on first resolution, and never changes.
type SensorInfo struct {
	SensorName string
	SensorUUID uuid.UUID
}

// Measurement is a single resolved observation bound for the time-series store.
// The pair (SensorUUID, Timestamp) is unique; re-inserting an existing pair is
// a no-op.
type Measurement struct {
	SensorUUID uuid.UUID
	Timestamp  time.Time
	Value      float64
}

// Reading is one row of a retrieval result: a timestamped value for the
// sensor the query named.
type Reading struct {
	Timestamp time.Time
	Value     float64
}

// RawRecord is one parsed line from a source object, not yet resolved to a
// sensor identifier.
type RawRecord struct {
	SensorName string
	Timestamp  time.Time
	Value      float64

	// Object and Line locate the record in the source corpus for diagnostics.
	Object string
	Line   int
}
