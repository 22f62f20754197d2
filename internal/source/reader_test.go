package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"sensorcore/internal/blob"
	"sensorcore/pkg/domain"
)

func stage(t *testing.T, store *blob.MemoryStore, key, content string) {
	t.Helper()
	if _, err := store.Put(context.Background(), key, strings.NewReader(content)); err != nil {
		t.Fatalf("stage %s: %v", key, err)
	}
}

func collect(t *testing.T, r *Reader) ([]domain.RawRecord, Stats) {
	t.Helper()
	var recs []domain.RawRecord
	stats, err := r.ReadRecords(context.Background(), func(rec domain.RawRecord) error {
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("read records: %v", err)
	}
	return recs, stats
}

func TestReadRecordsStreamsCorpus(t *testing.T) {
	store := blob.NewMemory()
	stage(t, store, "timeseries/a.csv",
		";sensor_name;timestamp;sensor_value\n"+
			"0;sensor_00007;2012-12-31 23:07:00+00:00;12.5\n"+
			"1;sensor_00007;2013-02-16 11:03:00+00:00;14.1\n")
	stage(t, store, "timeseries/b.csv",
		"sensor_name;timestamp;sensor_value\n"+
			"sensor_00042;2013-01-01 00:00:00+00:00;-3.25\n")
	// Objects outside the prefix are not part of the corpus.
	stage(t, store, "mapping/mapping.csv", "sensor_name;sensor_uuid\n")

	r := NewReader(store, Config{})
	recs, stats := collect(t, r)

	if stats.ObjectsListed != 2 {
		t.Fatalf("expected 2 objects, got %d", stats.ObjectsListed)
	}
	if stats.RecordsRead != 3 || stats.RecordsSkipped != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].SensorName != "sensor_00007" || recs[0].Value != 12.5 {
		t.Fatalf("unexpected first record: %+v", recs[0])
	}
	if recs[0].Object != "timeseries/a.csv" || recs[0].Line != 2 {
		t.Fatalf("missing provenance: %+v", recs[0])
	}
	if got := recs[2].SensorName; got != "sensor_00042" {
		t.Fatalf("unexpected last record sensor: %s", got)
	}
}

func TestReadRecordsSkipsBadRowsNotFiles(t *testing.T) {
	store := blob.NewMemory()
	stage(t, store, "timeseries/mixed.csv",
		"sensor_name;timestamp;sensor_value\n"+
			"sensor_a;2013-01-01 00:00:00+00:00;1.0\n"+
			"sensor_b;not-a-timestamp;2.0\n"+
			";2013-01-02 00:00:00+00:00;3.0\n"+
			"sensor_c;2013-01-03 00:00:00+00:00;not-a-number\n"+
			"sensor_d;2013-01-04 00:00:00+00:00;4.0\n")
	stage(t, store, "timeseries/headerless.csv", "")
	stage(t, store, "timeseries/wrongheader.csv",
		"foo;bar\n1;2\n")
	stage(t, store, "timeseries/z.csv",
		"sensor_name;timestamp;sensor_value\n"+
			"sensor_e;2013-01-05 00:00:00+00:00;5.0\n")

	recs, stats := collect(t, NewReader(store, Config{}))

	// One corrupt object must not stop ingestion of the rest.
	if stats.RecordsRead != 3 {
		t.Fatalf("expected 3 good records, got %d (stats %+v)", stats.RecordsRead, stats)
	}
	if stats.RecordsSkipped != 5 {
		t.Fatalf("expected 5 skips (3 rows + 2 objects), got %d", stats.RecordsSkipped)
	}
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, r.SensorName)
	}
	if fmt.Sprint(names) != "[sensor_a sensor_d sensor_e]" {
		t.Fatalf("unexpected surviving records: %v", names)
	}
}

func TestReadRecordsPropagatesCallbackError(t *testing.T) {
	store := blob.NewMemory()
	stage(t, store, "timeseries/a.csv",
		"sensor_name;timestamp;sensor_value\n"+
			"sensor_a;2013-01-01 00:00:00+00:00;1.0\n")
	wantErr := errors.New("stop")
	_, err := NewReader(store, Config{}).ReadRecords(context.Background(),
		func(domain.RawRecord) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestReadRecordsEmptyCorpus(t *testing.T) {
	recs, stats := collect(t, NewReader(blob.NewMemory(), Config{}))
	if len(recs) != 0 || stats.ObjectsListed != 0 {
		t.Fatalf("expected empty result, got %d recs, %+v", len(recs), stats)
	}
}

func TestReadMappings(t *testing.T) {
	store := blob.NewMemory()
	stage(t, store, "mapping/mapping.csv",
		"sensor_name;sensor_uuid\n"+
			"sensor_a;7f8a1f64-9d2e-4b7a-9e1c-0a6d1c2b3d4e\n"+
			"sensor_bad;not-a-uuid\n"+
			"sensor_b;3d1a2b3c-4d5e-6f70-8192-a3b4c5d6e7f8\n")

	infos, skipped, err := NewReader(store, Config{}).ReadMappings(context.Background())
	if err != nil {
		t.Fatalf("read mappings: %v", err)
	}
	if len(infos) != 2 || skipped != 1 {
		t.Fatalf("expected 2 mappings and 1 skip, got %d and %d", len(infos), skipped)
	}
	if infos[0].SensorName != "sensor_a" {
		t.Fatalf("unexpected mapping order: %+v", infos)
	}
}

func TestReadMappingsMissingFile(t *testing.T) {
	_, _, err := NewReader(blob.NewMemory(), Config{}).ReadMappings(context.Background())
	if !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected blob.ErrNotFound, got %v", err)
	}
}
