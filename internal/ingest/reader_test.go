package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/flight"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/pkg/logger"
)

func writeBatchFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write batch file: %v", err)
	}
	return path
}

const validBatch = `timestamp,icao_address,callsign,latitude,longitude,altitude_baro,departure_airport_icao,arrival_airport_icao
2024-02-05 13:45:12.000 UTC,4CA123,BAW123,51.47,-0.45,1200,EGLL,EGPH
2024-02-05 13:46:12.000 UTC,4CA123,BAW123,51.55,-0.40,4500,EGLL,EGPH
2024-02-05 13:47:12.000 UTC,4CA123,BAW123,51.63,-0.35,,EGLL,
`

func TestReadChunk(t *testing.T) {
	dir := t.TempDir()
	path := writeBatchFile(t, dir, "batch_001.csv", validBatch)

	r := NewReader(logger.NewNop())
	recs, err := r.ReadChunk([]string{path})
	if err != nil {
		t.Fatalf("ReadChunk failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}

	first := recs[0]
	want := time.Date(2024, 2, 5, 13, 45, 12, 0, time.UTC)
	if !first.Timestamp.Equal(want) {
		t.Errorf("expected timestamp %v, got %v", want, first.Timestamp)
	}
	if first.ICAOAddress != "4CA123" {
		t.Errorf("expected icao 4CA123, got %q", first.ICAOAddress)
	}
	if first.Callsign != "BAW123" {
		t.Errorf("expected callsign BAW123, got %q", first.Callsign)
	}
	if first.Latitude != 51.47 || first.Longitude != -0.45 {
		t.Errorf("unexpected position: %v, %v", first.Latitude, first.Longitude)
	}
	if first.DepartureAirport != "EGLL" || first.ArrivalAirport != "EGPH" {
		t.Errorf("unexpected route: %q -> %q", first.DepartureAirport, first.ArrivalAirport)
	}
	if first.FlightID != flight.UnassignedFlightID {
		t.Errorf("expected unassigned flight id, got %d", first.FlightID)
	}

	// Empty altitude and arrival fields pass through as zero values.
	if recs[2].AltitudeBaro != 0 {
		t.Errorf("expected zero altitude for empty field, got %v", recs[2].AltitudeBaro)
	}
	if recs[2].ArrivalAirport != "" {
		t.Errorf("expected empty arrival, got %q", recs[2].ArrivalAirport)
	}
}

func TestReadChunkConcatenatesFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeBatchFile(t, dir, "a.csv", validBatch)
	b := writeBatchFile(t, dir, "b.csv", validBatch)

	r := NewReader(logger.NewNop())
	recs, err := r.ReadChunk([]string{a, b})
	if err != nil {
		t.Fatalf("ReadChunk failed: %v", err)
	}
	if len(recs) != 6 {
		t.Errorf("expected 6 records across 2 files, got %d", len(recs))
	}
}

func TestReadChunkMissingColumnsIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeBatchFile(t, dir, "bad.csv",
		"timestamp,icao_address,latitude,longitude\n2024-02-05 13:45:12.000 UTC,4CA123,51.47,-0.45\n")

	r := NewReader(logger.NewNop())
	_, err := r.ReadChunk([]string{path})
	if err == nil {
		t.Fatal("expected schema error, got nil")
	}
	if !strings.Contains(err.Error(), "missing required columns") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReadChunkWithoutCallsignColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeBatchFile(t, dir, "nocallsign.csv",
		"timestamp,icao_address,latitude,longitude,altitude_baro,departure_airport_icao,arrival_airport_icao\n"+
			"2024-02-05 13:45:12.000 UTC,4CA123,51.47,-0.45,1200,EGLL,EGPH\n")

	r := NewReader(logger.NewNop())
	recs, err := r.ReadChunk([]string{path})
	if err != nil {
		t.Fatalf("ReadChunk failed: %v", err)
	}
	if recs[0].Callsign != "" {
		t.Errorf("expected empty callsign, got %q", recs[0].Callsign)
	}
}

func TestReadChunkBadRowIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeBatchFile(t, dir, "badrow.csv",
		"timestamp,icao_address,latitude,longitude,altitude_baro,departure_airport_icao,arrival_airport_icao\n"+
			"not-a-timestamp,4CA123,51.47,-0.45,1200,EGLL,EGPH\n")

	r := NewReader(logger.NewNop())
	_, err := r.ReadChunk([]string{path})
	if err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{
			name:  "export format with milliseconds",
			value: "2024-02-05 13:45:12.000 UTC",
			want:  time.Date(2024, 2, 5, 13, 45, 12, 0, time.UTC),
		},
		{
			name:  "export format without milliseconds",
			value: "2024-02-05 13:45:12 UTC",
			want:  time.Date(2024, 2, 5, 13, 45, 12, 0, time.UTC),
		},
		{
			name:  "rfc3339",
			value: "2024-02-05T13:45:12Z",
			want:  time.Date(2024, 2, 5, 13, 45, 12, 0, time.UTC),
		},
		{
			name:  "rfc3339 with nanoseconds",
			value: "2024-02-05T13:45:12.5Z",
			want:  time.Date(2024, 2, 5, 13, 45, 12, 500000000, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimestamp(tt.value)
			if err != nil {
				t.Fatalf("parseTimestamp(%q) failed: %v", tt.value, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}

	if _, err := parseTimestamp("05/02/2024 13:45"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestChunkFiles(t *testing.T) {
	files := []string{"a", "b", "c", "d", "e", "f", "g"}

	chunks := ChunkFiles(files, 5)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 5 || len(chunks[1]) != 2 {
		t.Errorf("unexpected chunk sizes: %d, %d", len(chunks[0]), len(chunks[1]))
	}
	if chunks[0][0] != "a" || chunks[1][1] != "g" {
		t.Errorf("chunking must preserve file order: %v", chunks)
	}

	if got := ChunkFiles(nil, 5); len(got) != 0 {
		t.Errorf("expected no chunks for no files, got %d", len(got))
	}

	// A non-positive size degrades to one file per chunk.
	if got := ChunkFiles(files, 0); len(got) != len(files) {
		t.Errorf("expected %d single-file chunks, got %d", len(files), len(got))
	}
}
