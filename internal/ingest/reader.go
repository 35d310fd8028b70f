package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/flight"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/pkg/logger"
)

// Required columns in every batch file. A file missing any of them is a
// schema error, which aborts the whole run.
var requiredColumns = []string{
	"timestamp",
	"icao_address",
	"latitude",
	"longitude",
	"altitude_baro",
	"departure_airport_icao",
	"arrival_airport_icao",
}

// Timestamp layouts accepted on input, tried in order. The first matches the
// upstream ADS-B export format ("2024-02-05 13:45:12.000 UTC").
var timestampLayouts = []string{
	"2006-01-02 15:04:05.000 MST",
	"2006-01-02 15:04:05 MST",
	time.RFC3339Nano,
	time.RFC3339,
}

// Reader loads position-record batch files into chunks.
type Reader struct {
	logger *logger.Logger
}

// NewReader creates a new batch reader.
func NewReader(log *logger.Logger) *Reader {
	return &Reader{logger: log.Named("ingest")}
}

// ChunkFiles groups input files into fixed-size chunks, preserving the
// caller-specified order. Chunk size is a throughput knob, not a correctness
// boundary; the last chunk may be short.
func ChunkFiles(files []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	chunks := make([][]string, 0, (len(files)+size-1)/size)
	for i := 0; i < len(files); i += size {
		end := i + size
		if end > len(files) {
			end = len(files)
		}
		chunks = append(chunks, files[i:end])
	}
	return chunks
}

// ReadChunk reads one chunk's batch files and concatenates their records.
// Record order within the chunk is unspecified; the segmentation engine sorts.
func (r *Reader) ReadChunk(paths []string) ([]flight.Record, error) {
	var records []flight.Record
	for _, path := range paths {
		recs, err := r.readFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read batch file %s: %w", path, err)
		}
		r.logger.Debug("Loaded batch file",
			logger.String("path", path),
			logger.Int("rows", len(recs)))
		records = append(records, recs...)
	}
	return records, nil
}

func (r *Reader) readFile(path string) ([]flight.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %v", missing)
	}
	callsignIdx, hasCallsign := cols["callsign"]

	var records []flight.Record
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line+1, err)
		}
		line++

		ts, err := parseTimestamp(row[cols["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		lat, err := parseFloat(row[cols["latitude"]], "latitude", line)
		if err != nil {
			return nil, err
		}
		lon, err := parseFloat(row[cols["longitude"]], "longitude", line)
		if err != nil {
			return nil, err
		}
		alt, err := parseFloat(row[cols["altitude_baro"]], "altitude_baro", line)
		if err != nil {
			return nil, err
		}

		rec := flight.Record{
			Timestamp:        ts,
			ICAOAddress:      row[cols["icao_address"]],
			Latitude:         lat,
			Longitude:        lon,
			AltitudeBaro:     alt,
			DepartureAirport: row[cols["departure_airport_icao"]],
			ArrivalAirport:   row[cols["arrival_airport_icao"]],
			FlightID:         flight.UnassignedFlightID,
		}
		if hasCallsign {
			rec.Callsign = row[callsignIdx]
		}
		records = append(records, rec)
	}

	return records, nil
}

// parseTimestamp normalizes the timestamp field, trying each accepted layout.
func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

// parseFloat parses a numeric field, treating an empty value as zero
// (altitude can be missing on ground reports).
func parseFloat(value, column string, line int) (float64, error) {
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("row %d: invalid %s %q: %w", line, column, value, err)
	}
	return f, nil
}
