package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/flight"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/pkg/logger"
	_ "modernc.org/sqlite"
)

// timestampFormat is how record timestamps are stored in the partition
// files. Fixed-width fractional seconds keep lexicographic order equal to
// chronological order for the ORDER BY clauses below. The column must stay
// declared TEXT: a TIMESTAMP declaration makes the driver convert the value
// on read and the fixed-width parse would no longer see the stored string.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

// FlightSummary aggregates one flight within a day partition.
type FlightSummary struct {
	FlightID         int64     `json:"flight_id"`
	ICAOAddress      string    `json:"icao_address"`
	Callsign         string    `json:"callsign,omitempty"`
	DepartureAirport string    `json:"departure_airport_icao"`
	ArrivalAirport   string    `json:"arrival_airport_icao"`
	FirstSeen        time.Time `json:"first_seen"`
	LastSeen         time.Time `json:"last_seen"`
	Records          int       `json:"records"`
}

// PartitionStore writes segmented records to one SQLite database file per
// UTC ordinal day. Appending to an existing day merges old and new content
// (plain INSERTs, no dedup); a chunk spanning into a previously-written day
// therefore extends that day's partition rather than overwriting it.
type PartitionStore struct {
	dir    string
	prefix string
	logger *logger.Logger

	mu      sync.Mutex
	handles map[int]*sql.DB
}

// NewPartitionStore creates a partition store rooted at dir. Day files are
// named <prefix><DDD>.db with the ordinal day zero-padded to 3 digits.
func NewPartitionStore(dir, prefix string, log *logger.Logger) (*PartitionStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	storageLogger := log.Named("sqlite")
	storageLogger.Info("Initializing partition store",
		logger.String("dir", dir),
		logger.String("prefix", prefix))
	return &PartitionStore{
		dir:     dir,
		prefix:  prefix,
		logger:  storageLogger,
		handles: make(map[int]*sql.DB),
	}, nil
}

// Close closes all open partition handles.
func (s *PartitionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for day, db := range s.handles {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.handles, day)
	}
	return firstErr
}

// DayPath returns the partition file path for an ordinal day.
func (s *PartitionStore) DayPath(day int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%03d.db", s.prefix, day))
}

// openDay returns the (cached) database handle for a day partition, creating
// the file and schema on first use.
func (s *PartitionStore) openDay(day int) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.handles[day]; ok {
		return db, nil
	}

	path := s.DayPath(day)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open partition %s: %w", path, err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := initPartitionSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	s.handles[day] = db
	return db, nil
}

func initPartitionSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS positions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			flight_id INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			icao_address TEXT NOT NULL,
			callsign TEXT,
			latitude REAL,
			longitude REAL,
			altitude_baro REAL,
			departure_airport_icao TEXT,
			arrival_airport_icao TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create positions table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_positions_flight_id ON positions(flight_id)`)
	if err != nil {
		return fmt.Errorf("failed to create index on positions.flight_id: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_positions_icao_timestamp ON positions(icao_address, timestamp)`)
	if err != nil {
		return fmt.Errorf("failed to create index on positions.icao_timestamp: %w", err)
	}

	return nil
}

// Append inserts records into the day's partition, merging with whatever the
// partition already holds.
func (s *PartitionStore) Append(day int, records []flight.Record) error {
	if len(records) == 0 {
		return nil
	}

	db, err := s.openDay(day)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO positions (
			flight_id, timestamp, icao_address, callsign,
			latitude, longitude, altitude_baro,
			departure_airport_icao, arrival_airport_icao
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		_, err := stmt.Exec(
			rec.FlightID,
			rec.Timestamp.UTC().Format(timestampFormat),
			rec.ICAOAddress,
			rec.Callsign,
			rec.Latitude,
			rec.Longitude,
			rec.AltitudeBaro,
			rec.DepartureAirport,
			rec.ArrivalAirport,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.Debug("Appended records to day partition",
		logger.Int("day", day),
		logger.Int("records", len(records)))
	return nil
}

// ListDays returns the ordinal days that have partition files on disk, in
// ascending order.
func (s *PartitionStore) ListDays() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list output directory: %w", err)
	}

	pattern, err := regexp.Compile("^" + regexp.QuoteMeta(s.prefix) + `(\d{3})\.db$`)
	if err != nil {
		return nil, err
	}

	var days []int
	for _, entry := range entries {
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		day, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Ints(days)
	return days, nil
}

// ReadDay returns the records of one day partition ordered by
// (icao_address, timestamp). limit <= 0 means no limit.
func (s *PartitionStore) ReadDay(day, limit int) ([]flight.Record, error) {
	db, err := s.openDay(day)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT flight_id, timestamp, icao_address, callsign,
		       latitude, longitude, altitude_baro,
		       departure_airport_icao, arrival_airport_icao
		FROM positions
		ORDER BY icao_address, timestamp
	`
	var rows *sql.Rows
	if limit > 0 {
		rows, err = db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var records []flight.Record
	for rows.Next() {
		var rec flight.Record
		var ts string
		var callsign sql.NullString
		if err := rows.Scan(
			&rec.FlightID, &ts, &rec.ICAOAddress, &callsign,
			&rec.Latitude, &rec.Longitude, &rec.AltitudeBaro,
			&rec.DepartureAirport, &rec.ArrivalAirport,
		); err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}
		parsed, err := time.Parse(timestampFormat, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored timestamp: %w", err)
		}
		rec.Timestamp = parsed
		rec.Callsign = callsign.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position rows: %w", err)
	}
	return records, nil
}

// FlightSummaries aggregates the flights of one day partition.
func (s *PartitionStore) FlightSummaries(day int) ([]FlightSummary, error) {
	db, err := s.openDay(day)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT flight_id, icao_address, MAX(callsign),
		       departure_airport_icao, arrival_airport_icao,
		       MIN(timestamp), MAX(timestamp), COUNT(*)
		FROM positions
		GROUP BY flight_id
		ORDER BY flight_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight summaries: %w", err)
	}
	defer rows.Close()

	var summaries []FlightSummary
	for rows.Next() {
		var s FlightSummary
		var callsign sql.NullString
		var first, last string
		if err := rows.Scan(
			&s.FlightID, &s.ICAOAddress, &callsign,
			&s.DepartureAirport, &s.ArrivalAirport,
			&first, &last, &s.Records,
		); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		s.Callsign = callsign.String
		if s.FirstSeen, err = time.Parse(timestampFormat, first); err != nil {
			return nil, fmt.Errorf("failed to parse first_seen: %w", err)
		}
		if s.LastSeen, err = time.Parse(timestampFormat, last); err != nil {
			return nil, fmt.Errorf("failed to parse last_seen: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summary rows: %w", err)
	}
	return summaries, nil
}
