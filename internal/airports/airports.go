package airports

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/pkg/logger"
)

// Airport holds the fields of one OurAirports-format CSV row used by the
// pipeline.
type Airport struct {
	ICAO       string
	Name       string
	Latitude   float64
	Longitude  float64
	ISOCountry string
}

// DB is an in-memory airport database loaded from an OurAirports-format CSV
// file (id, ident, type, name, latitude_deg, longitude_deg, elevation_ft,
// continent, iso_country, ...).
type DB struct {
	byICAO map[string]Airport
	logger *logger.Logger
}

// Load reads the airports CSV at path into memory.
func Load(path string, log *logger.Logger) (*DB, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open airports database: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read airports header: %w", err)
	}

	db := &DB{byICAO: make(map[string]Airport), logger: log.Named("airports")}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read airports row: %w", err)
		}
		if len(record) < 9 || record[1] == "" {
			continue
		}

		airport := Airport{
			ICAO:       record[1],
			Name:       record[3],
			ISOCountry: record[8],
		}
		if lat, err := strconv.ParseFloat(record[4], 64); err == nil {
			airport.Latitude = lat
		}
		if lon, err := strconv.ParseFloat(record[5], 64); err == nil {
			airport.Longitude = lon
		}
		db.byICAO[airport.ICAO] = airport
	}

	db.logger.Info("Loaded airports database",
		logger.String("path", path),
		logger.Int("airports", len(db.byICAO)))
	return db, nil
}

// Lookup returns the airport with the given ICAO code.
func (db *DB) Lookup(icao string) (Airport, bool) {
	a, ok := db.byICAO[icao]
	return a, ok
}

// InCountry reports whether the ICAO code belongs to an airport in the given
// ISO country.
func (db *DB) InCountry(icao, country string) bool {
	a, ok := db.byICAO[icao]
	return ok && a.ISOCountry == country
}

// Regional reports whether a flight between the two airports touches the
// given country: either endpoint in-country qualifies.
func (db *DB) Regional(departure, arrival, country string) bool {
	return db.InCountry(departure, country) || db.InCountry(arrival, country)
}
