package flight

import (
	"time"
)

// UnassignedFlightID marks a record that has not yet passed through the
// segmentation engine. Valid flight IDs are non-negative.
const UnassignedFlightID int64 = -1

// Record represents a single aircraft position report. Records arrive
// unordered and are immutable once ingested, except for the
// origin/destination fields which the track repairer may fill in.
type Record struct {
	Timestamp        time.Time `json:"timestamp"`
	ICAOAddress      string    `json:"icao_address"`
	Callsign         string    `json:"callsign,omitempty"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	AltitudeBaro     float64   `json:"altitude_baro"`
	DepartureAirport string    `json:"departure_airport_icao"`
	ArrivalAirport   string    `json:"arrival_airport_icao"`

	// FlightID is assigned by the segmentation engine. Non-negative,
	// strictly increasing in order of creation, never reused.
	FlightID int64 `json:"flight_id"`
}

// ODKey identifies a candidate journey: one aircraft flying one declared
// origin/destination pair. Empty airport strings mean the value is unknown.
type ODKey struct {
	ICAOAddress      string
	DepartureAirport string
	ArrivalAirport   string
}

// Key returns the OD key of the record
func (r *Record) Key() ODKey {
	return ODKey{
		ICAOAddress:      r.ICAOAddress,
		DepartureAirport: r.DepartureAirport,
		ArrivalAirport:   r.ArrivalAirport,
	}
}

// Day returns the UTC ordinal day-of-year of the record, used for routing
// output to calendar-day partitions.
func (r *Record) Day() int {
	return r.Timestamp.UTC().YearDay()
}

// Tail is the minimal summary of a flight still open at a chunk boundary:
// its id and the most recent timestamp seen.
type Tail struct {
	FlightID int64     `json:"flight_id"`
	LastSeen time.Time `json:"last_seen"`
}

// State is the snapshot handed from one chunk invocation to the next. It is
// the only data carried across chunk boundaries: open flight tails keyed by
// OD key (at most one per key) and the next available flight id.
type State struct {
	Tails        map[ODKey]Tail
	NextFlightID int64
}

// NewState returns the empty state used before the first chunk.
func NewState() State {
	return State{Tails: map[ODKey]Tail{}, NextFlightID: 0}
}

// Clone returns a deep copy of the state. Segmentation treats prior state as
// read-only; cloning keeps the chunk loop a pure (chunk, state) -> (output,
// state) function.
func (s State) Clone() State {
	tails := make(map[ODKey]Tail, len(s.Tails))
	for k, v := range s.Tails {
		tails[k] = v
	}
	return State{Tails: tails, NextFlightID: s.NextFlightID}
}
