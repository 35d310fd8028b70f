package segmentation

import (
	"time"

	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/flight"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/pkg/logger"
)

// Config contains the flight segmentation parameters. SoftGap, LongGroundGap,
// MaxJumpKM and SameHeadingDeg are reserved extension points for spatial and
// heading consistency checks; the shipped algorithm does not consult them.
type Config struct {
	SoftGap              time.Duration // "soft" in-air gap requiring consistency checks (reserved)
	LongGroundGap        time.Duration // long ground gap between flights (reserved)
	HardGap              time.Duration // gap that always starts a new flight
	MaxJumpKM            float64       // big spatial jump threshold (reserved)
	SameHeadingDeg       float64       // "same heading" threshold for in-air continuity (reserved)
	MinConsecutivePoints int           // a new flight needs more than this many records
	LookbackHorizon      time.Duration // how long a quiescent flight stays open across chunks
}

// DefaultConfig returns the segmentation defaults.
func DefaultConfig() Config {
	return Config{
		SoftGap:              45 * time.Minute,
		LongGroundGap:        50 * time.Minute,
		HardGap:              6 * time.Hour,
		MaxJumpKM:            500,
		SameHeadingDeg:       90,
		MinConsecutivePoints: 3,
		LookbackHorizon:      6 * time.Hour,
	}
}

// Segmenter reconstructs discrete flights from unordered position reports
// processed in bounded chunks. It is a pure function of (chunk, prior state):
// the prior state is never mutated, and all cross-chunk bookkeeping lives in
// the returned State snapshot.
type Segmenter struct {
	cfg    Config
	logger *logger.Logger
}

// New creates a new segmenter.
func New(cfg Config, log *logger.Logger) *Segmenter {
	return &Segmenter{cfg: cfg, logger: log.Named("segmentation")}
}

// Result holds one chunk's labeled output, the state snapshot for the next
// chunk, and the diagnostic counts reported via logs.
type Result struct {
	Records []flight.Record
	State   flight.State

	RowsIn           int
	AircraftDropped  int
	Candidates       int
	ContinuedFlights int
	NoiseDropped     int
	GapSplits        int
	Flights          int
	MinFlightID      int64
	MaxFlightID      int64
}

// Segment assigns flight ids to one chunk of position records.
//
// Pipeline: sort by (aircraft, timestamp) -> repair origin/destination ->
// group same-OD-key runs -> match continuations against the prior tail state
// -> noise-filter and rebase new flights -> gap-split the merged stream ->
// recompute the tail state for the next chunk.
func (s *Segmenter) Segment(records []flight.Record, prev flight.State) Result {
	res := Result{RowsIn: len(records), MinFlightID: -1, MaxFlightID: -1}

	recs := make([]flight.Record, len(records))
	copy(recs, records)
	sortByAircraftTime(recs)

	recs, aircraftDropped := repairTracks(recs)
	res.AircraftDropped = aircraftDropped

	if len(recs) == 0 {
		// An empty chunk finalizes every open flight: the tail state resets,
		// but the id counter carries forward so ids stay globally unique.
		res.State = flight.State{Tails: map[flight.ODKey]flight.Tail{}, NextFlightID: prev.NextFlightID}
		s.logDiagnostics(res)
		return res
	}

	cands := groupCandidates(recs)
	res.Candidates = len(cands)

	continued, fresh := matchContinuations(recs, cands, prev, s.cfg.LookbackHorizon)
	res.ContinuedFlights = len(continued)

	fresh, noiseDropped := filterNoise(fresh, s.cfg.MinConsecutivePoints)
	res.NoiseDropped = noiseDropped

	// Survivors get dense consecutive ids rebased onto the global counter.
	groups := make([]group, 0, len(continued)+len(fresh))
	groups = append(groups, continued...)
	for i, cand := range fresh {
		groups = append(groups, group{id: prev.NextFlightID + int64(i), recs: recs[cand.start:cand.end]})
	}

	groups, maxID, splits := splitGaps(groups, s.cfg.HardGap, prev.NextFlightID)
	res.GapSplits = splits
	res.Flights = len(groups)

	nextID := prev.NextFlightID
	if maxID >= nextID {
		nextID = maxID + 1
	}

	res.Records = flatten(groups)
	res.State = flight.State{
		Tails:        s.computeTails(groups),
		NextFlightID: nextID,
	}
	if len(groups) > 0 {
		res.MinFlightID = groups[0].id
		res.MaxFlightID = maxID
		for _, grp := range groups[1:] {
			if grp.id < res.MinFlightID {
				res.MinFlightID = grp.id
			}
		}
	}

	s.logDiagnostics(res)
	return res
}

// computeTails builds the tail state for the next chunk: per flight, the most
// recent timestamp, restricted to flights seen within the lookback horizon of
// the chunk's overall max timestamp. Flights quiescent longer than the
// horizon are finalized and dropped.
//
// At most one open tail may exist per OD key. Gap splitting can briefly yield
// two flights with the same key inside one chunk; the invariant is enforced
// here by keeping the most recently seen flight and logging the conflict.
func (s *Segmenter) computeTails(groups []group) map[flight.ODKey]flight.Tail {
	tails := make(map[flight.ODKey]flight.Tail)
	if len(groups) == 0 {
		return tails
	}

	var chunkMax time.Time
	for _, grp := range groups {
		if last := grp.recs[len(grp.recs)-1].Timestamp; last.After(chunkMax) {
			chunkMax = last
		}
	}
	threshold := chunkMax.Add(-s.cfg.LookbackHorizon)

	for _, grp := range groups {
		last := grp.recs[len(grp.recs)-1].Timestamp
		if last.Before(threshold) {
			continue
		}
		key := grp.recs[0].Key()
		if existing, ok := tails[key]; ok {
			kept, dropped := grp.id, existing.FlightID
			if existing.LastSeen.After(last) {
				kept, dropped = existing.FlightID, grp.id
			}
			s.logger.Warn("Multiple open flights for one OD key, keeping most recent",
				logger.String("icao_address", key.ICAOAddress),
				logger.String("departure", key.DepartureAirport),
				logger.String("arrival", key.ArrivalAirport),
				logger.Int64("kept_flight_id", kept),
				logger.Int64("dropped_flight_id", dropped),
			)
			if kept == existing.FlightID {
				continue
			}
		}
		tails[key] = flight.Tail{FlightID: grp.id, LastSeen: last}
	}
	return tails
}

// flatten merges the final per-flight groups back into one record slice
// ordered by (aircraft, timestamp).
func flatten(groups []group) []flight.Record {
	n := 0
	for _, grp := range groups {
		n += len(grp.recs)
	}
	out := make([]flight.Record, 0, n)
	for _, grp := range groups {
		out = append(out, grp.recs...)
	}
	sortByAircraftTime(out)
	return out
}

func (s *Segmenter) logDiagnostics(res Result) {
	s.logger.Info("Chunk segmented",
		logger.Int("rows_in", res.RowsIn),
		logger.Int("rows_out", len(res.Records)),
		logger.Int("aircraft_dropped", res.AircraftDropped),
		logger.Int("candidates", res.Candidates),
		logger.Int("continued_flights", res.ContinuedFlights),
		logger.Int("noise_dropped", res.NoiseDropped),
		logger.Int("gap_splits", res.GapSplits),
		logger.Int("flights", res.Flights),
		logger.Int64("min_flight_id", res.MinFlightID),
		logger.Int64("max_flight_id", res.MaxFlightID),
		logger.Int64("next_flight_id", res.State.NextFlightID),
		logger.Int("open_tails", len(res.State.Tails)),
	)
}
