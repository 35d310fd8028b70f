package segmentation

import (
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/flight"
)

// candidate is a maximal run of records sharing one OD key, contiguous in
// (icao_address, timestamp)-sorted order within a chunk. Candidates are
// transient: they exist only until flight ids are assigned.
type candidate struct {
	key flight.ODKey
	// half-open index range into the chunk's sorted record slice
	start, end int
}

func (c candidate) count() int {
	return c.end - c.start
}

// groupCandidates performs the run-length grouping: a single linear scan over
// the sorted records, starting a new candidate every time the OD key changes
// relative to the immediately preceding record.
func groupCandidates(recs []flight.Record) []candidate {
	if len(recs) == 0 {
		return nil
	}

	cands := make([]candidate, 0, 16)
	current := candidate{key: recs[0].Key(), start: 0}
	for i := 1; i < len(recs); i++ {
		if key := recs[i].Key(); key != current.key {
			current.end = i
			cands = append(cands, current)
			current = candidate{key: key, start: i}
		}
	}
	current.end = len(recs)
	return append(cands, current)
}
