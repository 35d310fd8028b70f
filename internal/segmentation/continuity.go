package segmentation

import (
	"time"

	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/flight"
)

// group is a set of time-sorted records assigned one flight id.
type group struct {
	id   int64
	recs []flight.Record
}

// matchContinuations splits the chunk's candidate flights into continuations
// of flights left open by the previous chunk and genuinely new flights.
//
// A candidate continues a prior flight when its OD key has an open tail in
// the prior state and its first record falls within the lookback horizon of
// the chunk's global earliest timestamp. Each tail can be consumed by at most
// one candidate; candidates of one aircraft arrive in time order, so the
// earliest run of a recurring key is the one that attaches.
//
// Continued groups are relabeled to the prior flight id and bypass noise
// filtering; they are still re-examined by the gap splitter.
func matchContinuations(recs []flight.Record, cands []candidate, prev flight.State, horizon time.Duration) (continued []group, fresh []candidate) {
	if len(cands) == 0 {
		return nil, nil
	}
	if len(prev.Tails) == 0 {
		return nil, cands
	}

	chunkStart := recs[0].Timestamp
	for i := range recs {
		if recs[i].Timestamp.Before(chunkStart) {
			chunkStart = recs[i].Timestamp
		}
	}
	cutoff := chunkStart.Add(horizon)

	consumed := make(map[flight.ODKey]bool)
	for _, cand := range cands {
		tail, open := prev.Tails[cand.key]
		first := recs[cand.start].Timestamp
		if open && !consumed[cand.key] && !first.After(cutoff) {
			consumed[cand.key] = true
			continued = append(continued, group{id: tail.FlightID, recs: recs[cand.start:cand.end]})
			continue
		}
		fresh = append(fresh, cand)
	}
	return continued, fresh
}
