package segmentation

import (
	"sort"
	"time"
)

// splitGaps scans every flight group for time gaps exceeding hardGap and
// splits each group into one sub-flight per gap-free segment. This is the
// only stage that re-examines continued flights, to catch gaps occurring
// entirely within the new chunk's portion of a continued flight.
//
// nextID is the global id counter before this chunk; any id below it was
// issued in an earlier chunk and must never be minted again. A continued
// group (base id below nextID) keeps its base id for the first segment only;
// every other segment, including all segments of new groups, is numbered
// from the counter in ascending base-id order. For a chunk with no continued
// splits this yields exactly base id plus the running count of prior splits,
// and it never collides with an id from an earlier chunk.
//
// Returns the final groups, the maximum flight id produced (-1 when there
// are no groups) and the number of splits performed.
func splitGaps(groups []group, hardGap time.Duration, nextID int64) ([]group, int64, int) {
	if len(groups) == 0 {
		return nil, -1, 0
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].id < groups[j].id })

	out := make([]group, 0, len(groups))
	counter := nextID
	maxID := int64(-1)
	splits := 0

	for _, grp := range groups {
		segStart := 0
		segID := grp.id
		if segID >= nextID {
			segID = counter
			counter++
		}
		for i := 1; i < len(grp.recs); i++ {
			if grp.recs[i].Timestamp.Sub(grp.recs[i-1].Timestamp) > hardGap {
				out = append(out, group{id: segID, recs: grp.recs[segStart:i]})
				if segID > maxID {
					maxID = segID
				}
				splits++
				segStart = i
				segID = counter
				counter++
			}
		}
		out = append(out, group{id: segID, recs: grp.recs[segStart:]})
		if segID > maxID {
			maxID = segID
		}
	}

	for _, grp := range out {
		for i := range grp.recs {
			grp.recs[i].FlightID = grp.id
		}
	}

	return out, maxID, splits
}
