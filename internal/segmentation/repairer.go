package segmentation

import (
	"sort"

	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/flight"
)

// sortByAircraftTime sorts records by (icao_address, timestamp). The sort is
// stable so ties on equal timestamps keep their input order.
func sortByAircraftTime(recs []flight.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].ICAOAddress != recs[j].ICAOAddress {
			return recs[i].ICAOAddress < recs[j].ICAOAddress
		}
		return recs[i].Timestamp.Before(recs[j].Timestamp)
	})
}

// repairTracks fills missing origin/destination airports per aircraft track.
// Input must already be sorted by (icao_address, timestamp).
//
// For each aircraft: if the chunk contains no departure airport and no
// arrival airport anywhere on its track, the whole track is dropped (it
// cannot be repaired). Otherwise each field is filled independently from the
// nearest preceding value, and only where no preceding value exists (the
// leading edge of a journey) from the nearest following value.
//
// Returns the surviving records and the number of aircraft dropped.
func repairTracks(recs []flight.Record) ([]flight.Record, int) {
	out := make([]flight.Record, 0, len(recs))
	dropped := 0

	for start := 0; start < len(recs); {
		end := start + 1
		for end < len(recs) && recs[end].ICAOAddress == recs[start].ICAOAddress {
			end++
		}

		track := recs[start:end]
		anyDeparture, anyArrival := false, false
		for i := range track {
			if track[i].DepartureAirport != "" {
				anyDeparture = true
			}
			if track[i].ArrivalAirport != "" {
				anyArrival = true
			}
		}

		if !anyDeparture && !anyArrival {
			dropped++
			start = end
			continue
		}

		fillForwardBackward(track)
		out = append(out, track...)
		start = end
	}

	return out, dropped
}

// fillForwardBackward fills empty departure/arrival fields of one aircraft's
// time-sorted track. Forward fill takes precedence; backward fill only covers
// records before the first known value.
func fillForwardBackward(track []flight.Record) {
	var lastDeparture, lastArrival string
	for i := range track {
		if track[i].DepartureAirport == "" {
			track[i].DepartureAirport = lastDeparture
		} else {
			lastDeparture = track[i].DepartureAirport
		}
		if track[i].ArrivalAirport == "" {
			track[i].ArrivalAirport = lastArrival
		} else {
			lastArrival = track[i].ArrivalAirport
		}
	}

	var nextDeparture, nextArrival string
	for i := len(track) - 1; i >= 0; i-- {
		if track[i].DepartureAirport == "" {
			track[i].DepartureAirport = nextDeparture
		} else {
			nextDeparture = track[i].DepartureAirport
		}
		if track[i].ArrivalAirport == "" {
			track[i].ArrivalAirport = nextArrival
		} else {
			nextArrival = track[i].ArrivalAirport
		}
	}
}
