package flight

import (
	"testing"
	"time"
)

func TestRecordDay(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want int
	}{
		{"new year", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1},
		{"february 5th", time.Date(2024, 2, 5, 13, 45, 0, 0, time.UTC), 36},
		{"non-utc zone normalized", time.Date(2024, 2, 6, 0, 30, 0, 0, time.FixedZone("CET", 3600)), 36},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{Timestamp: tt.ts}
			if got := r.Day(); got != tt.want {
				t.Errorf("Day() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRecordKey(t *testing.T) {
	r := Record{ICAOAddress: "4CA123", DepartureAirport: "EGLL", ArrivalAirport: "EGPH"}
	want := ODKey{ICAOAddress: "4CA123", DepartureAirport: "EGLL", ArrivalAirport: "EGPH"}
	if got := r.Key(); got != want {
		t.Errorf("Key() = %+v, want %+v", got, want)
	}
}

func TestStateClone(t *testing.T) {
	key := ODKey{ICAOAddress: "4CA123", DepartureAirport: "EGLL", ArrivalAirport: "EGPH"}
	orig := State{
		Tails:        map[ODKey]Tail{key: {FlightID: 7, LastSeen: time.Now()}},
		NextFlightID: 8,
	}

	clone := orig.Clone()
	clone.Tails[key] = Tail{FlightID: 99}
	clone.NextFlightID = 100

	if orig.Tails[key].FlightID != 7 {
		t.Error("mutating the clone changed the original tails")
	}
	if orig.NextFlightID != 8 {
		t.Error("mutating the clone changed the original counter")
	}
}
