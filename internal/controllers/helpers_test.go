package controllers

import (
	"encoding/json"
	"testing"
	"time"

	"bus_portal/internal/models"
)

func TestGroupByStop(t *testing.T) {
	got := groupByStop([]models.Booking{
		{BoardingStop: "Gate", SeatNumber: "1"},
		{BoardingStop: "  "},
		{BoardingStop: "Gate", SeatNumber: "2"},
	})
	if len(got["Gate"]) != 2 || got["Gate"][0].SeatNumber != "1" || got["Gate"][1].SeatNumber != "2" {
		t.Errorf("Gate bucket = %+v", got["Gate"])
	}
	if len(got[UnknownStop]) != 1 {
		t.Errorf("%s bucket = %+v", UnknownStop, got[UnknownStop])
	}
}

func TestSortedStopsDropsRepeatedSequence(t *testing.T) {
	got := sortedStops([]models.RouteStop{
		{StopName: "C", SequenceOrder: 3},
		{StopName: "A", SequenceOrder: 1},
		{StopName: "A again", SequenceOrder: 1},
		{StopName: "B", SequenceOrder: 2},
	})
	want := []string{"A", "B", "C"}
	if len(got) != len(want) {
		t.Fatalf("got %d stops, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].StopName != name {
			t.Errorf("stop %d = %q, want %q", i, got[i].StopName, name)
		}
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"", defaultHistoryLimit, true},
		{"5", 5, true},
		{"100000", maxHistoryLimit, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"ten", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseLimit(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseLimit(%q) = %d, %v; want %d, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDobMatches(t *testing.T) {
	stored := time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		input string
		want  bool
	}{
		{"2001-02-03", true},
		{"2001-02-03T00:00:00.000Z", true},
		{" 2001-02-03 ", true},
		{"2001-02-04", false},
		{"03/02/2001", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := dobMatches(tt.input, &stored); got != tt.want {
			t.Errorf("dobMatches(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if dobMatches("2001-02-03", nil) {
		t.Error("nil birthday must never match")
	}
}

func TestBuildStops(t *testing.T) {
	stops, msg := buildStops([]stopInput{
		{StopName: " Gate ", SequenceOrder: 1},
		{StopName: "Library", SequenceOrder: 5},
	})
	if msg != "" || len(stops) != 2 || stops[0].StopName != "Gate" {
		t.Errorf("buildStops = %+v, %q", stops, msg)
	}
	if _, msg := buildStops([]stopInput{{StopName: "A", SequenceOrder: 2}, {StopName: "B", SequenceOrder: 2}}); msg != msgStopOrder {
		t.Errorf("equal sequence: msg = %q", msg)
	}
	if stops, msg := buildStops(nil); msg != "" || len(stops) != 0 {
		t.Errorf("empty input: %+v, %q", stops, msg)
	}
}

func TestLocationDataTimestamps(t *testing.T) {
	tests := []struct {
		name string
		json string
		want time.Time
	}{
		{"zoned", `{"timestamp":"2024-06-01T08:00:00+05:30"}`, time.Date(2024, 6, 1, 2, 30, 0, 0, time.UTC)},
		{"utc", `{"timestamp":"2024-06-01T08:00:00Z"}`, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)},
		{"no zone", `{"timestamp":"2024-06-01T08:00:00.250"}`, time.Date(2024, 6, 1, 8, 0, 0, 250e6, time.UTC)},
		{"missing", `{"latitude":1}`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ld LocationData
			if err := json.Unmarshal([]byte(tt.json), &ld); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !ld.Timestamp.Equal(tt.want) {
				t.Errorf("timestamp = %v, want %v", ld.Timestamp, tt.want)
			}
		})
	}

	var ld LocationData
	if err := json.Unmarshal([]byte(`{"timestamp":"yesterday"}`), &ld); err == nil {
		t.Error("expected an error for a malformed timestamp")
	}
}
