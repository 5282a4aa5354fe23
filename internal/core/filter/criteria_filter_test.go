package filter

import (
	"testing"

	"github.com/mityay36/avito-bot/internal/core/domain"
)

func intPtr(v int) *int           { return &v }
func int64Ptr(v int64) *int64     { return &v }
func floatPtr(v float64) *float64 { return &v }

func testCriteria() domain.FilterCriteria {
	return domain.FilterCriteria{
		MaxPriceMinor:     75000,
		MinAreaSqm:        35,
		MaxWalkMinutes:    15,
		AllowedRoomCounts: []int{1, 2},
		TargetStations:    []string{"таганская"},
	}
}

func qualifiedListing() domain.Listing {
	return domain.Listing{
		Title:      "2-к квартира, 45 м²",
		PriceMinor: int64Ptr(65000),
		Rooms:      intPtr(2),
		AreaSqm:    floatPtr(45),
		Metro: domain.MetroInfo{
			Stations:    []string{"таганская"},
			WalkMinutes: intPtr(15),
		},
	}
}

func TestMatchesQualifiedListing(t *testing.T) {
	if !Matches(qualifiedListing(), testCriteria()) {
		t.Error("expected listing to qualify")
	}
}

func TestMatchesRejectsByWalkTime(t *testing.T) {
	criteria := testCriteria()
	criteria.MaxWalkMinutes = 10

	if Matches(qualifiedListing(), criteria) {
		t.Error("expected listing to be filtered out by walk time")
	}
}

func TestMatchesRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Listing)
	}{
		{"price above max", func(l *domain.Listing) { l.PriceMinor = int64Ptr(80000) }},
		{"area below min", func(l *domain.Listing) { l.AreaSqm = floatPtr(30) }},
		{"rooms not allowed", func(l *domain.Listing) { l.Rooms = intPtr(3) }},
		{"wrong station", func(l *domain.Listing) { l.Metro.Stations = []string{"аэропорт"} }},
	}

	for _, tt := range tests {
		listing := qualifiedListing()
		tt.mutate(&listing)
		if Matches(listing, testCriteria()) {
			t.Errorf("%s: expected rejection", tt.name)
		}
	}
}

func TestMatchesUnknownFieldsDoNotReject(t *testing.T) {
	listing := qualifiedListing()
	listing.PriceMinor = nil
	listing.Rooms = nil
	listing.AreaSqm = nil
	listing.Metro.WalkMinutes = nil

	if !Matches(listing, testCriteria()) {
		t.Error("unknown optional fields must not fail any check")
	}
}

func TestMatchesStationFallbackToFullText(t *testing.T) {
	listing := qualifiedListing()
	listing.Metro.Stations = nil
	listing.DescriptionText = "Рядом метро Таганская, тихий двор"

	if !Matches(listing, testCriteria()) {
		t.Error("expected full-text station fallback to qualify the listing")
	}

	listing.DescriptionText = "Далеко от центра"
	if Matches(listing, testCriteria()) {
		t.Error("expected rejection when no station appears anywhere")
	}
}

func TestMatchesIsIdempotent(t *testing.T) {
	listing := qualifiedListing()
	criteria := testCriteria()

	first := Matches(listing, criteria)
	for i := 0; i < 5; i++ {
		if Matches(listing, criteria) != first {
			t.Fatal("Matches must be a pure predicate")
		}
	}
}

func TestMatchesStudioRooms(t *testing.T) {
	criteria := testCriteria()
	criteria.AllowedRoomCounts = []int{0, 1}

	listing := qualifiedListing()
	listing.Rooms = intPtr(0)

	if !Matches(listing, criteria) {
		t.Error("studio (0 rooms) must be distinct from unknown and allowed explicitly")
	}
}
