package result

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kailas-cloud/poisearch/internal/domain/place"
	"github.com/kailas-cloud/poisearch/internal/domain/search/query"
)

func TestNewLocation(t *testing.T) {
	rating := 4.5
	p := &place.Place{
		ID: "p1", Name: "Lake Crabtree", POIType: place.TypePark,
		City: "Morrisville", Latitude: 35.84, Longitude: -78.79,
		Status: place.StatusPublished, Rating: &rating,
	}
	loc := NewLocation(p)
	if loc.ID != "p1" || loc.Name != "Lake Crabtree" || loc.City != "Morrisville" {
		t.Errorf("unexpected location %+v", loc)
	}
	if loc.Coordinates.Lat != 35.84 || loc.Coordinates.Lng != -78.79 {
		t.Errorf("coordinates = %+v", loc.Coordinates)
	}
	if loc.Rating == nil || *loc.Rating != 4.5 {
		t.Errorf("rating = %v", loc.Rating)
	}
}

func TestLocation_JSONNullSemanticScore(t *testing.T) {
	b, err := json.Marshal(Location{ID: "p1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"semantic_score":null`) {
		t.Errorf("degraded semantic score must serialize as null: %s", s)
	}
	if strings.Contains(s, "distance_km") {
		t.Errorf("distance_km must be absent without a user location: %s", s)
	}
}

func TestResponse_Degraded(t *testing.T) {
	r := Response{QueryInterpretation: query.Parsed{}}
	if r.Degraded() {
		t.Error("response without error must not be degraded")
	}
	r.QueryInterpretation.Error = "semantic engine unavailable"
	if !r.Degraded() {
		t.Error("response with error must be degraded")
	}
}
