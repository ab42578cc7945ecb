package query

import "github.com/kailas-cloud/poisearch/internal/domain/place"

// filterRule maps a phrase found in the query to an indexed attribute value.
type filterRule struct {
	phrase string
	field  string
	value  string
}

// filterRules is checked in order; the first hit per field wins.
var filterRules = []filterRule{
	{"pet friendly", "pet_options", "pets_allowed"},
	{"pet-friendly", "pet_options", "pets_allowed"},
	{"dog friendly", "pet_options", "pets_allowed"},
	{"dog-friendly", "pet_options", "pets_allowed"},
	{"pets allowed", "pet_options", "pets_allowed"},
	{"free wifi", "wifi_options", "free_wifi"},
	{"wifi", "wifi_options", "free_wifi"},
	{"wi-fi", "wifi_options", "free_wifi"},
	{"outdoor seating", "business_amenities", "outdoor_seating"},
	{"patio", "business_amenities", "outdoor_seating"},
	{"live music", "entertainment_options", "live_music"},
	{"playground", "playground_available", "true"},
	{"wheelchair accessible", "accessibility", "wheelchair_accessible"},
	{"kid friendly", "family_options", "kid_friendly"},
	{"kid-friendly", "family_options", "kid_friendly"},
	{"family friendly", "family_options", "kid_friendly"},
}

// FilterFields lists every attribute a query can filter on, in table order.
func FilterFields() []string {
	seen := make(map[string]bool, len(filterRules))
	fields := make([]string, 0, len(filterRules))
	for _, r := range filterRules {
		if !seen[r.field] {
			seen[r.field] = true
			fields = append(fields, r.field)
		}
	}
	return fields
}

type typeRule struct {
	poiType  place.POIType
	keywords []string
}

// typeRules is in priority order: a trail query mentioning a park is still a trail query.
var typeRules = []typeRule{
	{place.TypeTrail, []string{"trail", "trails", "trailhead", "hike", "hikes", "hiking"}},
	{place.TypePark, []string{"park", "parks", "lake", "lakes", "greenway", "garden", "gardens"}},
	{place.TypeBusiness, []string{
		"restaurant", "restaurants", "cafe", "cafes", "coffee", "shop", "shops",
		"store", "stores", "bar", "bars", "brewery", "breweries", "bakery", "diner",
	}},
	{place.TypeEvent, []string{"festival", "festivals", "concert", "concerts", "event", "events", "fair", "fairs"}},
}

type difficultyRule struct {
	difficulty place.Difficulty
	keywords   []string
}

var difficultyRules = []difficultyRule{
	{place.DifficultyEasy, []string{"easy", "beginner"}},
	{place.DifficultyModerate, []string{"moderate", "intermediate"}},
	{place.DifficultyHard, []string{"difficult", "hard", "strenuous", "challenging"}},
}

// notPlaces are words after "near"/"in" that never name a locality.
var notPlaces = map[string]bool{
	"me": true, "here": true, "there": true, "the": true, "a": true, "an": true,
	"my": true, "your": true, "our": true, "this": true, "town": true, "area": true,
	"city": true, "summer": true, "winter": true, "spring": true, "fall": true,
	"autumn": true, "morning": true, "evening": true, "night": true, "general": true,
}
