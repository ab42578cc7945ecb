package result

import (
	"time"

	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/place"
	"github.com/kailas-cloud/poisearch/internal/domain/search/query"
)

// Engine tags the search backend that produced a candidate.
type Engine string

// Engines.
const (
	EngineLexical  Engine = "lexical"
	EngineSemantic Engine = "semantic"
)

// Candidate is a place hit with an engine-local score. Scores from different
// engines are not comparable until normalized.
type Candidate struct {
	PlaceID  string
	RawScore float64
	Engine   Engine
}

// Location is a ranked place returned to the caller. All scores are in [0,1].
type Location struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	POIType          place.POIType    `json:"poi_type"`
	Category         string           `json:"category,omitempty"`
	ShortDescription string           `json:"short_description,omitempty"`
	Description      string           `json:"description,omitempty"`
	City             string           `json:"city,omitempty"`
	Address          string           `json:"address,omitempty"`
	Coordinates      geo.Point        `json:"coordinates"`
	Rating           *float64         `json:"rating,omitempty"`
	TrailDifficulty  place.Difficulty `json:"trail_difficulty,omitempty"`
	Status           place.Status     `json:"status"`
	DistanceKm       *float64         `json:"distance_km,omitempty"`
	RelevanceScore   float64          `json:"relevance_score"`
	SemanticScore    *float64         `json:"semantic_score"`
	ProximityScore   *float64         `json:"proximity_score,omitempty"`
	Score            float64          `json:"score"`
}

// NewLocation copies display fields from a hydrated place.
func NewLocation(p *place.Place) Location {
	return Location{
		ID:               p.ID,
		Name:             p.Name,
		POIType:          p.POIType,
		Category:         p.Category,
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		City:             p.City,
		Address:          p.Address,
		Coordinates:      geo.Point{Lat: p.Latitude, Lng: p.Longitude},
		Rating:           p.Rating,
		TrailDifficulty:  p.TrailDifficulty,
		Status:           p.Status,
	}
}

// Response is the final answer to a search.
type Response struct {
	Results             []Location   `json:"results"`
	TotalResults        int          `json:"total_results"`
	SearchTimeMs        float64      `json:"search_time_ms"`
	QueryInterpretation query.Parsed `json:"query_interpretation"`
}

// Degraded reports whether a contributing signal was unavailable.
func (r *Response) Degraded() bool { return r.QueryInterpretation.Error != "" }

// Stats is a read-only snapshot of the semantic index.
type Stats struct {
	TotalVectors   int64      `json:"total_vectors"`
	CollectionName string     `json:"collection_name"`
	LastUpdated    *time.Time `json:"last_updated"`
}
