package db

import "github.com/kailas-cloud/poisearch/internal/domain/search/filter"

// GeoFilter restricts hits to documents whose GEO field lies within
// RadiusKm of (Lng, Lat).
type GeoFilter struct {
	Field    string
	Lng, Lat float64
	RadiusKm float64
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to "vector"
	Vector       []float32
	K            int
	Geo          *GeoFilter // pre-filter; KNN runs over matching documents only
	ReturnFields []string
}

// TextQuery is the input for weighted full-text search.
// Terms are OR-ed; Filters are AND-ed hard predicates. No terms means match-all.
type TextQuery struct {
	IndexName    string
	Terms        []string
	Filters      filter.Expression
	Geo          *GeoFilter
	TopK         int
	ReturnFields []string
	Scorer       string // e.g. BM25STD; empty uses the server default
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
