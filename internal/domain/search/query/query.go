// Package query interprets free-text search input: attribute filters,
// place type, locality and trail difficulty hints.
package query

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/poisearch/internal/domain/place"
)

var (
	wordRegex = regexp.MustCompile(`[a-z]+`)
	// The trigger is case-insensitive; the locality's first word may be any case.
	locationRegex = regexp.MustCompile(`\b(?i:near|in)\s+(\pL[\pL'-]*)`)
	// Further locality words are taken only while capitalized.
	continuationRegex = regexp.MustCompile(`^\s+(\p{Lu}[\pL'-]*)`)
)

var locationTriggers = map[string]bool{"near": true, "in": true}

// Filter is an extracted attribute predicate.
type Filter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Parsed is the structured interpretation of a query.
type Parsed struct {
	OriginalQuery       string           `json:"original_query"`
	SemanticQuery       string           `json:"semantic_query"`
	ExtractedFilters    []Filter         `json:"extracted_filters"`
	POITypeHint         place.POIType    `json:"poi_type_hint,omitempty"`
	LocationHint        string           `json:"location_hint,omitempty"`
	TrailDifficultyHint place.Difficulty `json:"trail_difficulty_hint,omitempty"`
	Error               string           `json:"error,omitempty"`
}

// HasHints reports whether any hint was extracted.
func (p *Parsed) HasHints() bool {
	return p.POITypeHint != "" || p.LocationHint != "" || p.TrailDifficultyHint != ""
}

// Parse interprets raw query text. Pure and deterministic.
func Parse(raw string) Parsed {
	out := Parsed{OriginalQuery: raw, ExtractedFilters: []Filter{}}

	semantic := strings.Join(strings.Fields(raw), " ")
	if semantic == "" {
		return out
	}
	out.SemanticQuery = semantic

	working := strings.ToLower(semantic)
	words := wordSet(working)

	out.ExtractedFilters = extractFilters(working)
	out.POITypeHint = typeHint(words)
	out.TrailDifficultyHint = difficultyHint(words)
	out.LocationHint = locationHint(semantic)
	return out
}

func extractFilters(working string) []Filter {
	filters := []Filter{}
	seen := make(map[string]bool)
	for _, r := range filterRules {
		if seen[r.field] || !strings.Contains(working, r.phrase) {
			continue
		}
		seen[r.field] = true
		filters = append(filters, Filter{Field: r.field, Value: r.value})
	}
	return filters
}

func wordSet(working string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range wordRegex.FindAllString(working, -1) {
		words[w] = true
	}
	return words
}

func typeHint(words map[string]bool) place.POIType {
	for _, r := range typeRules {
		for _, k := range r.keywords {
			if words[k] {
				return r.poiType
			}
		}
	}
	return ""
}

func difficultyHint(words map[string]bool) place.Difficulty {
	for _, r := range difficultyRules {
		for _, k := range r.keywords {
			if words[k] {
				return r.difficulty
			}
		}
	}
	return ""
}

// locationHint returns the first usable locality after "near" or "in". A
// rejected candidate word is scanned again as a possible trigger, so
// "Near Me In Durham" still yields "Durham".
func locationHint(text string) string {
	for pos := 0; pos < len(text); {
		m := locationRegex.FindStringSubmatchIndex(text[pos:])
		if m == nil {
			return ""
		}
		start, end := pos+m[2], pos+m[3]
		first := strings.ToLower(strings.Trim(text[start:end], "'-"))
		if first == "" || notPlaces[first] || locationTriggers[first] {
			pos = start
			continue
		}
		return strings.Trim(text[start:end]+continuation(text[end:]), "'-")
	}
	return ""
}

// continuation returns the capitalized words following a locality's first
// word, stopping at a trigger word.
func continuation(rest string) string {
	n := 0
	for {
		m := continuationRegex.FindStringSubmatchIndex(rest[n:])
		if m == nil || locationTriggers[strings.ToLower(rest[n+m[2]:n+m[3]])] {
			return rest[:n]
		}
		n += m[1]
	}
}
