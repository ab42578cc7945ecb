package place

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/validate"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// POIType is the kind of place.
type POIType string

// Place kinds.
const (
	TypeBusiness POIType = "BUSINESS"
	TypePark     POIType = "PARK"
	TypeTrail    POIType = "TRAIL"
	TypeEvent    POIType = "EVENT"
)

// IsValid reports whether the type is known.
func (t POIType) IsValid() bool {
	return t == TypeBusiness || t == TypePark || t == TypeTrail || t == TypeEvent
}

// Status is the publication state of a place.
type Status string

// Publication states.
const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusArchived  Status = "archived"
)

// Difficulty grades a trail.
type Difficulty string

// Trail difficulty grades.
const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
)

// Scope decides which statuses a caller may see.
type Scope string

// Visibility scopes.
const (
	// ScopePublic sees published places only.
	ScopePublic Scope = "public"
	// ScopePrivileged sees every status.
	ScopePrivileged Scope = "privileged"
)

// Place is a point of interest as indexed for search.
type Place struct {
	ID               string              `json:"id" validate:"required,max=128"`
	Name             string              `json:"name" validate:"required,max=256"`
	POIType          POIType             `json:"poi_type" validate:"required,oneof=BUSINESS PARK TRAIL EVENT"`
	Category         string              `json:"category,omitempty" validate:"max=128"`
	ShortDescription string              `json:"short_description,omitempty" validate:"max=1024"`
	Description      string              `json:"description,omitempty" validate:"max=16384"`
	City             string              `json:"city,omitempty" validate:"max=128"`
	Address          string              `json:"address,omitempty" validate:"max=512"`
	Latitude         float64             `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude        float64             `json:"longitude" validate:"gte=-180,lte=180"`
	Status           Status              `json:"status" validate:"omitempty,oneof=published draft pending archived"`
	Rating           *float64            `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	TrailDifficulty  Difficulty          `json:"trail_difficulty,omitempty" validate:"omitempty,oneof=easy moderate hard"`
	Attributes       map[string][]string `json:"attributes,omitempty" validate:"max=64"`
}

// Validate checks a place payload and fills the default status.
func (p *Place) Validate() error {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if p.Status == "" {
		p.Status = StatusPublished
	}
	if err := validate.Struct(p); err != nil {
		return err
	}
	if !idRegex.MatchString(p.ID) {
		return domain.NewValidationError("id", "must be alphanumeric with underscores and hyphens")
	}
	for field := range p.Attributes {
		if !idRegex.MatchString(field) {
			return domain.NewValidationError("attributes", "name "+field+" must be alphanumeric with underscores")
		}
	}
	return nil
}

// Location returns the place's coordinates.
func (p *Place) Location() geo.Point {
	return geo.Point{Lat: p.Latitude, Lng: p.Longitude}
}

// VisibleTo reports whether a caller with the given scope may see the place.
func (p *Place) VisibleTo(scope Scope) bool {
	return scope == ScopePrivileged || p.Status == StatusPublished
}

// HasAttribute reports whether the attribute carries value (case-insensitive).
func (p *Place) HasAttribute(field, value string) bool {
	for _, v := range p.Attributes[field] {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// FieldValues returns the place's values for a filterable field: core tag
// fields by name, anything else from attributes.
func (p *Place) FieldValues(field string) []string {
	var v string
	switch field {
	case "poi_type":
		v = string(p.POIType)
	case "status":
		v = string(p.Status)
	case "category":
		v = p.Category
	case "trail_difficulty":
		v = string(p.TrailDifficulty)
	default:
		return p.Attributes[field]
	}
	if v == "" {
		return nil
	}
	return []string{v}
}

// EmbeddingText derives the text embedded into the semantic index.
func (p *Place) EmbeddingText() string {
	parts := []string{p.Name}
	if p.POIType != "" {
		parts = append(parts, strings.ToLower(string(p.POIType)))
	}
	if p.Category != "" {
		parts = append(parts, p.Category)
	}
	if p.ShortDescription != "" {
		parts = append(parts, p.ShortDescription)
	}
	if p.City != "" {
		parts = append(parts, "in "+p.City)
	}
	if p.TrailDifficulty != "" {
		parts = append(parts, string(p.TrailDifficulty)+" difficulty")
	}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}

	fields := make([]string, 0, len(p.Attributes))
	for f := range p.Attributes {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		for _, v := range p.Attributes[f] {
			parts = append(parts, strings.ReplaceAll(v, "_", " "))
		}
	}
	return strings.Join(parts, ". ")
}
