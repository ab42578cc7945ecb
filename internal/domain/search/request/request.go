package request

import (
	"strings"

	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/place"
	"github.com/kailas-cloud/poisearch/internal/domain/search/sortby"
	"github.com/kailas-cloud/poisearch/internal/domain/validate"
)

// Search parameter limits.
const (
	MinQueryLength  = 2
	MaxQueryLength  = 200
	DefaultRadiusKm = 50.0
	MinRadiusKm     = 1.0
	MaxRadiusKm     = 200.0
	DefaultLimit    = 10
	MaxLimit        = 50
)

// Params is the wire form of a search request. RadiusKm and Limit are
// pointers so an explicit 0 is rejected rather than defaulted.
type Params struct {
	Query          string        `json:"query" validate:"min=2,max=200"`
	UserLocation   *geo.Point    `json:"user_location,omitempty" validate:"omitempty"`
	RadiusKm       *float64      `json:"radius_km,omitempty" validate:"omitempty,gte=1,lte=200"`
	Limit          *int          `json:"limit,omitempty" validate:"omitempty,gte=1,lte=50"`
	CategoryFilter string        `json:"category_filter,omitempty" validate:"max=128"`
	SortBy         sortby.SortBy `json:"sort_by,omitempty" validate:"omitempty,oneof=relevance distance rating"`
}

// Request is a validated search request. All bounds hold once constructed.
type Request struct {
	query          string
	userLocation   *geo.Point
	radiusKm       float64
	limit          int
	categoryFilter string
	sortBy         sortby.SortBy
	scope          place.Scope
}

// New validates params and applies defaults: radius 50km, limit 10, sort relevance.
func New(p Params, scope place.Scope) (Request, error) {
	p.Query = strings.TrimSpace(p.Query)
	p.CategoryFilter = strings.TrimSpace(p.CategoryFilter)
	if err := validate.Struct(p); err != nil {
		return Request{}, err
	}
	if p.SortBy == "" {
		p.SortBy = sortby.Relevance
	}
	if p.SortBy == sortby.Distance && p.UserLocation == nil {
		return Request{}, domain.NewValidationError("sort_by", "distance ordering requires user_location")
	}
	radius := DefaultRadiusKm
	if p.RadiusKm != nil {
		radius = *p.RadiusKm
	}
	limit := DefaultLimit
	if p.Limit != nil {
		limit = *p.Limit
	}
	if scope == "" {
		scope = place.ScopePublic
	}

	var loc *geo.Point
	if p.UserLocation != nil {
		l := *p.UserLocation
		loc = &l
	}
	return Request{
		query:          p.Query,
		userLocation:   loc,
		radiusKm:       radius,
		limit:          limit,
		categoryFilter: p.CategoryFilter,
		sortBy:         p.SortBy,
		scope:          scope,
	}, nil
}

// Query returns the trimmed query text.
func (r *Request) Query() string { return r.query }

// UserLocation returns the caller's location, nil when not supplied.
func (r *Request) UserLocation() *geo.Point { return r.userLocation }

// RadiusKm returns the search radius.
func (r *Request) RadiusKm() float64 { return r.radiusKm }

// Area returns the circle results must fall in, nil without a user location.
func (r *Request) Area() *geo.Circle {
	if r.userLocation == nil {
		return nil
	}
	return &geo.Circle{Center: *r.userLocation, RadiusKm: r.radiusKm}
}

// Limit returns the maximum number of results.
func (r *Request) Limit() int { return r.limit }

// CategoryFilter returns the exact category constraint, empty for none.
func (r *Request) CategoryFilter() string { return r.categoryFilter }

// SortBy returns the requested ordering.
func (r *Request) SortBy() sortby.SortBy { return r.sortBy }

// Scope returns the caller's visibility scope.
func (r *Request) Scope() place.Scope { return r.scope }
