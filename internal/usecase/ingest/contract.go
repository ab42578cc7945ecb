package ingest

import (
	"context"

	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/place"
)

// VectorIndexer embeds a place's text and stores the vector with its location.
type VectorIndexer interface {
	Ingest(ctx context.Context, placeID string, loc geo.Point, text string) error
}

// PlaceWriter stores the place document used by the lexical engine and hydration.
type PlaceWriter interface {
	Upsert(ctx context.Context, p *place.Place) error
}
