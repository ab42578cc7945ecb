// Package vector stores place embeddings in the semantic index.
package vector

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/db"
	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/repository/keys"
)

// HNSW build parameters.
const (
	hnswM           = 16
	hnswEFConstruct = 200
)

const (
	fieldPlaceID = "place_id"
	fieldVector  = "vector"
)

// store is the consumer interface for the vector collection (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo manages one vector collection.
type Repo struct {
	store     store
	layout    keys.Layout
	dimension int
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a vector repository for vectors of the given dimension.
func New(s store, layout keys.Layout, dimension int, logger *zap.Logger) *Repo {
	return &Repo{store: s, layout: layout, dimension: dimension, now: time.Now, logger: logger}
}

// Collection returns the collection name.
func (r *Repo) Collection() string { return r.layout.Collection() }

// EnsureIndex creates the HNSW cosine index unless it already exists. The
// location field lets KNN pre-filter by search radius.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := db.NewIndex(r.layout.VectorIndex()).
		Prefix(r.layout.VectorPrefix()).
		Tag(fieldPlaceID).
		Geo(keys.FieldLocation).
		VectorHNSW(fieldVector, r.dimension, db.DistanceCosine, hnswM, hnswEFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build vector index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create vector index: %w", err)
	}
	r.logger.Info("Created vector index",
		zap.String("index", def.Name),
		zap.Int("dimension", r.dimension),
	)
	return nil
}

// Upsert stores the embedding and location for a place and bumps the
// collection's last-updated mark.
func (r *Repo) Upsert(ctx context.Context, placeID string, loc geo.Point, vec []float32) error {
	if len(vec) != r.dimension {
		return fmt.Errorf("vector dimension %d, expected %d", len(vec), r.dimension)
	}

	fields := map[string]string{
		fieldPlaceID:       placeID,
		fieldVector:        vectorToBytes(vec),
		keys.FieldLocation: keys.GeoValue(loc.Lat, loc.Lng),
	}
	if err := r.store.HSet(ctx, r.layout.VectorKey(placeID), fields); err != nil {
		return fmt.Errorf("upsert vector %s: %w", placeID, err)
	}

	stamp := r.now().UTC().Format(time.RFC3339Nano)
	if err := r.store.Set(ctx, r.layout.LastUpdatedKey(), []byte(stamp)); err != nil {
		// The vector is stored; a stale mark only affects stats.
		r.logger.Warn("Failed to update last-updated mark", zap.Error(err))
	}
	return nil
}

// Count returns the number of stored vectors. A missing index counts as empty.
func (r *Repo) Count(ctx context.Context) (int64, error) {
	n, err := r.store.SearchCount(ctx, r.layout.VectorIndex(), "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return int64(n), nil
}

// LastUpdated returns the time of the last vector write, or nil if none.
func (r *Repo) LastUpdated(ctx context.Context) (*time.Time, error) {
	raw, err := r.store.Get(ctx, r.layout.LastUpdatedKey())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last updated: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse last updated: %w", err)
	}
	return &t, nil
}

// vectorToBytes serializes float32 slice to little-endian binary string.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
