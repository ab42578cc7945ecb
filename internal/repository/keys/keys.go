// Package keys defines the Redis key and index layout.
package keys

import "strconv"

// Layout names every key and index for one deployment.
//
//	<prefix>place:<id>                  place hash (lexical index)
//	<prefix>place:idx                   lexical index
//	<prefix>vec:<collection>:<id>       vector hash (semantic index)
//	<prefix>vec:<collection>:idx        vector index
//	<prefix>meta:<collection>:updated   last vector mutation, RFC3339Nano
//	<prefix>emb_cache:<sha256>          cached embedding
type Layout struct {
	prefix     string
	collection string
}

// New creates a layout. prefix is usually "poi:".
func New(prefix, collection string) Layout {
	return Layout{prefix: prefix, collection: collection}
}

// Collection returns the vector collection name.
func (l Layout) Collection() string { return l.collection }

// PlacePrefix is the key prefix indexed by the lexical index.
func (l Layout) PlacePrefix() string { return l.prefix + "place:" }

// PlaceKey returns the hash key of a place.
func (l Layout) PlaceKey(id string) string { return l.PlacePrefix() + id }

// PlaceIndex returns the lexical index name.
func (l Layout) PlaceIndex() string { return l.prefix + "place:idx" }

// VectorPrefix is the key prefix indexed by the vector index.
func (l Layout) VectorPrefix() string { return l.prefix + "vec:" + l.collection + ":" }

// VectorKey returns the hash key holding a place's embedding.
func (l Layout) VectorKey(id string) string { return l.VectorPrefix() + id }

// VectorIndex returns the vector index name.
func (l Layout) VectorIndex() string { return l.prefix + "vec:" + l.collection + ":idx" }

// LastUpdatedKey returns the key recording the last vector mutation.
func (l Layout) LastUpdatedKey() string { return l.prefix + "meta:" + l.collection + ":updated" }

// EmbeddingCachePrefix is the prefix for cached embeddings.
func (l Layout) EmbeddingCachePrefix() string { return l.prefix + "emb_cache:" }

// Hash fields of a place record that are indexed as tags directly.
const (
	FieldPOIType         = "poi_type"
	FieldStatus          = "status"
	FieldCategory        = "category"
	FieldTrailDifficulty = "trail_difficulty"
)

// FieldLocation is the GEO field ("lng,lat") on both place and vector hashes.
const FieldLocation = "location"

// GeoValue renders a point in the lng,lat order GEO fields expect.
func GeoValue(lat, lng float64) string {
	return strconv.FormatFloat(lng, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64)
}

const attributePrefix = "attr_"

// TagField maps a filter field to the indexed hash field. Core fields keep
// their name; attributes live under attr_<name> so they never shadow one.
func TagField(field string) string {
	switch field {
	case FieldPOIType, FieldStatus, FieldCategory, FieldTrailDifficulty:
		return field
	default:
		return attributePrefix + field
	}
}
