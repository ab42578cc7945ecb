package place

import (
	"github.com/kailas-cloud/poisearch/internal/db"
	"github.com/kailas-cloud/poisearch/internal/domain/search/query"
	"github.com/kailas-cloud/poisearch/internal/repository/keys"
)

// Lexical field weights: a name hit outranks a description hit.
const (
	weightName             = 5
	weightShortDescription = 3
	weightCity             = 2
	weightDescription      = 1
)

// categorySeparator lets category values keep their commas.
const categorySeparator = ";"

// buildIndex returns the lexical index definition over place hashes.
func buildIndex(layout keys.Layout) (*db.IndexDefinition, error) {
	b := db.NewIndex(layout.PlaceIndex()).
		Prefix(layout.PlacePrefix()).
		Language("english").
		TextWeighted(fieldName, weightName).
		TextWeighted(fieldShortDescription, weightShortDescription).
		TextWeighted(fieldCity, weightCity).
		TextWeighted(fieldDescription, weightDescription).
		Tag(keys.FieldPOIType).
		Tag(keys.FieldStatus).
		TagWithOpts(keys.FieldCategory, categorySeparator, false).
		Tag(keys.FieldTrailDifficulty).
		SortableNumeric(fieldRating).
		Numeric(fieldLatitude).
		Numeric(fieldLongitude).
		Geo(keys.FieldLocation)

	for _, f := range query.FilterFields() {
		b = b.TagWithOpts(keys.TagField(f), attributeSeparator, false)
	}
	return b.Build()
}
