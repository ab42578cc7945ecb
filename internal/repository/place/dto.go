package place

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/poisearch/internal/domain/place"
	"github.com/kailas-cloud/poisearch/internal/domain/search/query"
	"github.com/kailas-cloud/poisearch/internal/repository/keys"
)

// Hash field names.
const (
	fieldID               = "id"
	fieldName             = "name"
	fieldShortDescription = "short_description"
	fieldDescription      = "description"
	fieldCity             = "city"
	fieldAddress          = "address"
	fieldLatitude         = "latitude"
	fieldLongitude        = "longitude"
	fieldRating           = "rating"
	fieldAttributes       = "attributes"
)

const attributeSeparator = ","

// toHash flattens a place into hash fields. Attributes are kept twice: the
// full map as JSON for hydration, and filterable ones as tag fields.
func toHash(p *place.Place) (map[string]string, error) {
	fields := map[string]string{
		fieldID:            p.ID,
		fieldName:          p.Name,
		keys.FieldPOIType:  string(p.POIType),
		keys.FieldStatus:   string(p.Status),
		fieldLatitude:      strconv.FormatFloat(p.Latitude, 'f', -1, 64),
		fieldLongitude:     strconv.FormatFloat(p.Longitude, 'f', -1, 64),
		keys.FieldLocation: keys.GeoValue(p.Latitude, p.Longitude),
	}
	setIf(fields, keys.FieldCategory, strings.ReplaceAll(p.Category, categorySeparator, " "))
	setIf(fields, fieldShortDescription, p.ShortDescription)
	setIf(fields, fieldDescription, p.Description)
	setIf(fields, fieldCity, p.City)
	setIf(fields, fieldAddress, p.Address)
	setIf(fields, keys.FieldTrailDifficulty, string(p.TrailDifficulty))
	if p.Rating != nil {
		fields[fieldRating] = strconv.FormatFloat(*p.Rating, 'f', -1, 64)
	}

	if len(p.Attributes) > 0 {
		raw, err := json.Marshal(p.Attributes)
		if err != nil {
			return nil, fmt.Errorf("marshal attributes: %w", err)
		}
		fields[fieldAttributes] = string(raw)
	}
	for _, f := range query.FilterFields() {
		vals := p.Attributes[f]
		if len(vals) == 0 {
			continue
		}
		clean := make([]string, 0, len(vals))
		for _, v := range vals {
			if v = strings.TrimSpace(strings.ReplaceAll(v, attributeSeparator, " ")); v != "" {
				clean = append(clean, v)
			}
		}
		setIf(fields, keys.TagField(f), strings.Join(clean, attributeSeparator))
	}
	return fields, nil
}

func setIf(fields map[string]string, k, v string) {
	if v != "" {
		fields[k] = v
	}
}

// fromHash rebuilds a place from its hash fields.
func fromHash(fields map[string]string) (*place.Place, error) {
	p := &place.Place{
		ID:               fields[fieldID],
		Name:             fields[fieldName],
		POIType:          place.POIType(fields[keys.FieldPOIType]),
		Category:         fields[keys.FieldCategory],
		ShortDescription: fields[fieldShortDescription],
		Description:      fields[fieldDescription],
		City:             fields[fieldCity],
		Address:          fields[fieldAddress],
		Status:           place.Status(fields[keys.FieldStatus]),
		TrailDifficulty:  place.Difficulty(fields[keys.FieldTrailDifficulty]),
	}

	var err error
	if p.Latitude, err = parseFloat(fields, fieldLatitude); err != nil {
		return nil, err
	}
	if p.Longitude, err = parseFloat(fields, fieldLongitude); err != nil {
		return nil, err
	}
	if v, ok := fields[fieldRating]; ok && v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldRating, err)
		}
		p.Rating = &r
	}
	if raw := fields[fieldAttributes]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal attributes: %w", err)
		}
	}
	return p, nil
}

func parseFloat(fields map[string]string, k string) (float64, error) {
	v, ok := fields[k]
	if !ok || v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", k, err)
	}
	return f, nil
}
