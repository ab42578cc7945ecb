package place

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/poisearch/internal/db"
	"github.com/kailas-cloud/poisearch/internal/domain/place"
)

func TestEnsureIndex_CreatesPlaceIndex(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		got = def
		return nil
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "poi:place:idx" {
		t.Errorf("expected poi:place:idx, got %s", got.Name)
	}
	if len(got.Prefixes) != 1 || got.Prefixes[0] != "poi:place:" {
		t.Errorf("unexpected prefixes: %v", got.Prefixes)
	}

	weights := map[string]float64{}
	tags := map[string]bool{}
	var geoField string
	for _, f := range got.Fields {
		switch f.Type {
		case db.IndexFieldText:
			weights[f.Name] = f.TextWeight
		case db.IndexFieldTag:
			tags[f.Name] = true
		case db.IndexFieldGeo:
			geoField = f.Name
		}
	}
	if geoField != "location" {
		t.Errorf("expected location GEO field for radius search, got %q", geoField)
	}
	if weights["name"] <= weights["short_description"] || weights["short_description"] <= weights["description"] {
		t.Errorf("expected name > short_description > description, got %v", weights)
	}
	for _, want := range []string{"poi_type", "status", "category", "attr_pet_options", "attr_wifi_options"} {
		if !tags[want] {
			t.Errorf("expected tag field %s", want)
		}
	}
}

func TestEnsureIndex_AlreadyExists(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error {
		return db.ErrIndexExists
	}
	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("expected nil for existing index, got %v", err)
	}
}

func TestEnsureIndex_Error(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error {
		return errors.New("connection refused")
	}
	if err := repo.EnsureIndex(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestUpsert_WritesFlatHash(t *testing.T) {
	repo, ms := newTestRepo(t)

	var key string
	var fields map[string]string
	ms.hreplaceFn = func(_ context.Context, k string, f map[string]string) error {
		key, fields = k, f
		return nil
	}

	if err := repo.Upsert(context.Background(), testPlace()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "poi:place:eno-river" {
		t.Errorf("unexpected key %s", key)
	}
	checks := map[string]string{
		"name":             "Eno River State Park",
		"poi_type":         "PARK",
		"status":           "published",
		"city":             "Durham",
		"rating":           "4.7",
		"attr_pet_options": "pets_allowed",
		"location":         "-79.0058,36.0726",
	}
	for k, want := range checks {
		if fields[k] != want {
			t.Errorf("field %s = %q, want %q", k, fields[k], want)
		}
	}
	if _, ok := fields["attr_parking"]; ok {
		t.Error("non-filterable attribute must not become a tag field")
	}
	if _, ok := fields["trail_difficulty"]; ok {
		t.Error("empty fields must be omitted")
	}
}

func TestUpsert_NoRatingOmitsField(t *testing.T) {
	repo, ms := newTestRepo(t)
	p := testPlace()
	p.Rating = nil

	ms.hreplaceFn = func(_ context.Context, _ string, f map[string]string) error {
		if _, ok := f["rating"]; ok {
			t.Error("rating must be omitted when unset")
		}
		return nil
	}
	if err := repo.Upsert(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpsert_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hreplaceFn = func(context.Context, string, map[string]string) error {
		return errors.New("timeout")
	}
	if err := repo.Upsert(context.Background(), testPlace()); err == nil {
		t.Fatal("expected error")
	}
}

func TestFetchVisible_RoundTrip(t *testing.T) {
	repo, ms := newTestRepo(t)

	var stored map[string]string
	ms.hreplaceFn = func(_ context.Context, _ string, f map[string]string) error {
		stored = f
		return nil
	}
	if err := repo.Upsert(context.Background(), testPlace()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	ms.hgetAllMultiFn = func(_ context.Context, k []string) ([]map[string]string, error) {
		if len(k) != 2 || k[0] != "poi:place:eno-river" || k[1] != "poi:place:missing" {
			t.Errorf("unexpected keys %v", k)
		}
		return []map[string]string{stored, {}}, nil
	}

	got, err := repo.FetchVisible(context.Background(), []string{"eno-river", "missing"}, place.ScopePublic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 place, got %d", len(got))
	}
	p := got["eno-river"]
	if p.Name != "Eno River State Park" || p.Latitude != 36.0726 || p.Longitude != -79.0058 {
		t.Errorf("unexpected place: %+v", p)
	}
	if p.Rating == nil || *p.Rating != 4.7 {
		t.Errorf("unexpected rating: %v", p.Rating)
	}
	if !p.HasAttribute("parking", "FREE_LOT") {
		t.Errorf("expected attributes to survive, got %v", p.Attributes)
	}
}

func TestFetchVisible_ScopeFiltersDrafts(t *testing.T) {
	repo, ms := newTestRepo(t)
	draft := map[string]string{"id": "d1", "name": "Draft", "poi_type": "PARK", "status": "draft"}
	ms.hgetAllMultiFn = func(context.Context, []string) ([]map[string]string, error) {
		return []map[string]string{draft}, nil
	}

	pub, err := repo.FetchVisible(context.Background(), []string{"d1"}, place.ScopePublic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub) != 0 {
		t.Errorf("public scope must not see drafts, got %d", len(pub))
	}

	priv, err := repo.FetchVisible(context.Background(), []string{"d1"}, place.ScopePrivileged)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(priv) != 1 {
		t.Errorf("privileged scope must see drafts, got %d", len(priv))
	}
}

func TestFetchVisible_SkipsCorruptRecord(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllMultiFn = func(context.Context, []string) ([]map[string]string, error) {
		return []map[string]string{{"id": "x", "status": "published", "latitude": "north"}}, nil
	}
	got, err := repo.FetchVisible(context.Background(), []string{"x"}, place.ScopePublic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected corrupt record skipped, got %d", len(got))
	}
}

func TestFetchVisible_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllMultiFn = func(context.Context, []string) ([]map[string]string, error) {
		t.Error("store must not be called for empty ids")
		return nil, nil
	}
	got, err := repo.FetchVisible(context.Background(), nil, place.ScopePublic)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v, %v", got, err)
	}
}

func TestFetchVisible_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllMultiFn = func(context.Context, []string) ([]map[string]string, error) {
		return nil, errors.New("connection reset")
	}
	if _, err := repo.FetchVisible(context.Background(), []string{"a"}, place.ScopePublic); err == nil {
		t.Fatal("expected error")
	}
}
