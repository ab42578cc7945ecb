package place

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/db"
	"github.com/kailas-cloud/poisearch/internal/domain/place"
	"github.com/kailas-cloud/poisearch/internal/repository/keys"
)

type mockStore struct {
	hreplaceFn     func(ctx context.Context, key string, fields map[string]string) error
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	createIndexFn  func(ctx context.Context, def *db.IndexDefinition) error
}

func (m *mockStore) HReplace(ctx context.Context, key string, fields map[string]string) error {
	if m.hreplaceFn != nil {
		return m.hreplaceFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, k []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, k)
	}
	return make([]map[string]string, len(k)), nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, keys.New("poi:", "places"), zap.NewNop()), ms
}

func ptr(f float64) *float64 { return &f }

func testPlace() *place.Place {
	return &place.Place{
		ID:               "eno-river",
		Name:             "Eno River State Park",
		POIType:          place.TypePark,
		Category:         "state park",
		ShortDescription: "Riverside trails and rock hopping",
		City:             "Durham",
		Latitude:         36.0726,
		Longitude:        -79.0058,
		Status:           place.StatusPublished,
		Rating:           ptr(4.7),
		Attributes: map[string][]string{
			"pet_options": {"pets_allowed"},
			"parking":     {"free_lot"},
		},
	}
}
