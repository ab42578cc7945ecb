package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/poisearch/internal/db"
	"github.com/kailas-cloud/poisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/poisearch/internal/repository/keys"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn  func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchTextFn func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, keys.New("poi:", "places")), ms
}

func testVector() []float32 {
	return []float32{0.1, 0.2, 0.3, 0.4}
}

func mustExpression(t *testing.T, pairs ...string) filter.Expression {
	t.Helper()
	conds := make([]filter.Condition, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		c, err := filter.NewMatch(pairs[i], pairs[i+1])
		if err != nil {
			t.Fatalf("NewMatch: %v", err)
		}
		conds = append(conds, c)
	}
	e, err := filter.And(conds...)
	if err != nil {
		t.Fatalf("And: %v", err)
	}
	return e
}
