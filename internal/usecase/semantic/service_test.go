package semantic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/search/result"
)

// --- Mocks ---

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
	text  string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.text = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockSearcher struct {
	res  []result.Candidate
	err  error
	k    int
	area *geo.Circle
}

func (m *mockSearcher) SearchKNN(
	_ context.Context, _ []float32, k int, area *geo.Circle,
) ([]result.Candidate, error) {
	m.k, m.area = k, area
	return m.res, m.err
}

type mockVectors struct {
	upserted  map[string][]float32
	locations map[string]geo.Point
	upsertErr error
	count     int64
	countErr  error
	updated   *time.Time
}

func (m *mockVectors) Collection() string { return "places" }

func (m *mockVectors) Upsert(_ context.Context, id string, loc geo.Point, vec []float32) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if m.upserted == nil {
		m.upserted = map[string][]float32{}
		m.locations = map[string]geo.Point{}
	}
	m.upserted[id] = vec
	m.locations[id] = loc
	return nil
}

func (m *mockVectors) Count(context.Context) (int64, error) { return m.count, m.countErr }

func (m *mockVectors) LastUpdated(context.Context) (*time.Time, error) { return m.updated, nil }

var enoPoint = geo.Point{Lat: 36.0726, Lng: -79.0058}

func newTestService() (*Service, *mockEmbedder, *mockSearcher, *mockVectors) {
	emb := &mockEmbedder{vec: []float32{0.1, 0.2}}
	s := &mockSearcher{}
	v := &mockVectors{}
	return New(emb, emb, s, v), emb, s, v
}

// --- Search ---

func TestSearch_HappyPath(t *testing.T) {
	svc, emb, s, _ := newTestService()
	s.res = []result.Candidate{{PlaceID: "eno", RawScore: 0.8, Engine: result.EngineSemantic}}

	got, err := svc.Search(context.Background(), "quiet place to read", 25, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].PlaceID != "eno" {
		t.Errorf("unexpected candidates %+v", got)
	}
	if s.k != 25 || emb.text != "quiet place to read" {
		t.Errorf("unexpected call args k=%d text=%q", s.k, emb.text)
	}
}

func TestSearch_AreaPassedToIndex(t *testing.T) {
	svc, _, s, _ := newTestService()
	area := &geo.Circle{Center: geo.Point{Lat: 35.78, Lng: -78.64}, RadiusKm: 5}

	if _, err := svc.Search(context.Background(), "museum", 10, area); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.area != area {
		t.Errorf("area not passed to index: %+v", s.area)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc, emb, _, _ := newTestService()

	got, err := svc.Search(context.Background(), "   ", 10, nil)
	if err != nil || got != nil {
		t.Fatalf("expected no candidates, got %v, %v", got, err)
	}
	if emb.calls != 0 {
		t.Error("embedder must not be called for an empty query")
	}
}

func TestSearch_EmbedderDown(t *testing.T) {
	svc, emb, _, _ := newTestService()
	emb.err = errors.New("connection refused")

	_, err := svc.Search(context.Background(), "lake", 10, nil)
	if !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if !domain.IsEngineUnavailable(err, domain.EngineEmbedder) {
		t.Errorf("expected embedder engine, got %v", err)
	}
}

func TestSearch_IndexDown(t *testing.T) {
	svc, _, s, _ := newTestService()
	s.err = errors.New("no such index")

	_, err := svc.Search(context.Background(), "lake", 10, nil)
	if !domain.IsEngineUnavailable(err, domain.EngineSemantic) {
		t.Fatalf("expected semantic engine unavailable, got %v", err)
	}
}

// --- Ingest ---

func TestIngest_Idempotent(t *testing.T) {
	svc, _, _, v := newTestService()

	for range 2 {
		if err := svc.Ingest(context.Background(), "eno", enoPoint, "Eno River. park"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(v.upserted) != 1 {
		t.Errorf("expected a single vector, got %d", len(v.upserted))
	}
	if v.locations["eno"] != enoPoint {
		t.Errorf("location not stored with vector: %+v", v.locations["eno"])
	}
}

func TestIngest_EmbedderDown(t *testing.T) {
	svc, emb, _, v := newTestService()
	emb.err = domain.ErrEmbeddingProviderError

	err := svc.Ingest(context.Background(), "eno", enoPoint, "text")
	if !domain.IsEngineUnavailable(err, domain.EngineEmbedder) {
		t.Fatalf("expected embedder unavailable, got %v", err)
	}
	if len(v.upserted) != 0 {
		t.Error("nothing may be stored when embedding fails")
	}
}

func TestIngest_StoreDown(t *testing.T) {
	svc, _, _, v := newTestService()
	v.upsertErr = errors.New("readonly replica")

	err := svc.Ingest(context.Background(), "eno", enoPoint, "text")
	if !domain.IsEngineUnavailable(err, domain.EngineSemantic) {
		t.Fatalf("expected semantic unavailable, got %v", err)
	}
}

// --- Stats ---

func TestStats(t *testing.T) {
	svc, _, _, v := newTestService()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	v.count, v.updated = 1200, &ts

	st, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.TotalVectors != 1200 || st.CollectionName != "places" || !st.LastUpdated.Equal(ts) {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestStats_Error(t *testing.T) {
	svc, _, _, v := newTestService()
	v.countErr = errors.New("timeout")

	if _, err := svc.Stats(context.Background()); !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}
