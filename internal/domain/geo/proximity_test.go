package geo

import "testing"

var user = Point{Lat: 35.9940, Lng: -78.8986}

// north returns a point roughly km kilometers north of user.
func north(km float64) Point {
	return Point{Lat: user.Lat + km/111.195, Lng: user.Lng}
}

func TestScorer_ExcludesBeyondRadius(t *testing.T) {
	s, err := NewScorer(CurveLinear, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := s.Score(user, north(12), 10); ok {
		t.Error("candidate at 12km must be excluded from a 10km radius")
	}
	sc, ok := s.Score(user, north(8), 10)
	if !ok {
		t.Fatal("candidate at 8km must be kept")
	}
	if !almost(sc.DistanceKm, 8, 0.05) {
		t.Errorf("want ~8km, got %.3f", sc.DistanceKm)
	}
}

func TestScorer_OneAtOrigin(t *testing.T) {
	for _, c := range []Curve{CurveLinear, CurveExponential} {
		s, _ := NewScorer(c, 0)
		sc, ok := s.Score(user, user, 50)
		if !ok || !almost(sc.Proximity, 1, 1e-9) {
			t.Errorf("%s: want proximity 1 at origin, got %f (ok=%v)", c, sc.Proximity, ok)
		}
	}
}

func TestScorer_StrictlyDecreasing(t *testing.T) {
	for _, c := range []Curve{CurveLinear, CurveExponential} {
		s, _ := NewScorer(c, 0)
		prev := 2.0
		for km := 0.0; km < 50; km += 2.5 {
			sc, ok := s.Score(user, north(km), 50)
			if !ok {
				t.Fatalf("%s: %fkm unexpectedly excluded", c, km)
			}
			if sc.Proximity >= prev {
				t.Fatalf("%s: proximity not decreasing at %fkm: %f >= %f", c, km, sc.Proximity, prev)
			}
			if sc.Proximity < 0 || sc.Proximity > 1 {
				t.Fatalf("%s: proximity %f out of [0,1]", c, sc.Proximity)
			}
			prev = sc.Proximity
		}
	}
}

func TestScorer_NearZeroAtEdge(t *testing.T) {
	for _, c := range []Curve{CurveLinear, CurveExponential} {
		s, _ := NewScorer(c, 0)
		sc, ok := s.Score(user, north(49.9), 50)
		if !ok {
			t.Fatalf("%s: edge candidate excluded", c)
		}
		if sc.Proximity > 0.01 {
			t.Errorf("%s: want ~0 at edge, got %f", c, sc.Proximity)
		}
	}
}

func TestNewScorer_UnknownCurve(t *testing.T) {
	if _, err := NewScorer("cubic", 0); err == nil {
		t.Fatal("expected error for unknown curve")
	}
}
