package geo

import (
	"fmt"
	"math"
)

// Curve selects how proximity decays from 1 at the user to 0 at the radius edge.
type Curve string

const (
	// CurveLinear decays as 1 - d/r.
	CurveLinear Curve = "linear"
	// CurveExponential decays as e^(-k*d/r), rescaled to hit 0 at r.
	CurveExponential Curve = "exponential"
)

// DefaultSteepness is the exponential decay constant k.
const DefaultSteepness = 3.0

// IsValid reports whether the curve is supported.
func (c Curve) IsValid() bool {
	return c == CurveLinear || c == CurveExponential
}

// Score is the outcome of scoring one candidate against the user location.
type Score struct {
	DistanceKm float64
	Proximity  float64
}

// Scorer computes distance and proximity. Stateless after construction.
type Scorer struct {
	curve     Curve
	steepness float64
}

// NewScorer creates a scorer. Empty curve means linear; steepness <= 0 means DefaultSteepness.
func NewScorer(curve Curve, steepness float64) (*Scorer, error) {
	if curve == "" {
		curve = CurveLinear
	}
	if !curve.IsValid() {
		return nil, fmt.Errorf("unknown proximity curve %q", curve)
	}
	if steepness <= 0 {
		steepness = DefaultSteepness
	}
	return &Scorer{curve: curve, steepness: steepness}, nil
}

// Score returns distance and proximity for a candidate.
// ok is false when the candidate lies beyond radiusKm and must be excluded.
func (s *Scorer) Score(user, candidate Point, radiusKm float64) (Score, bool) {
	d := DistanceKm(user, candidate)
	if d > radiusKm || radiusKm <= 0 {
		return Score{DistanceKm: d}, false
	}
	return Score{DistanceKm: d, Proximity: s.decay(d / radiusKm)}, true
}

// decay maps x = d/r in [0,1] to a proximity in [0,1], strictly decreasing.
func (s *Scorer) decay(x float64) float64 {
	var p float64
	switch s.curve {
	case CurveExponential:
		floor := math.Exp(-s.steepness)
		p = (math.Exp(-s.steepness*x) - floor) / (1 - floor)
	default:
		p = 1 - x
	}
	return clamp01(p)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
