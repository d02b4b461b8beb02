// Package similarity ranks product specifications by a weighted
// multi-factor distance. One canonical weighting scheme is used
// throughout: fractional scores in [0,1] with weights series 0.25,
// bore 0.30, stroke 0.25, rod end 0.10, installation 0.10.
package similarity

import (
	"sort"

	"cylbom/internal/product"
)

// Canonical factor weights. They sum to 1.0; the normalizer divides
// by the weight actually evaluated, so skipped factors do not drag
// the score down.
const (
	WeightSeries       = 0.25
	WeightBore         = 0.30
	WeightStroke       = 0.25
	WeightRodEnd       = 0.10
	WeightInstallation = 0.10
)

// Dimension tolerances in millimetres for the tiered proximity
// function.
const (
	BoreTolerance   = 20
	StrokeTolerance = 50
)

// InclusionThreshold is the minimum score for a candidate to appear
// in a ranking.
const InclusionThreshold = 0.3

// DefaultTopN caps ranking results.
const DefaultTopN = 20

// proximity maps an absolute numeric difference to a similarity tier
// relative to tolerance t.
func proximity(d, t int) float64 {
	if d < 0 {
		d = -d
	}
	switch {
	case d == 0:
		return 1.0
	case d*4 <= t:
		return 0.9
	case d*2 <= t:
		return 0.7
	case d <= t:
		return 0.5
	case d <= 2*t:
		return 0.3
	default:
		return 0
	}
}

func equality(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return 0
}

// Score computes the similarity of two specifications in [0,1]. Each
// factor is skipped, and its weight excluded from the normalizer,
// when either side lacks the input. A fully specified spec scores
// exactly 1.0 against itself.
func Score(a, b product.Spec) float64 {
	var sum, weight float64

	if a.Series != "" && b.Series != "" {
		sum += WeightSeries * equality(a.Series, b.Series)
		weight += WeightSeries
	}
	if a.BoreRaw != "" && b.BoreRaw != "" {
		if a.BoreKnown() && b.BoreKnown() {
			sum += WeightBore * proximity(a.Bore-b.Bore, BoreTolerance)
		} else {
			sum += WeightBore * equality(a.BoreRaw, b.BoreRaw)
		}
		weight += WeightBore
	}
	if a.StrokeRaw != "" && b.StrokeRaw != "" {
		if a.StrokeKnown() && b.StrokeKnown() {
			sum += WeightStroke * proximity(a.Stroke-b.Stroke, StrokeTolerance)
		} else {
			sum += WeightStroke * equality(a.StrokeRaw, b.StrokeRaw)
		}
		weight += WeightStroke
	}
	if a.RodEnd != "" && b.RodEnd != "" {
		sum += WeightRodEnd * equality(a.RodEnd, b.RodEnd)
		weight += WeightRodEnd
	}
	if a.Installation != "" && b.Installation != "" {
		sum += WeightInstallation * equality(a.Installation, b.Installation)
		weight += WeightInstallation
	}

	if weight == 0 {
		return 0
	}
	s := sum / weight
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// Match is one ranked candidate.
type Match struct {
	Spec  product.Spec
	Score float64
}

// Rank scores candidates against target, drops everything below the
// inclusion threshold, sorts descending and truncates to topN (which
// falls back to DefaultTopN when non-positive). Ties break on code so
// the ordering is deterministic.
func Rank(target product.Spec, candidates []product.Spec, topN int) []Match {
	if topN <= 0 {
		topN = DefaultTopN
	}
	var out []Match
	for _, c := range candidates {
		s := Score(target, c)
		if s < InclusionThreshold {
			continue
		}
		out = append(out, Match{Spec: c, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Spec.Code < out[j].Spec.Code
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
