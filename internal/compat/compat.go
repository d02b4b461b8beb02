// Package compat scores catalog components against a target cylinder
// and groups the compatible ones by functional category. Rule-derived
// relations take precedence; everything else falls back to a weighted
// factor score with the similarity engine supplying the code-pattern
// factor.
package compat

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"cylbom/internal/graph"
	"cylbom/internal/product"
	"cylbom/internal/similarity"
)

// Factor weights for the fallback score. Skipped factors drop out of
// the normalizer rather than counting as zero.
const (
	WeightSeriesMatch = 0.30
	WeightBoreRange   = 0.25
	WeightCodePattern = 0.25
	WeightNameTokens  = 0.20
)

// Confidence assigned to rule-derived relations.
const (
	ConfidenceRecommended = 0.95
	ConfidenceCompatible  = 0.90
)

// Threshold a fallback score must exceed for the component to count
// as compatible.
const Threshold = 0.3

// boost applied by the category-specific post-filters.
const categoryBoost = 0.05

// DefaultPerCategoryCap truncates each category's suggestion list.
const DefaultPerCategoryCap = 10

// Suggestion is one ranked component for a category.
type Suggestion struct {
	ComponentCode string
	Confidence    float64
	Reasons       []string
}

// Engine computes per-category component suggestions.
type Engine struct {
	memo           *similarity.Memo
	perCategoryCap int
	logger         *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithPerCategoryCap overrides the per-category truncation limit.
func WithPerCategoryCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.perCategoryCap = n
		}
	}
}

// New builds an engine. memo may be shared across engines and
// callers; pass nil to give the engine a private table.
func New(memo *similarity.Memo, logger *zap.Logger, opts ...Option) *Engine {
	if memo == nil {
		memo = similarity.NewMemo(0)
	}
	e := &Engine{
		memo:           memo,
		perCategoryCap: DefaultPerCategoryCap,
		logger:         logger.Named("compat"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Suggest scores every component in the graph against targetCode and
// returns the compatible ones grouped by category, each list sorted
// by confidence descending and truncated to the per-category cap.
func (e *Engine) Suggest(g *graph.Graph, targetCode string) map[product.Category][]Suggestion {
	target := product.Parse(targetCode)
	out := make(map[product.Category][]Suggestion)

	for _, comp := range g.Subjects(graph.PredIsA, graph.ClassComponentItem) {
		sug, ok := e.score(g, target, targetCode, comp)
		if !ok {
			continue
		}
		cat := componentCategory(g, comp)
		sug = e.applyBoosts(g, target, cat, comp, sug)
		out[cat] = append(out[cat], sug)
	}

	for cat, list := range out {
		sort.Slice(list, func(i, j int) bool {
			if list[i].Confidence != list[j].Confidence {
				return list[i].Confidence > list[j].Confidence
			}
			return list[i].ComponentCode < list[j].ComponentCode
		})
		if len(list) > e.perCategoryCap {
			list = list[:e.perCategoryCap]
		}
		out[cat] = list
	}
	return out
}

// componentCategory prefers a rule-derived category fact over the
// code digits: the rules see more context than the code alone.
func componentCategory(g *graph.Graph, comp string) product.Category {
	if name, ok := g.Object(comp, graph.PredHasCategory); ok {
		if cat := product.CategoryFromName(name); cat != product.CategoryOther {
			return cat
		}
	}
	return product.CategoryFromCode(comp)
}

func (e *Engine) score(g *graph.Graph, target product.Spec, targetCode, comp string) (Suggestion, bool) {
	// Rule-derived relations short-circuit the factor score.
	if g.Contains(graph.Fact{Subject: comp, Predicate: graph.PredRecommendedFor, Object: targetCode}) {
		return Suggestion{
			ComponentCode: comp,
			Confidence:    ConfidenceRecommended,
			Reasons:       []string{"highly recommended by rules"},
		}, true
	}
	if g.Contains(graph.Fact{Subject: comp, Predicate: graph.PredCompatibleWith, Object: targetCode}) {
		return Suggestion{
			ComponentCode: comp,
			Confidence:    ConfidenceCompatible,
			Reasons:       []string{"rule-based inference"},
		}, true
	}

	var sum, weight float64
	var reasons []string

	// Series match.
	if cs := product.ComponentSeries(comp); cs != "" && target.Series != "" {
		weight += WeightSeriesMatch
		if cs == target.Series {
			sum += WeightSeriesMatch
			reasons = append(reasons, "series match: "+cs)
		}
	}

	// Bore-range membership from the component's band digits.
	if lo, hi, ok := product.BoreRange(comp); ok && target.BoreKnown() {
		weight += WeightBoreRange
		if target.Bore >= lo && target.Bore <= hi {
			sum += WeightBoreRange
			reasons = append(reasons, fmt.Sprintf("bore range %d-%d covers %d", lo, hi, target.Bore))
		}
	}

	// Generic code-pattern compatibility via the similarity engine.
	cp := e.memo.Score(target, product.Parse(comp))
	sum += WeightCodePattern * cp
	weight += WeightCodePattern
	if cp > 0 {
		reasons = append(reasons, fmt.Sprintf("code pattern similarity %.2f", cp))
	}

	// Name-token compatibility.
	if name, ok := g.Object(comp, graph.PredHasName); ok && name != "" {
		if ts, reason := nameTokenScore(name, target); ts >= 0 {
			sum += WeightNameTokens * ts
			weight += WeightNameTokens
			if reason != "" {
				reasons = append(reasons, reason)
			}
		}
	}

	if weight == 0 {
		return Suggestion{}, false
	}
	conf := clamp(sum / weight)
	if conf <= Threshold {
		return Suggestion{}, false
	}
	return Suggestion{ComponentCode: comp, Confidence: conf, Reasons: reasons}, true
}

// nameTokenScore compares the component's name tokens against the
// target's attribute tokens. Returns the matched fraction and a
// reason naming the matched tokens; -1 when the target offers no
// tokens to match.
func nameTokenScore(name string, target product.Spec) (float64, string) {
	var wanted []string
	if target.Series != "" {
		wanted = append(wanted, target.Series)
	}
	if target.BoreKnown() && target.Bore > 0 {
		wanted = append(wanted, strconv.Itoa(target.Bore))
	}
	if target.StrokeKnown() && target.Stroke > 0 {
		wanted = append(wanted, strconv.Itoa(target.Stroke))
	}
	if target.RodEnd != "" {
		wanted = append(wanted, strings.ToLower(target.RodEnd))
	}
	if len(wanted) == 0 {
		return -1, ""
	}

	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(name)) {
		tokens[strings.Trim(tok, ".,;:()")] = struct{}{}
	}
	var matched []string
	for _, w := range wanted {
		if _, ok := tokens[w]; ok {
			matched = append(matched, w)
		}
	}
	if len(matched) == 0 {
		return 0, ""
	}
	return float64(len(matched)) / float64(len(wanted)),
		"name mentions " + strings.Join(matched, ", ")
}

// applyBoosts runs the category-specific post-filters. Each boost
// lifts the confidence (clamped at 1.0) and records its reason.
func (e *Engine) applyBoosts(g *graph.Graph, target product.Spec, cat product.Category, comp string, sug Suggestion) Suggestion {
	name, _ := g.Object(comp, graph.PredHasName)
	lower := strings.ToLower(name)

	switch cat {
	case product.CategorySeal:
		if target.Bore > 100 && strings.Contains(lower, "high pressure") {
			sug.Confidence = clamp(sug.Confidence + categoryBoost)
			sug.Reasons = append(sug.Reasons, "high pressure seal suits large bore")
		}
	case product.CategoryBushing:
		if target.Stroke > 500 && strings.Contains(lower, "heavy duty") {
			sug.Confidence = clamp(sug.Confidence + categoryBoost)
			sug.Reasons = append(sug.Reasons, "heavy duty bushing suits long stroke")
		}
	case product.CategoryEndCap:
		if target.Installation != "" && len(comp) > 1 && strings.Contains(comp[1:], target.Installation) {
			sug.Confidence = clamp(sug.Confidence + categoryBoost)
			sug.Reasons = append(sug.Reasons, "end cap matches installation type "+target.Installation)
		}
	}
	return sug
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
