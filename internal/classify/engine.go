// Package classify runs the forward-chaining classification engine:
// it applies the rule set to a fact graph until the closure is
// reached, then validates the result for tier conflicts.
package classify

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"cylbom/internal/graph"
	"cylbom/internal/rules"
)

// DefaultMaxIterations bounds pathological rule sets. Well-formed
// rule sets reach their fixed point in a handful of passes.
const DefaultMaxIterations = 100

// Engine applies a rule set to fact graphs.
type Engine struct {
	rules         []rules.Rule
	maxIterations int
	logger        *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtraRules appends externally loaded rules to the built-in set.
func WithExtraRules(rs []rules.Rule) Option {
	return func(e *Engine) {
		e.rules = append(e.rules, rs...)
	}
}

// WithMaxIterations overrides the closure iteration cap.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// New builds an engine over the built-in rule set.
func New(logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		rules:         BuiltinRules(),
		maxIterations: DefaultMaxIterations,
		logger:        logger.Named("classify"),
	}
	for _, o := range opts {
		o(e)
	}
	rules.SortRules(e.rules)
	return e
}

// Warning flags an entity classified into more than one mutually
// exclusive tier of the same dimension. This indicates a rule-set
// authoring bug; it is surfaced, never silently resolved.
type Warning struct {
	Entity    string
	Dimension string
	Tiers     []string
}

func (w Warning) String() string {
	return w.Entity + " is in multiple " + w.Dimension + " tiers: " + strings.Join(w.Tiers, ", ")
}

// Result summarizes one closure run.
type Result struct {
	Derived    int
	Iterations int
	Capped     bool
	Warnings   []Warning
}

// Classify computes the rule closure of g in place: every enabled
// rule is applied in (priority, name) order, repeatedly, until no
// rule derives a new fact or the iteration cap is hit. Because the
// graph is monotonic and Apply only proposes absent facts, running
// Classify on an already-closed graph derives nothing.
func (e *Engine) Classify(g *graph.Graph) Result {
	var res Result
	converged := false
	for res.Iterations < e.maxIterations {
		res.Iterations++
		added := 0
		for i := range e.rules {
			for _, f := range e.rules[i].Apply(g) {
				if g.Add(f) {
					added++
				}
			}
		}
		if added == 0 {
			converged = true
			break
		}
		res.Derived += added
	}
	if !converged {
		res.Capped = true
		e.logger.Warn("closure iteration cap reached",
			zap.Int("cap", e.maxIterations), zap.Int("derived", res.Derived))
	}
	res.Warnings = e.validate(g)
	for _, w := range res.Warnings {
		e.logger.Warn("exclusive tier conflict", zap.String("warning", w.String()))
	}
	return res
}

// validate reports entities holding more than one tier within a
// mutually exclusive dimension.
func (e *Engine) validate(g *graph.Graph) []Warning {
	var out []Warning
	dims := []struct {
		name  string
		tiers []string
	}{
		{"bore", graph.BoreTiers},
		{"stroke", graph.StrokeTiers},
	}
	for _, subj := range g.Subjects(graph.PredIsA, "") {
		for _, dim := range dims {
			var held []string
			for _, tier := range dim.tiers {
				if g.Contains(graph.Fact{Subject: subj, Predicate: graph.PredIsA, Object: tier}) {
					held = append(held, tier)
				}
			}
			if len(held) > 1 {
				out = append(out, Warning{Entity: subj, Dimension: dim.name, Tiers: held})
			}
		}
	}
	return out
}

func regexpMust(pattern string) *regexp.Regexp {
	return regexp.MustCompile(pattern)
}
