// Package rules implements the textual compatibility-rule language:
// conjunctive fact patterns plus guard predicates on the left, fact
// assertions on the right. Rule text is parsed once into a typed AST
// at load time; evaluation never re-parses.
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"cylbom/internal/graph"
)

// Arg is one position of a pattern or action: either a variable
// (Var != "") or a constant.
type Arg struct {
	Var   string
	Const string
}

// IsVar reports whether the argument is a variable reference.
func (a Arg) IsVar() bool { return a.Var != "" }

// V and C build variable and constant arguments. They keep the
// built-in rule set in classify readable.
func V(name string) Arg  { return Arg{Var: name} }
func C(value string) Arg { return Arg{Const: value} }

// Pattern is one fact lookup in a rule body. Variable positions bind
// on match; constant positions must match exactly.
type Pattern struct {
	Subject   Arg
	Predicate Arg
	Object    Arg
}

// GuardKind enumerates the guard predicates of the rule grammar.
type GuardKind int

const (
	GuardRegex GuardKind = iota
	GuardGreaterThan
	GuardLessThan
	GuardEqual
	GuardNotEqual
)

// Guard is a predicate over a bound variable. Regex guards carry the
// compiled pattern; numeric guards the parsed bound. Value/ValueVar
// serve the equality guards (at most one of them is set).
type Guard struct {
	Kind     GuardKind
	Var      string
	Regex    *regexp.Regexp
	Number   float64
	Value    string
	ValueVar string
}

// Action asserts one fact when the rule fires. Every variable it
// references must be bound by the rule's patterns; Compile enforces
// this.
type Action struct {
	Subject   Arg
	Predicate Arg
	Object    Arg
}

// Rule is a compiled inference rule. Rules are pure: applying one has
// no effect other than the facts it returns for assertion.
type Rule struct {
	Name     string
	Priority int
	Enabled  bool
	Patterns []Pattern
	Guards   []Guard
	Actions  []Action
}

// Validate checks internal consistency: at least one pattern and one
// action, and no action or guard variable left unbound by the
// patterns.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule has no name")
	}
	if len(r.Patterns) == 0 {
		return fmt.Errorf("rule %s: no patterns", r.Name)
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("rule %s: no actions", r.Name)
	}
	bound := make(map[string]struct{})
	for _, p := range r.Patterns {
		for _, a := range []Arg{p.Subject, p.Predicate, p.Object} {
			if a.IsVar() {
				bound[a.Var] = struct{}{}
			}
		}
	}
	for _, gd := range r.Guards {
		if _, ok := bound[gd.Var]; !ok {
			return fmt.Errorf("rule %s: guard references unbound variable ?%s", r.Name, gd.Var)
		}
		if gd.ValueVar != "" {
			if _, ok := bound[gd.ValueVar]; !ok {
				return fmt.Errorf("rule %s: guard references unbound variable ?%s", r.Name, gd.ValueVar)
			}
		}
	}
	for _, act := range r.Actions {
		for _, a := range []Arg{act.Subject, act.Predicate, act.Object} {
			if a.IsVar() {
				if _, ok := bound[a.Var]; !ok {
					return fmt.Errorf("rule %s: action references unbound variable ?%s", r.Name, a.Var)
				}
			}
		}
	}
	return nil
}

// Bindings maps variable names to the values they matched.
type Bindings map[string]string

func (b Bindings) clone() Bindings {
	c := make(Bindings, len(b))
	for k, v := range b {
		c[k] = v
	}
	return c
}

func resolve(a Arg, b Bindings) (string, bool) {
	if !a.IsVar() {
		return a.Const, true
	}
	v, ok := b[a.Var]
	return v, ok
}

// Apply evaluates the rule against g and returns the facts its
// actions would assert that are not already present. It never mutates
// g, which keeps rule application idempotent: at a fixed point Apply
// returns nothing.
func (r *Rule) Apply(g *graph.Graph) []graph.Fact {
	if !r.Enabled {
		return nil
	}
	seen := make(map[graph.Fact]struct{})
	var out []graph.Fact
	r.matchFrom(g, 0, Bindings{}, func(b Bindings) {
		if !r.guardsHold(b) {
			return
		}
		for _, act := range r.Actions {
			s, ok1 := resolve(act.Subject, b)
			p, ok2 := resolve(act.Predicate, b)
			o, ok3 := resolve(act.Object, b)
			if !ok1 || !ok2 || !ok3 {
				continue // unbound action var, rejected by Validate
			}
			f := graph.Fact{Subject: s, Predicate: p, Object: o}
			if g.Contains(f) {
				continue
			}
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	})
	return out
}

// matchFrom enumerates every binding satisfying patterns[i:], calling
// emit once per complete binding.
func (r *Rule) matchFrom(g *graph.Graph, i int, b Bindings, emit func(Bindings)) {
	if i == len(r.Patterns) {
		emit(b)
		return
	}
	p := r.Patterns[i]
	qs, _ := resolve(p.Subject, b)
	qp, _ := resolve(p.Predicate, b)
	qo, _ := resolve(p.Object, b)

	// Query treats empty strings as wildcards; collect matches before
	// recursing so nested Scan calls do not hold the lock re-entrantly.
	for _, f := range g.Query(qs, qp, qo) {
		next := b
		copied := false
		bind := func(a Arg, val string) bool {
			if !a.IsVar() {
				return a.Const == "" || a.Const == val
			}
			if cur, ok := next[a.Var]; ok {
				return cur == val
			}
			if !copied {
				next = next.clone()
				copied = true
			}
			next[a.Var] = val
			return true
		}
		if !bind(p.Subject, f.Subject) || !bind(p.Predicate, f.Predicate) || !bind(p.Object, f.Object) {
			continue
		}
		r.matchFrom(g, i+1, next, emit)
	}
}

func (r *Rule) guardsHold(b Bindings) bool {
	for _, gd := range r.Guards {
		val, ok := b[gd.Var]
		if !ok {
			return false
		}
		switch gd.Kind {
		case GuardRegex:
			if gd.Regex == nil || !gd.Regex.MatchString(val) {
				return false
			}
		case GuardGreaterThan:
			n, err := strconv.ParseFloat(val, 64)
			if err != nil || n <= gd.Number {
				return false
			}
		case GuardLessThan:
			n, err := strconv.ParseFloat(val, 64)
			if err != nil || n >= gd.Number {
				return false
			}
		case GuardEqual:
			if val != gd.rhs(b) {
				return false
			}
		case GuardNotEqual:
			if val == gd.rhs(b) {
				return false
			}
		}
	}
	return true
}

func (gd Guard) rhs(b Bindings) string {
	if gd.ValueVar != "" {
		return b[gd.ValueVar]
	}
	return gd.Value
}

// SortRules orders rules for evaluation: ascending priority, name as
// the tie-break. The slice is sorted in place.
func SortRules(rs []Rule) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Priority != rs[j].Priority {
			return rs[i].Priority < rs[j].Priority
		}
		return rs[i].Name < rs[j].Name
	})
}
