package graph

import (
	"fmt"
	"sort"
	"sync"
)

// Fact is a single (subject, predicate, object) assertion.
type Fact struct {
	Subject   string
	Predicate string
	Object    string
}

func (f Fact) String() string {
	return fmt.Sprintf("(%s %s %s)", f.Subject, f.Predicate, f.Object)
}

// MergeError reports that one source graph could not be merged. The
// caller is expected to skip the source and continue.
type MergeError struct {
	Source string
	Err    error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge from %s failed: %v", e.Source, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// Graph is a monotonic, thread-safe triple store. Facts are never
// retracted; Add is the only mutation apart from Merge, and Merge is
// atomic with respect to readers (a query observes either the
// pre-merge or post-merge state, never a partial merge).
type Graph struct {
	mu        sync.RWMutex
	set       map[Fact]struct{}
	bySubject map[string][]Fact
	byPred    map[string][]Fact
	order     []Fact // insertion order, for stable snapshots
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		set:       make(map[Fact]struct{}),
		bySubject: make(map[string][]Fact),
		byPred:    make(map[string][]Fact),
	}
}

// Add asserts a fact. Re-adding an existing fact is a no-op; the
// return value reports whether the fact was new.
func (g *Graph) Add(f Fact) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addLocked(f)
}

func (g *Graph) addLocked(f Fact) bool {
	if _, ok := g.set[f]; ok {
		return false
	}
	g.set[f] = struct{}{}
	g.bySubject[f.Subject] = append(g.bySubject[f.Subject], f)
	g.byPred[f.Predicate] = append(g.byPred[f.Predicate], f)
	g.order = append(g.order, f)
	return true
}

// AddAll asserts a batch of facts and returns how many were new.
func (g *Graph) AddAll(facts []Fact) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	added := 0
	for _, f := range facts {
		if g.addLocked(f) {
			added++
		}
	}
	return added
}

// Contains reports whether the exact fact is present.
func (g *Graph) Contains(f Fact) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.set[f]
	return ok
}

// Len returns the number of facts.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.set)
}

// Query returns all facts matching the pattern. An empty string in
// any position is a wildcard. The result is a fresh slice; mutating
// it does not affect the graph.
func (g *Graph) Query(subject, predicate, object string) []Fact {
	var out []Fact
	g.Scan(subject, predicate, object, func(f Fact) bool {
		out = append(out, f)
		return true
	})
	return out
}

// Scan streams facts matching the pattern to fn until fn returns
// false or the facts are exhausted. Iteration is restartable: each
// call walks the full match set from the beginning. Scan holds a read
// lock for its duration, so fn must not call back into mutating graph
// methods.
func (g *Graph) Scan(subject, predicate, object string, fn func(Fact) bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Pick the narrowest index available.
	var candidates []Fact
	switch {
	case subject != "":
		candidates = g.bySubject[subject]
	case predicate != "":
		candidates = g.byPred[predicate]
	default:
		candidates = g.order
	}
	for _, f := range candidates {
		if subject != "" && f.Subject != subject {
			continue
		}
		if predicate != "" && f.Predicate != predicate {
			continue
		}
		if object != "" && f.Object != object {
			continue
		}
		if !fn(f) {
			return
		}
	}
}

// Subjects returns the distinct subjects of facts with the given
// predicate and object (both may be wildcards).
func (g *Graph) Subjects(predicate, object string) []string {
	seen := make(map[string]struct{})
	var out []string
	g.Scan("", predicate, object, func(f Fact) bool {
		if _, ok := seen[f.Subject]; !ok {
			seen[f.Subject] = struct{}{}
			out = append(out, f.Subject)
		}
		return true
	})
	return out
}

// Object returns the object of the first fact matching (subject,
// predicate) and whether one exists.
func (g *Graph) Object(subject, predicate string) (string, bool) {
	var obj string
	found := false
	g.Scan(subject, predicate, "", func(f Fact) bool {
		obj = f.Object
		found = true
		return false
	})
	return obj, found
}

// Merge unions the facts of other into g. The operation is atomic:
// g's write lock is held for the whole union, so concurrent readers
// see either none or all of other's facts. Merge is associative and
// commutative. other is read under its own read lock; merging a graph
// into itself is a no-op.
func (g *Graph) Merge(other *Graph) error {
	if other == nil {
		return &MergeError{Source: "<nil>", Err: fmt.Errorf("nil source graph")}
	}
	if other == g {
		return nil
	}
	facts := other.Snapshot()
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, f := range facts {
		g.addLocked(f)
	}
	return nil
}

// Snapshot returns every fact in insertion order.
func (g *Graph) Snapshot() []Fact {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Fact, len(g.order))
	copy(out, g.order)
	return out
}

// Sorted returns every fact ordered lexicographically by subject,
// predicate, object. Used by tests to compare closures regardless of
// derivation order.
func (g *Graph) Sorted() []Fact {
	out := g.Snapshot()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Predicate != b.Predicate {
			return a.Predicate < b.Predicate
		}
		return a.Object < b.Object
	})
	return out
}
