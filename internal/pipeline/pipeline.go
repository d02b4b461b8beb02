// Package pipeline composes one generation run per target cylinder:
// parse, seed the fact graph from the catalog, classify, suggest
// compatible components and assemble the BOM structure.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"cylbom/internal/bom"
	"cylbom/internal/catalog"
	"cylbom/internal/classify"
	"cylbom/internal/compat"
	"cylbom/internal/graph"
	"cylbom/internal/product"
	"cylbom/internal/rules"
	"cylbom/internal/similarity"
	"cylbom/internal/store"
)

const DefaultStageTimeout = 10 * time.Second

// Generator runs the full pipeline for single items. It is safe for
// concurrent use: the memo table is internally locked and each run
// builds its own graph.
type Generator struct {
	source       catalog.Source
	knowledge    store.Knowledge
	suggester    *compat.Engine
	logger       *zap.Logger
	stageTimeout time.Duration
	maxIter      int
	topN         int
	memoCap      int

	// classifier is swapped wholesale on rule reload.
	mu         sync.RWMutex
	classifier *classify.Engine
}

// Option configures a Generator.
type Option func(*Generator)

// WithStageTimeout bounds each pipeline stage.
func WithStageTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.stageTimeout = d
		}
	}
}

// WithMaxIterations caps the classification fixpoint loop.
func WithMaxIterations(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxIter = n
		}
	}
}

// WithTopN caps each category's suggestion list.
func WithTopN(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.topN = n
		}
	}
}

// WithMemoCapacity bounds the similarity memo table.
func WithMemoCapacity(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.memoCap = n
		}
	}
}

// New builds a Generator. extra holds operator rules loaded from the
// rules directory; they run alongside the built-in set.
func New(source catalog.Source, knowledge store.Knowledge, extra []rules.Rule, logger *zap.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{
		source:       source,
		knowledge:    knowledge,
		logger:       logger,
		stageTimeout: DefaultStageTimeout,
		memoCap:      similarity.DefaultMemoCapacity,
	}
	for _, opt := range opts {
		opt(g)
	}
	memo := similarity.NewMemo(g.memoCap)
	var copts []compat.Option
	if g.topN > 0 {
		copts = append(copts, compat.WithPerCategoryCap(g.topN))
	}
	g.suggester = compat.New(memo, logger, copts...)
	g.classifier = g.newClassifier(extra)
	return g
}

func (gen *Generator) newClassifier(extra []rules.Rule) *classify.Engine {
	opts := []classify.Option{classify.WithExtraRules(extra)}
	if gen.maxIter > 0 {
		opts = append(opts, classify.WithMaxIterations(gen.maxIter))
	}
	return classify.New(gen.logger, opts...)
}

// ReloadRules replaces the operator rule set; in-flight runs keep the
// engine they started with.
func (gen *Generator) ReloadRules(extra []rules.Rule) {
	engine := gen.newClassifier(extra)
	gen.mu.Lock()
	gen.classifier = engine
	gen.mu.Unlock()
	gen.logger.Info("operator rules reloaded", zap.Int("rules", len(extra)))
}

// Generate runs the pipeline for one target cylinder code.
func (gen *Generator) Generate(ctx context.Context, code string) (*bom.Structure, error) {
	if !product.IsCylinderCode(code) {
		return nil, fmt.Errorf("not a cylinder code: %q", code)
	}
	spec := product.Parse(code)

	g := graph.New()
	if err := gen.stage(ctx, "seed", func(sctx context.Context) error {
		return gen.seed(sctx, g, spec)
	}); err != nil {
		return nil, err
	}

	gen.mu.RLock()
	classifier := gen.classifier
	gen.mu.RUnlock()

	var result classify.Result
	if err := gen.stage(ctx, "classify", func(context.Context) error {
		result = classifier.Classify(g)
		return nil
	}); err != nil {
		return nil, err
	}
	if result.Capped {
		gen.logger.Warn("classification hit iteration cap", zap.String("code", code))
	}
	for _, w := range result.Warnings {
		gen.logger.Warn("classification conflict",
			zap.String("entity", w.Entity),
			zap.String("dimension", w.Dimension),
			zap.Strings("tiers", w.Tiers))
	}

	var suggestions map[product.Category][]compat.Suggestion
	if err := gen.stage(ctx, "suggest", func(context.Context) error {
		suggestions = gen.suggester.Suggest(g, code)
		return nil
	}); err != nil {
		return nil, err
	}

	structure := bom.Build(spec, suggestions)
	gen.logger.Debug("generated structure",
		zap.String("code", code),
		zap.Int("derived", result.Derived),
		zap.Float64("completeness", structure.Validation.Completeness))
	return &structure, nil
}

// Process runs Generate and persists the outcome. It is the unit of
// work handed to the batch coordinator; already processed codes are
// skipped upstream via the store.
func (gen *Generator) Process(ctx context.Context, code string) error {
	structure, err := gen.Generate(ctx, code)
	if err != nil {
		return err
	}
	return gen.knowledge.SaveResult(ctx, code, structure)
}

// seed loads the target's attribute facts plus every catalog item and
// the BOM lines reachable from the target. BOM traversal uses an
// explicit worklist with a visited set: catalog data is not trusted
// to be acyclic.
func (gen *Generator) seed(ctx context.Context, g *graph.Graph, spec product.Spec) error {
	seedEntity(g, spec.Code)

	items, err := gen.source.Items(ctx)
	if err != nil {
		return fmt.Errorf("load catalog items: %w", err)
	}
	for _, it := range items {
		seedEntity(g, it.Code)
		if it.Name != "" {
			g.Add(graph.Fact{Subject: it.Code, Predicate: graph.PredHasName, Object: it.Name})
		}
	}

	now := time.Now()
	worklist := []string{spec.Code}
	visited := map[string]bool{spec.Code: true}
	for len(worklist) > 0 {
		master := worklist[0]
		worklist = worklist[1:]

		lines, err := gen.source.BOMLines(ctx, master)
		if err != nil {
			return fmt.Errorf("load bom lines for %s: %w", master, err)
		}
		for _, line := range lines {
			if !line.ActiveAt(now) {
				continue
			}
			seedEntity(g, line.ComponentCode)
			g.Add(graph.Fact{Subject: line.ComponentCode, Predicate: graph.PredPartOf, Object: master})
			g.Add(graph.Fact{Subject: line.ComponentCode, Predicate: graph.PredHasQuantity, Object: strconv.Itoa(line.Quantity)})
			if !visited[line.ComponentCode] {
				visited[line.ComponentCode] = true
				worklist = append(worklist, line.ComponentCode)
			}
		}
	}
	return nil
}

// seedEntity adds the base material fact and, for parseable cylinder
// codes, the attribute facts the rules match on.
func seedEntity(g *graph.Graph, code string) {
	g.Add(graph.Fact{Subject: code, Predicate: graph.PredIsA, Object: classify.ClassMaterial})
	if !product.IsCylinderCode(code) {
		return
	}
	s := product.Parse(code)
	if s.Series != "" {
		g.Add(graph.Fact{Subject: code, Predicate: graph.PredHasSeries, Object: s.Series})
	}
	if s.BoreKnown() {
		g.Add(graph.Fact{Subject: code, Predicate: graph.PredHasBore, Object: strconv.Itoa(s.Bore)})
	}
	if s.StrokeKnown() {
		g.Add(graph.Fact{Subject: code, Predicate: graph.PredHasStroke, Object: strconv.Itoa(s.Stroke)})
	}
	if s.RodEnd != "" {
		g.Add(graph.Fact{Subject: code, Predicate: graph.PredHasRodEnd, Object: s.RodEnd})
	}
	if s.Installation != "" {
		g.Add(graph.Fact{Subject: code, Predicate: graph.PredHasInstallation, Object: s.Installation})
	}
}

// stage runs fn under the per-stage timeout.
func (gen *Generator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	sctx, cancel := context.WithTimeout(ctx, gen.stageTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(sctx) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	case <-sctx.Done():
		return fmt.Errorf("%s: %w", name, sctx.Err())
	}
}
