package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cylbom/internal/classify"
	"cylbom/internal/graph"
	"cylbom/internal/product"
)

// classifyCmd runs the rule engine over a single code and prints the
// derived facts.
var classifyCmd = &cobra.Command{
	Use:   "classify [code]",
	Short: "Classify an item code through the rule engine",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	code := args[0]
	extra, err := loadOperatorRules()
	if err != nil {
		return err
	}

	g := graph.New()
	g.Add(graph.Fact{Subject: code, Predicate: graph.PredIsA, Object: classify.ClassMaterial})
	if product.IsCylinderCode(code) {
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

	engine := classify.New(logger,
		classify.WithExtraRules(extra),
		classify.WithMaxIterations(cfg.Rules.MaxIterations))
	result := engine.Classify(g)

	fmt.Printf("derived %d facts in %d iterations\n", result.Derived, result.Iterations)
	for _, f := range g.Sorted() {
		fmt.Printf("  (%s %s %s)\n", f.Subject, f.Predicate, f.Object)
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s has conflicting %s tiers: %v\n", w.Entity, w.Dimension, w.Tiers)
	}
	if result.Capped {
		fmt.Println("warning: iteration cap reached, classification may be incomplete")
	}
	return nil
}
