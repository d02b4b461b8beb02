package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cylbom/internal/product"
	"cylbom/internal/similarity"
)

var similarTopN int

// similarCmd ranks known cylinders by weighted spec similarity to a
// target code. Candidates come from the catalog file, the knowledge
// store, or both.
var similarCmd = &cobra.Command{
	Use:   "similar [code]",
	Short: "Rank the most similar known cylinders",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilar,
}

func init() {
	similarCmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog YAML file")
	similarCmd.Flags().IntVar(&similarTopN, "top", 0, "result cap (defaults to pipeline.suggest_top_n)")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	code := args[0]
	if !product.IsCylinderCode(code) {
		return fmt.Errorf("not a cylinder code: %q", code)
	}
	target := product.Parse(code)

	seen := map[string]bool{code: true}
	var candidates []product.Spec
	add := func(c string) {
		if seen[c] || !product.IsCylinderCode(c) {
			return
		}
		seen[c] = true
		candidates = append(candidates, product.Parse(c))
	}

	if catalogPath != "" {
		src, err := loadCatalog()
		if err != nil {
			return err
		}
		items, err := src.Items(cmd.Context())
		if err != nil {
			return err
		}
		for _, it := range items {
			add(it.Code)
		}
	}

	kn, err := openKnowledge()
	if err != nil {
		return err
	}
	defer kn.Close()
	for _, prefix := range []string{"3", "4"} {
		results, err := kn.LookupByPrefix(cmd.Context(), prefix)
		if err != nil {
			return fmt.Errorf("lookup by prefix %s: %w", prefix, err)
		}
		for _, r := range results {
			add(r.Code)
		}
	}

	topN := similarTopN
	if topN <= 0 {
		topN = cfg.Pipeline.SuggestTopN
	}
	matches := similarity.Rank(target, candidates, topN)
	if len(matches) == 0 {
		fmt.Println("no similar cylinders known")
		return nil
	}
	for _, m := range matches {
		fmt.Printf("%-18s %.2f  series %s bore %d stroke %d\n",
			m.Spec.Code, m.Score, m.Spec.Series, m.Spec.Bore, m.Spec.Stroke)
	}
	return nil
}
