package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"cylbom/internal/product"
)

// suggestCmd prints compatible components per category for a target
// cylinder.
var suggestCmd = &cobra.Command{
	Use:   "suggest [code]",
	Short: "Suggest compatible components for a cylinder",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuggest,
}

func init() {
	suggestCmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog YAML file")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	src, err := loadCatalog()
	if err != nil {
		return err
	}
	kn, err := openKnowledge()
	if err != nil {
		return err
	}
	defer kn.Close()

	gen, err := newGenerator(src, kn)
	if err != nil {
		return err
	}
	structure, err := gen.Generate(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	cats := make([]product.Category, 0, len(structure.Suggestions))
	for cat := range structure.Suggestions {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].String() < cats[j].String() })

	for _, cat := range cats {
		fmt.Printf("%s:\n", cat)
		for _, s := range structure.Suggestions[cat] {
			fmt.Printf("  %-18s %.2f  %s\n", s.ComponentCode, s.Confidence, strings.Join(s.Reasons, "; "))
		}
	}
	return nil
}
