package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cylbom/internal/product"
)

// parseCmd decodes an item code without touching the catalog.
var parseCmd = &cobra.Command{
	Use:   "parse [code]",
	Short: "Decode a cylinder or component item code",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	code := args[0]
	switch {
	case product.IsCylinderCode(code):
		s := product.Parse(code)
		fmt.Printf("kind:         cylinder\n")
		fmt.Printf("series:       %s\n", s.Series)
		fmt.Printf("variant:      %s\n", s.Variant)
		if s.BoreKnown() {
			fmt.Printf("bore:         %d mm\n", s.Bore)
		} else {
			fmt.Printf("bore:         %s (not numeric)\n", s.BoreRaw)
		}
		if s.StrokeKnown() {
			fmt.Printf("stroke:       %d mm\n", s.Stroke)
		} else {
			fmt.Printf("stroke:       %s (not numeric)\n", s.StrokeRaw)
		}
		fmt.Printf("rod end:      %s\n", s.RodEnd)
		if s.Installation != "" {
			fmt.Printf("installation: %s\n", s.Installation)
		}
	case product.IsComponentCode(code):
		fmt.Printf("kind:     component\n")
		fmt.Printf("category: %s\n", product.CategoryFromCode(code))
		fmt.Printf("series:   %s\n", product.ComponentSeries(code))
		if lo, hi, ok := product.BoreRange(code); ok {
			fmt.Printf("bore fit: %d-%d mm\n", lo, hi)
		}
	default:
		return fmt.Errorf("unrecognized item code %q", code)
	}
	return nil
}
