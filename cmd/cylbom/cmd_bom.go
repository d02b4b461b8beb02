package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var bomJSON bool

// bomCmd generates and prints the full BOM structure for a cylinder.
var bomCmd = &cobra.Command{
	Use:   "bom [code]",
	Short: "Generate the bill of materials for a cylinder",
	Args:  cobra.ExactArgs(1),
	RunE:  runBOM,
}

func init() {
	bomCmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog YAML file")
	bomCmd.Flags().BoolVar(&bomJSON, "json", false, "emit the structure as JSON")
}

func runBOM(cmd *cobra.Command, args []string) error {
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
	if err := kn.SaveResult(cmd.Context(), args[0], structure); err != nil {
		return fmt.Errorf("persist result: %w", err)
	}

	if bomJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(structure)
	}

	fmt.Printf("target: %s (series %s, bore %d, stroke %d)\n",
		structure.TargetCode, structure.Spec.Series, structure.Spec.Bore, structure.Spec.Stroke)

	fmt.Println("quantities:")
	for cat, n := range structure.Quantities {
		fmt.Printf("  %-18s %d\n", cat.String(), n)
	}

	fmt.Println("assembly:")
	for _, step := range structure.Assembly {
		fmt.Printf("  %d. %s - %s\n", step.Order, step.Name, step.Description)
	}

	v := structure.Validation
	fmt.Printf("completeness: %.0f%%\n", v.Completeness*100)
	for _, cat := range v.Missing {
		fmt.Printf("  missing: %s\n", cat)
	}
	for _, w := range v.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	return nil
}
