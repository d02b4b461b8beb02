// Package bom assembles the final bill-of-materials structure for a
// target cylinder: categorized component suggestions, spec-driven
// quantities, the fixed assembly sequence, maintenance cadences and a
// completeness report.
package bom

import (
	"fmt"

	"cylbom/internal/compat"
	"cylbom/internal/product"
)

// Structure is the generated BOM for one target cylinder.
type Structure struct {
	TargetCode  string
	Spec        product.Spec
	Suggestions map[product.Category][]compat.Suggestion
	Quantities  map[product.Category]int
	Assembly    []AssemblyStep
	Maintenance []MaintenanceItem
	Validation  Validation
}

// AssemblyStep is one step of the fixed assembly sequence.
type AssemblyStep struct {
	Order       int
	Name        string
	Description string
	Components  []product.Category
	Checkpoints []string
}

// MaintenanceItem is one maintenance-cadence bucket.
type MaintenanceItem struct {
	Cadence string // daily, weekly, monthly, annual, condition-based
	Tasks   []string
}

// Validation reports structural completeness of the generated BOM.
type Validation struct {
	Completeness float64 // present required categories / required categories
	Missing      []product.Category
	Warnings     []string
}

// requiredCategories drive the completeness score.
var requiredCategories = []product.Category{
	product.CategoryBarrel,
	product.CategoryPiston,
	product.CategoryPistonRod,
	product.CategoryEndCap,
	product.CategorySeal,
}

// Quantities computes per-category piece counts from the target spec.
// Seal and fastener counts scale with bore; end caps are always two.
func Quantities(spec product.Spec) map[product.Category]int {
	q := map[product.Category]int{
		product.CategoryBarrel:    1,
		product.CategoryPiston:    1,
		product.CategoryPistonRod: 1,
		product.CategoryEndCap:    2,
		product.CategoryBushing:   1,
		product.CategoryGasket:    2,
		product.CategoryPort:      2,
	}

	switch bore := spec.Bore; {
	case bore <= 50:
		q[product.CategorySeal] = 4
	case bore <= 100:
		q[product.CategorySeal] = 5
	case bore <= 150:
		q[product.CategorySeal] = 6
	default:
		q[product.CategorySeal] = 8
	}

	switch bore := spec.Bore; {
	case bore <= 50:
		q[product.CategoryTieRod] = 4
		q[product.CategoryFastener] = 4
	case bore <= 100:
		q[product.CategoryTieRod] = 4
		q[product.CategoryFastener] = 4
	case bore <= 150:
		q[product.CategoryTieRod] = 6
		q[product.CategoryFastener] = 6
	default:
		q[product.CategoryTieRod] = 8
		q[product.CategoryFastener] = 8
	}
	return q
}

// AssemblySequence returns the fixed seven-step sequence annotated
// with the component categories each step consumes and its critical
// checkpoints.
func AssemblySequence() []AssemblyStep {
	return []AssemblyStep{
		{
			Order:       1,
			Name:        "prepare barrel",
			Description: "deburr, clean and inspect the cylinder barrel bore",
			Components:  []product.Category{product.CategoryBarrel},
			Checkpoints: []string{"bore surface finish within tolerance", "no scoring or corrosion"},
		},
		{
			Order:       2,
			Name:        "install rear cap",
			Description: "fit rear end cap with static seals",
			Components:  []product.Category{product.CategoryEndCap, product.CategorySeal, product.CategoryGasket},
			Checkpoints: []string{"seal seating verified", "torque to specification"},
		},
		{
			Order:       3,
			Name:        "assemble piston",
			Description: "mount piston seals and bearing bands on the piston",
			Components:  []product.Category{product.CategoryPiston, product.CategorySeal},
			Checkpoints: []string{"seal orientation correct"},
		},
		{
			Order:       4,
			Name:        "install piston assembly",
			Description: "attach piston to rod and insert the assembly into the barrel",
			Components:  []product.Category{product.CategoryPiston, product.CategoryPistonRod, product.CategoryBushing},
			Checkpoints: []string{"rod runout within tolerance", "no seal pinching on entry"},
		},
		{
			Order:       5,
			Name:        "install front cap",
			Description: "fit front end cap, rod seals and wiper",
			Components:  []product.Category{product.CategoryEndCap, product.CategorySeal, product.CategoryBushing},
			Checkpoints: []string{"rod seal and wiper seated", "torque to specification"},
		},
		{
			Order:       6,
			Name:        "final assembly",
			Description: "fit tie rods, fasteners and port fittings",
			Components:  []product.Category{product.CategoryTieRod, product.CategoryFastener, product.CategoryPort},
			Checkpoints: []string{"tie rods tensioned evenly", "ports plugged for transport"},
		},
		{
			Order:       7,
			Name:        "test",
			Description: "pressure-test and stroke the finished cylinder",
			Components:  nil,
			Checkpoints: []string{"no external leakage at proof pressure", "full stroke without stick-slip"},
		},
	}
}

// MaintenanceSchedule returns the five cadence buckets.
func MaintenanceSchedule() []MaintenanceItem {
	return []MaintenanceItem{
		{Cadence: "daily", Tasks: []string{"visual leak check", "rod surface inspection"}},
		{Cadence: "weekly", Tasks: []string{"check mounting bolts", "wipe rod and wiper area"}},
		{Cadence: "monthly", Tasks: []string{"inspect hoses and fittings", "check drift under load"}},
		{Cadence: "annual", Tasks: []string{"replace seal kit", "inspect bore and rod for wear"}},
		{Cadence: "condition-based", Tasks: []string{"replace bushings on play", "re-hone barrel on scoring"}},
	}
}

// Validate scores completeness over the required categories and
// collects structural warnings.
func Validate(suggestions map[product.Category][]compat.Suggestion, quantities map[product.Category]int) Validation {
	var v Validation
	present := 0
	for _, cat := range requiredCategories {
		if len(suggestions[cat]) > 0 {
			present++
		} else {
			v.Missing = append(v.Missing, cat)
		}
	}
	v.Completeness = float64(present) / float64(len(requiredCategories))

	if n := len(suggestions[product.CategoryEndCap]); n > 0 && n < quantities[product.CategoryEndCap] {
		v.Warnings = append(v.Warnings,
			fmt.Sprintf("fewer than %d end caps found", quantities[product.CategoryEndCap]))
	}
	for cat, list := range suggestions {
		if len(list) == 0 {
			v.Warnings = append(v.Warnings, fmt.Sprintf("category %s has no candidates", cat))
		}
	}
	return v
}
