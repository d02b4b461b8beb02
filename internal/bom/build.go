package bom

import (
	"cylbom/internal/compat"
	"cylbom/internal/product"
)

// Build assembles the full BOM structure for a parsed target.
func Build(spec product.Spec, suggestions map[product.Category][]compat.Suggestion) Structure {
	quantities := Quantities(spec)
	return Structure{
		TargetCode:  spec.Code,
		Spec:        spec,
		Suggestions: suggestions,
		Quantities:  quantities,
		Assembly:    AssemblySequence(),
		Maintenance: MaintenanceSchedule(),
		Validation:  Validate(suggestions, quantities),
	}
}
