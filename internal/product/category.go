package product

// Category is the closed set of functional component roles inside a
// cylinder BOM. Keeping it a typed enum (rather than switching on raw
// code prefixes at every call site) lets the compiler check
// exhaustiveness in the quantity and validation switches.
type Category int

const (
	CategoryOther Category = iota
	CategoryPiston
	CategoryPistonRod
	CategoryBarrel
	CategoryEndCap
	CategorySeal
	CategoryBushing
	CategoryGasket
	CategoryFastener
	CategoryTieRod
	CategoryPort
	CategoryCushion
)

var categoryNames = map[Category]string{
	CategoryOther:     "Other",
	CategoryPiston:    "Piston",
	CategoryPistonRod: "PistonRod",
	CategoryBarrel:    "CylinderBarrel",
	CategoryEndCap:    "EndCap",
	CategorySeal:      "SealingComponent",
	CategoryBushing:   "Bushing",
	CategoryGasket:    "Gasket",
	CategoryFastener:  "Fastener",
	CategoryTieRod:    "TieRod",
	CategoryPort:      "Port",
	CategoryCushion:   "Cushion",
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return "Other"
}

// CategoryFromName is the inverse of String. Unknown names map to
// CategoryOther.
func CategoryFromName(name string) Category {
	for c, n := range categoryNames {
		if n == name {
			return c
		}
	}
	return CategoryOther
}

// categoryCodes maps the two category digits of a component code to a
// Category.
var categoryCodes = map[string]Category{
	"01": CategoryPiston,
	"02": CategoryPistonRod,
	"03": CategoryBarrel,
	"04": CategoryEndCap,
	"05": CategorySeal,
	"06": CategoryBushing,
	"07": CategoryGasket,
	"08": CategoryFastener,
	"09": CategoryTieRod,
	"10": CategoryPort,
	"11": CategoryCushion,
}

// CategoryFromCode derives a component's category from its code
// digits. This is the fallback when no classification fact names the
// category; a rule-derived category always wins over this mapping.
func CategoryFromCode(code string) Category {
	if !IsComponentCode(code) {
		return CategoryOther
	}
	if c, ok := categoryCodes[slice(code, componentLayout.category)]; ok {
		return c
	}
	return CategoryOther
}

// AllCategories lists every category in declaration order. Used by
// the BOM generator when walking suggestion buckets.
func AllCategories() []Category {
	return []Category{
		CategoryPiston, CategoryPistonRod, CategoryBarrel,
		CategoryEndCap, CategorySeal, CategoryBushing,
		CategoryGasket, CategoryFastener, CategoryTieRod,
		CategoryPort, CategoryCushion, CategoryOther,
	}
}
