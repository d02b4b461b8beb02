// Package product decodes fixed-width hydraulic cylinder and component
// item codes into structured specifications, and classifies component
// codes into functional categories.
package product

import (
	"strconv"
	"strings"
)

// Field positions inside a cylinder item code, 0-indexed half-open
// ranges. Positions beyond the end of a short code decode to empty.
var cylinderLayout = struct {
	kind         [2]int // product-type digit
	series       [2]int
	variant      [2]int
	bore         [2]int // 3-digit, mm
	special      [2]int // reserved / special-feature flags
	stroke       [2]int // 4-digit, mm
	rodEnd       [2]int
	installation [2]int // optional trailing field
}{
	kind:         [2]int{0, 1},
	series:       [2]int{2, 4},
	variant:      [2]int{4, 5},
	bore:         [2]int{5, 8},
	special:      [2]int{8, 10},
	stroke:       [2]int{10, 14},
	rodEnd:       [2]int{14, 15},
	installation: [2]int{15, 16},
}

// Spec holds the decoded attributes of an item code. Numeric fields
// keep their raw substring alongside the parsed value so that a
// non-numeric code position degrades to string comparison downstream
// instead of failing.
type Spec struct {
	Code         string
	Series       string
	Variant      string
	Bore         int
	BoreRaw      string
	Stroke       int
	StrokeRaw    string
	RodEnd       string
	Installation string
	Special      string
}

// Parse decodes an item code into a Spec. It is total: any field
// whose position lies beyond the end of the code is left empty, and
// a non-numeric bore/stroke leaves the int zero while preserving the
// raw text. Parse never returns an error.
func Parse(code string) Spec {
	s := Spec{Code: code}
	s.Series = slice(code, cylinderLayout.series)
	s.Variant = slice(code, cylinderLayout.variant)
	s.BoreRaw = slice(code, cylinderLayout.bore)
	s.StrokeRaw = slice(code, cylinderLayout.stroke)
	s.RodEnd = slice(code, cylinderLayout.rodEnd)
	s.Installation = slice(code, cylinderLayout.installation)
	s.Special = slice(code, cylinderLayout.special)

	s.Bore = parseDimension(s.BoreRaw)
	s.Stroke = parseDimension(s.StrokeRaw)
	return s
}

// BoreKnown reports whether the bore field decoded to a usable number.
func (s Spec) BoreKnown() bool {
	return parseableDimension(s.BoreRaw)
}

// StrokeKnown reports whether the stroke field decoded to a usable number.
func (s Spec) StrokeKnown() bool {
	return parseableDimension(s.StrokeRaw)
}

func slice(code string, pos [2]int) string {
	if len(code) <= pos[0] {
		return ""
	}
	end := pos[1]
	if end > len(code) {
		end = len(code)
	}
	return code[pos[0]:end]
}

// parseDimension strips leading zeros and parses the remainder as a
// base-10 integer. Returns 0 for empty or non-numeric input.
func parseDimension(raw string) int {
	t := strings.TrimLeft(raw, "0")
	if t == "" {
		if raw == "" {
			return 0
		}
		return 0 // all zeros
	}
	n, err := strconv.Atoi(t)
	if err != nil {
		return 0
	}
	return n
}

func parseableDimension(raw string) bool {
	if raw == "" {
		return false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
