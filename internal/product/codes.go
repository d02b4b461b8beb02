package product

// Minimum lengths for the two code families. A cylinder code must
// reach through the rod-end field; a component code must reach
// through its bore-range digit.
const (
	MinCylinderCodeLen  = 15
	MinComponentCodeLen = 7
)

// IsCylinderCode reports whether code identifies a finished hydraulic
// cylinder: first character 3 or 4 and at least 15 characters.
func IsCylinderCode(code string) bool {
	if len(code) < MinCylinderCodeLen {
		return false
	}
	return code[0] == '3' || code[0] == '4'
}

// IsComponentCode reports whether code identifies a component item:
// first character 2 and at least 7 characters.
func IsComponentCode(code string) bool {
	return len(code) >= MinComponentCodeLen && code[0] == '2'
}

// Component code layout: [0,1) the '2' marker, [1,3) category code,
// [3,4) variant, [4,6) series, [6,8) bore-range band (second digit
// optional).
var componentLayout = struct {
	category  [2]int
	variant   [2]int
	series    [2]int
	boreRange [2]int
}{
	category:  [2]int{1, 3},
	variant:   [2]int{3, 4},
	series:    [2]int{4, 6},
	boreRange: [2]int{6, 8},
}

// ComponentSeries extracts the series digits of a component code.
func ComponentSeries(code string) string {
	return slice(code, componentLayout.series)
}

// BoreRange decodes the bore band a component code claims to fit.
// A single band digit d covers bores [d*10, d*10+9]; with a second
// digit h present the band widens to [d*10, h*10+9]. ok is false when
// the band digits are missing or non-numeric.
func BoreRange(code string) (low, high int, ok bool) {
	raw := slice(code, componentLayout.boreRange)
	if raw == "" || !parseableDimension(raw) {
		return 0, 0, false
	}
	lo := int(raw[0] - '0')
	hi := lo
	if len(raw) > 1 {
		hi = int(raw[1] - '0')
	}
	if hi < lo {
		hi = lo
	}
	return lo * 10, hi*10 + 9, true
}
