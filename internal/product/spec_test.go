package product

import (
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	// Canonical cylinder code: series 10, bore 80, stroke 200, yoke.
	s := Parse("30101080000200Y")

	if s.Series != "10" {
		t.Errorf("Series = %q, want %q", s.Series, "10")
	}
	if s.Variant != "1" {
		t.Errorf("Variant = %q, want %q", s.Variant, "1")
	}
	if s.Bore != 80 {
		t.Errorf("Bore = %d, want 80", s.Bore)
	}
	if s.BoreRaw != "080" {
		t.Errorf("BoreRaw = %q, want %q", s.BoreRaw, "080")
	}
	if s.Stroke != 200 {
		t.Errorf("Stroke = %d, want 200", s.Stroke)
	}
	if s.StrokeRaw != "0200" {
		t.Errorf("StrokeRaw = %q, want %q", s.StrokeRaw, "0200")
	}
	if s.RodEnd != "Y" {
		t.Errorf("RodEnd = %q, want %q", s.RodEnd, "Y")
	}
	if s.Installation != "" {
		t.Errorf("Installation = %q, want empty", s.Installation)
	}
}

func TestParseWithInstallation(t *testing.T) {
	s := Parse("40112125001000E1")
	if s.Series != "11" {
		t.Errorf("Series = %q, want 11", s.Series)
	}
	if s.Bore != 125 {
		t.Errorf("Bore = %d, want 125", s.Bore)
	}
	if s.Stroke != 1000 {
		t.Errorf("Stroke = %d, want 1000", s.Stroke)
	}
	if s.RodEnd != "E" {
		t.Errorf("RodEnd = %q, want E", s.RodEnd)
	}
	if s.Installation != "1" {
		t.Errorf("Installation = %q, want 1", s.Installation)
	}
}

func TestParseShortCode(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"only kind", "3"},
		{"through series", "3010"},
		{"partial bore", "301010800"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Must never panic; missing fields stay empty.
			s := Parse(tt.code)
			if s.RodEnd != "" && len(tt.code) < 15 {
				t.Errorf("RodEnd = %q for short code", s.RodEnd)
			}
		})
	}
}

func TestParseNonNumericDimension(t *testing.T) {
	// Bore field "0X0" cannot be decoded; raw text survives.
	s := Parse("30101" + "0X0" + "000200")
	if s.Bore != 0 {
		t.Errorf("Bore = %d, want 0", s.Bore)
	}
	if s.BoreRaw != "0X0" {
		t.Errorf("BoreRaw = %q, want 0X0", s.BoreRaw)
	}
	if s.BoreKnown() {
		t.Error("BoreKnown() = true for non-numeric bore")
	}
}

func TestIsCylinderCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"30101080000200Y", true},
		{"4011212501000E", true},
		{"2030108", false},         // component marker
		{"30101080002", false},     // too short
		{"5010108000200Y", false},  // unknown family
		{"", false},
	}
	for _, tt := range tests {
		if got := IsCylinderCode(tt.code); got != tt.want {
			t.Errorf("IsCylinderCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsComponentCode(t *testing.T) {
	if !IsComponentCode("2030108") {
		t.Error("IsComponentCode(2030108) = false")
	}
	if IsComponentCode("203010") {
		t.Error("IsComponentCode accepted 6-char code")
	}
	if IsComponentCode("3030108") {
		t.Error("IsComponentCode accepted cylinder family")
	}
}

func TestCategoryFromCode(t *testing.T) {
	tests := []struct {
		code string
		want Category
	}{
		{"2030108", CategoryBarrel},
		{"2010108", CategoryPiston},
		{"2050108", CategorySeal},
		{"2040108", CategoryEndCap},
		{"2990108", CategoryOther}, // unmapped digits
		{"30101080000200Y", CategoryOther},
	}
	for _, tt := range tests {
		if got := CategoryFromCode(tt.code); got != tt.want {
			t.Errorf("CategoryFromCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestCategoryNameRoundTrip(t *testing.T) {
	for _, c := range AllCategories() {
		if got := CategoryFromName(c.String()); got != c {
			t.Errorf("CategoryFromName(%q) = %v, want %v", c.String(), got, c)
		}
	}
}

func TestBoreRange(t *testing.T) {
	lo, hi, ok := BoreRange("2030108")
	if !ok || lo != 80 || hi != 89 {
		t.Errorf("BoreRange(2030108) = %d..%d ok=%v, want 80..89 true", lo, hi, ok)
	}

	lo, hi, ok = BoreRange("20301058")
	if !ok || lo != 50 || hi != 89 {
		t.Errorf("BoreRange(20301058) = %d..%d ok=%v, want 50..89 true", lo, hi, ok)
	}

	if _, _, ok := BoreRange("203010"); ok {
		t.Error("BoreRange accepted code without band digits")
	}
}
