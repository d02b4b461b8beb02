package bom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cylbom/internal/compat"
	"cylbom/internal/product"
)

func TestSealQuantityScalesWithBore(t *testing.T) {
	cases := []struct {
		code  string
		seals int
	}{
		{"30101040000200Y", 4}, // bore 40
		{"30101080000200Y", 5}, // bore 80
		{"30101120000200Y", 6}, // bore 120
		{"30101200000200Y", 8}, // bore 200
	}
	for _, tc := range cases {
		q := Quantities(product.Parse(tc.code))
		assert.Equal(t, tc.seals, q[product.CategorySeal], "code %s", tc.code)
	}
}

func TestEndCapsAlwaysTwo(t *testing.T) {
	for _, code := range []string{"30101040000200Y", "30101120000200Y", "30101200000200Y"} {
		q := Quantities(product.Parse(code))
		assert.Equal(t, 2, q[product.CategoryEndCap], "code %s", code)
	}
}

func TestTieRodQuantity(t *testing.T) {
	assert.Equal(t, 4, Quantities(product.Parse("30101080000200Y"))[product.CategoryTieRod])
	assert.Equal(t, 6, Quantities(product.Parse("30101120000200Y"))[product.CategoryTieRod])
	assert.Equal(t, 8, Quantities(product.Parse("30101200000200Y"))[product.CategoryTieRod])
}

func TestAssemblySequenceIsFixed(t *testing.T) {
	steps := AssemblySequence()
	require.Len(t, steps, 7)
	for i, step := range steps {
		assert.Equal(t, i+1, step.Order)
		assert.NotEmpty(t, step.Checkpoints)
	}
	assert.Equal(t, "prepare barrel", steps[0].Name)
	assert.Equal(t, "test", steps[6].Name)
}

func TestMaintenanceCadences(t *testing.T) {
	items := MaintenanceSchedule()
	require.Len(t, items, 5)
	cadences := make(map[string]bool)
	for _, it := range items {
		cadences[it.Cadence] = true
		assert.NotEmpty(t, it.Tasks)
	}
	for _, want := range []string{"daily", "weekly", "monthly", "annual", "condition-based"} {
		assert.True(t, cadences[want], "missing cadence %s", want)
	}
}

func TestValidateCompleteness(t *testing.T) {
	spec := product.Parse("30101080000200Y")
	sug := map[product.Category][]compat.Suggestion{
		product.CategoryBarrel: {{ComponentCode: "2030108", Confidence: 0.7}},
		product.CategorySeal:   {{ComponentCode: "2050108", Confidence: 0.9}},
		product.CategoryEndCap: {{ComponentCode: "2040108", Confidence: 0.8}},
	}
	v := Validate(sug, Quantities(spec))

	assert.InDelta(t, 0.6, v.Completeness, 1e-9)
	assert.ElementsMatch(t, []product.Category{product.CategoryPiston, product.CategoryPistonRod}, v.Missing)
	assert.Contains(t, v.Warnings, "fewer than 2 end caps found")
}

func TestBuild(t *testing.T) {
	spec := product.Parse("30101120000200Y")
	sug := map[product.Category][]compat.Suggestion{
		product.CategoryBarrel: {{ComponentCode: "2030112", Confidence: 0.7}},
	}
	b := Build(spec, sug)

	assert.Equal(t, spec.Code, b.TargetCode)
	assert.Equal(t, 6, b.Quantities[product.CategorySeal])
	assert.Len(t, b.Assembly, 7)
	assert.Len(t, b.Maintenance, 5)
	assert.InDelta(t, 0.2, b.Validation.Completeness, 1e-9)
}
