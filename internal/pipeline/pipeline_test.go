package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cylbom/internal/catalog"
	"cylbom/internal/product"
	"cylbom/internal/store"
)

const target = "30101080000200Y"

func fixtureCatalog() *catalog.Memory {
	src := catalog.NewMemory()
	src.AddItem(catalog.Item{Code: target, Name: "cylinder 80x200"})
	src.AddItem(catalog.Item{Code: "2030108", Name: "barrel series 10"})
	src.AddItem(catalog.Item{Code: "2050108", Name: "seal kit 80"})
	src.AddLine(target, catalog.Line{ComponentCode: "2030108", Quantity: 1})
	src.AddLine(target, catalog.Line{ComponentCode: "2050108", Quantity: 5})
	return src
}

func TestGenerateBarrelScenario(t *testing.T) {
	gen := New(fixtureCatalog(), store.NewMemory(), nil, zap.NewNop())

	structure, err := gen.Generate(context.Background(), target)
	require.NoError(t, err)

	barrels := structure.Suggestions[product.CategoryBarrel]
	require.Len(t, barrels, 1)
	assert.Equal(t, "2030108", barrels[0].ComponentCode)
	assert.Contains(t, barrels[0].Reasons, "series match: 10")
	assert.Contains(t, barrels[0].Reasons, "bore range 80-89 covers 80")

	assert.Equal(t, 5, structure.Quantities[product.CategorySeal])
	assert.Equal(t, 2, structure.Quantities[product.CategoryEndCap])
}

func TestTopNCapsSuggestionsPerCategory(t *testing.T) {
	src := fixtureCatalog()
	// A second seal kit in the same series and bore band competes
	// with the first.
	src.AddItem(catalog.Item{Code: "2051108", Name: "seal kit 80 viton"})
	src.AddLine(target, catalog.Line{ComponentCode: "2051108", Quantity: 5})

	gen := New(src, store.NewMemory(), nil, zap.NewNop(), WithTopN(1))
	structure, err := gen.Generate(context.Background(), target)
	require.NoError(t, err)
	assert.Len(t, structure.Suggestions[product.CategorySeal], 1)

	gen = New(src, store.NewMemory(), nil, zap.NewNop())
	structure, err = gen.Generate(context.Background(), target)
	require.NoError(t, err)
	assert.Len(t, structure.Suggestions[product.CategorySeal], 2)
}

func TestGenerateRejectsComponentCode(t *testing.T) {
	gen := New(fixtureCatalog(), store.NewMemory(), nil, zap.NewNop())
	_, err := gen.Generate(context.Background(), "2030108")
	assert.Error(t, err)
}

func TestGenerateSurvivesCyclicBOM(t *testing.T) {
	src := fixtureCatalog()
	// Catalog data error: the barrel lists the cylinder as its own
	// component. Traversal must terminate anyway.
	src.AddLine("2030108", catalog.Line{ComponentCode: target, Quantity: 1})

	gen := New(src, store.NewMemory(), nil, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := gen.Generate(context.Background(), target)
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("generation did not terminate on cyclic BOM")
	}
}

func TestGenerateSkipsExpiredLines(t *testing.T) {
	src := catalog.NewMemory()
	src.AddItem(catalog.Item{Code: target, Name: "cylinder 80x200"})
	src.AddLine(target, catalog.Line{
		ComponentCode: "2030108",
		Quantity:      1,
		Expiry:        time.Now().AddDate(-1, 0, 0),
	})

	gen := New(src, store.NewMemory(), nil, zap.NewNop())
	structure, err := gen.Generate(context.Background(), target)
	require.NoError(t, err)
	assert.Empty(t, structure.Suggestions[product.CategoryBarrel])
}

func TestProcessPersistsResult(t *testing.T) {
	kn := store.NewMemory()
	gen := New(fixtureCatalog(), kn, nil, zap.NewNop())

	require.NoError(t, gen.Process(context.Background(), target))

	done, err := kn.HasProcessed(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, done)

	got, err := kn.LookupByCode(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, target, got.Structure.TargetCode)
}

type failingSource struct{ catalog.Source }

func (failingSource) Items(ctx context.Context) ([]catalog.Item, error) {
	return nil, errors.New("catalog down")
}

func TestGenerateWrapsSeedErrors(t *testing.T) {
	gen := New(failingSource{}, store.NewMemory(), nil, zap.NewNop())
	_, err := gen.Generate(context.Background(), target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed")
}

type slowSource struct{ catalog.Source }

func (slowSource) Items(ctx context.Context) ([]catalog.Item, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStageTimeout(t *testing.T) {
	gen := New(slowSource{}, store.NewMemory(), nil, zap.NewNop(),
		WithStageTimeout(50*time.Millisecond))
	_, err := gen.Generate(context.Background(), target)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
