package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cylbom/internal/bom"
	"cylbom/internal/compat"
	"cylbom/internal/product"
)

func implementations(t *testing.T) map[string]Knowledge {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "cylbom.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]Knowledge{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func sampleStructure(code string) *bom.Structure {
	s := bom.Build(product.Parse(code), map[product.Category][]compat.Suggestion{
		product.CategoryBarrel: {{ComponentCode: "2030108", Confidence: 0.7, Reasons: []string{"series match: 10"}}},
	})
	return &s
}

func TestSaveAndLookupResult(t *testing.T) {
	for name, kn := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			code := "30101080000200Y"

			_, err := kn.LookupByCode(ctx, code)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kn.SaveResult(ctx, code, sampleStructure(code)))

			got, err := kn.LookupByCode(ctx, code)
			require.NoError(t, err)
			assert.Equal(t, code, got.Code)
			assert.Equal(t, code, got.Structure.TargetCode)
			assert.Len(t, got.Structure.Suggestions[product.CategoryBarrel], 1)

			done, err := kn.HasProcessed(ctx, code)
			require.NoError(t, err)
			assert.True(t, done)
		})
	}
}

func TestLookupByPrefix(t *testing.T) {
	for name, kn := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, code := range []string{"30101080000200Y", "30101090000200Y", "30111120000600Y"} {
				require.NoError(t, kn.SaveResult(ctx, code, sampleStructure(code)))
			}

			got, err := kn.LookupByPrefix(ctx, "30101")
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "30101080000200Y", got[0].Code)
			assert.Equal(t, "30101090000200Y", got[1].Code)
		})
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	for name, kn := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := kn.LoadCheckpoint(ctx, "job-1")
			assert.ErrorIs(t, err, ErrNotFound)

			cp := Checkpoint{
				ProcessedItems:        37,
				SuccessfulItems:       35,
				FailedItems:           2,
				LastProcessedItemCode: "30101087000200Y",
				Successes:             []string{"30101080000200Y"},
				Failures:              []string{"30199999009999P"},
				Skipped:               []string{"30105050000100Y"},
				TimedOut:              []string{"30111120000600Y"},
				SavedAt:               time.Now().UTC(),
			}
			require.NoError(t, kn.SaveCheckpoint(ctx, "job-1", cp))

			got, err := kn.LoadCheckpoint(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, "job-1", got.JobID)
			assert.Equal(t, 37, got.ProcessedItems)
			assert.Equal(t, "30101087000200Y", got.LastProcessedItemCode)
			assert.Equal(t, cp.Successes, got.Successes)
			assert.Equal(t, cp.Failures, got.Failures)
			assert.Equal(t, cp.Skipped, got.Skipped)
			assert.Equal(t, cp.TimedOut, got.TimedOut)
		})
	}
}

func TestJobLifecycle(t *testing.T) {
	for name, kn := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			started := time.Now().UTC().Truncate(time.Second)

			job := JobRecord{
				ID:         "job-1",
				Status:     "PROCESSING",
				TotalItems: 100,
				StartedAt:  started,
				UpdatedAt:  started,
			}
			require.NoError(t, kn.SaveJob(ctx, job))

			job.Status = "COMPLETED"
			job.FinishedAt = started.Add(time.Minute)
			require.NoError(t, kn.SaveJob(ctx, job))

			got, err := kn.LoadJob(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, "COMPLETED", got.Status)
			assert.False(t, got.FinishedAt.IsZero())

			jobs, err := kn.ListJobs(ctx)
			require.NoError(t, err)
			assert.Len(t, jobs, 1)

			_, err = kn.LoadJob(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
