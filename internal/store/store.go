// Package store persists processing results, batch job records and
// checkpoints. The SQLite implementation backs the CLI; an in-memory
// implementation backs tests.
package store

import (
	"context"
	"errors"
	"time"

	"cylbom/internal/bom"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("store: not found")

// Result is one persisted generation outcome.
type Result struct {
	Code        string
	Structure   *bom.Structure
	ProcessedAt time.Time
}

// Checkpoint is the periodic batch progress record.
type Checkpoint struct {
	JobID                 string    `json:"jobId"`
	ProcessedItems        int       `json:"processedItems"`
	SuccessfulItems       int       `json:"successfulItems"`
	FailedItems           int       `json:"failedItems"`
	SkippedItems          int       `json:"skippedItems"`
	TimedOutItems         int       `json:"timedOutItems"`
	LastProcessedItemCode string    `json:"lastProcessedItemCode"`
	Successes             []string  `json:"successes"`
	Failures              []string  `json:"failures"`
	Skipped               []string  `json:"skipped"`
	TimedOut              []string  `json:"timedOut"`
	SavedAt               time.Time `json:"savedAt"`
}

// JobRecord is the persisted batch job row.
type JobRecord struct {
	ID         string
	Status     string
	TotalItems int
	StartedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt time.Time
	Detail     string
}

// Knowledge is the persistence boundary shared by the pipeline and
// the batch coordinator.
type Knowledge interface {
	// LookupByCode returns the stored result for an exact code.
	LookupByCode(ctx context.Context, code string) (*Result, error)
	// LookupByPrefix returns all stored results whose code starts
	// with prefix, in code order.
	LookupByPrefix(ctx context.Context, prefix string) ([]*Result, error)
	// HasProcessed reports whether a result exists for code.
	HasProcessed(ctx context.Context, code string) (bool, error)
	// SaveResult upserts the generation outcome for code.
	SaveResult(ctx context.Context, code string, s *bom.Structure) error

	SaveCheckpoint(ctx context.Context, jobID string, cp Checkpoint) error
	// LoadCheckpoint returns ErrNotFound when the job never
	// checkpointed.
	LoadCheckpoint(ctx context.Context, jobID string) (Checkpoint, error)

	SaveJob(ctx context.Context, job JobRecord) error
	LoadJob(ctx context.Context, jobID string) (JobRecord, error)
	ListJobs(ctx context.Context) ([]JobRecord, error)

	Close() error
}
