package batch

import (
	"errors"
	"fmt"
)

// ErrTimeout marks an item that exceeded its processing budget.
// Timeouts are tracked apart from failures in the checkpoint.
var ErrTimeout = errors.New("batch: item timed out")

// FailureKind is a coarse classification of item failures, kept as a
// string so it survives the JSON checkpoint round trip.
type FailureKind string

const (
	FailureProcessing FailureKind = "processing"
	FailurePanic      FailureKind = "panic"
)

// ItemFailure is the terminal error for one item after retries are
// exhausted. It never aborts the job.
type ItemFailure struct {
	Code string
	Kind FailureKind
	Err  error
}

func (e *ItemFailure) Error() string {
	return fmt.Sprintf("item %s failed (%s): %v", e.Code, e.Kind, e.Err)
}

func (e *ItemFailure) Unwrap() error { return e.Err }

// CriticalError marks a coordinator-level fault that takes the whole
// job to FAILED.
type CriticalError struct {
	JobID  string
	Detail string
}

func (e *CriticalError) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Detail)
}
