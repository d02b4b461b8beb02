// Package batch runs bulk generation jobs: a bounded worker pool over
// item codes with periodic checkpoints, cooperative pause/resume and
// crash recovery through the knowledge store.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cylbom/internal/metrics"
	"cylbom/internal/store"
)

// Status is the persisted lifecycle state of a job.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusPaused     Status = "PAUSED"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// Resumable reports whether a job in this status may be resumed.
// COMPLETED, FAILED and CANCELLED are terminal.
func (s Status) Resumable() bool {
	return s == StatusProcessing || s == StatusPaused
}

// Processor is the per-item unit of work, typically the pipeline
// generator.
type Processor interface {
	Process(ctx context.Context, code string) error
}

// Options tune one job run. Zero values fall back to defaults.
type Options struct {
	Workers     int           // pool size, default 8
	ItemTimeout time.Duration // per-item budget, default 30s
	BatchSize   int           // completions between checkpoints, default 50
	MaxRetries  int           // re-attempts after a failed item, default 0
}

const (
	DefaultWorkers     = 8
	DefaultItemTimeout = 30 * time.Second
	DefaultBatchSize   = 50
)

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.ItemTimeout <= 0 {
		o.ItemTimeout = DefaultItemTimeout
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	return o
}

// outcome classifies one finished item.
type outcome struct {
	code string
	kind outcomeKind
	err  error
	dur  time.Duration
}

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeFailed
	outcomeSkipped
	outcomeTimeout
	outcomeCancelled
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeSuccess:
		return "success"
	case outcomeFailed:
		return "failed"
	case outcomeSkipped:
		return "skipped"
	case outcomeTimeout:
		return "timeout"
	case outcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Coordinator owns job execution. One coordinator handles many jobs
// over its lifetime; each job runs in its own goroutine.
type Coordinator struct {
	proc      Processor
	knowledge store.Knowledge
	met       *metrics.Batch
	logger    *zap.Logger

	jobs jobRegistry
}

// New builds a Coordinator. met may be nil when metrics are not
// collected (tests).
func New(proc Processor, knowledge store.Knowledge, met *metrics.Batch, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if met == nil {
		met = metrics.NewBatch(nil)
	}
	return &Coordinator{
		proc:      proc,
		knowledge: knowledge,
		met:       met,
		logger:    logger,
		jobs:      newJobRegistry(),
	}
}

// Start launches a new job over items and returns its ID immediately.
// Use Wait to block until the run goroutine settles.
func (c *Coordinator) Start(ctx context.Context, items []string, opts Options) (string, error) {
	if len(items) == 0 {
		return "", errors.New("batch: no items")
	}
	opts = opts.withDefaults()
	jobID := uuid.NewString()

	now := time.Now().UTC()
	record := store.JobRecord{
		ID:         jobID,
		Status:     string(StatusProcessing),
		TotalItems: len(items),
		StartedAt:  now,
		UpdatedAt:  now,
	}
	if err := c.knowledge.SaveJob(ctx, record); err != nil {
		return "", fmt.Errorf("batch: save job: %w", err)
	}

	c.launch(ctx, jobID, items, opts, store.Checkpoint{JobID: jobID})
	return jobID, nil
}

// Resume continues a PROCESSING (crashed) or PAUSED job. The caller
// supplies the same item list the job was started with; the restart
// position comes from the checkpoint, preferring the index after
// lastProcessedItemCode and falling back to the processed count.
func (c *Coordinator) Resume(ctx context.Context, jobID string, items []string, opts Options) error {
	record, err := c.knowledge.LoadJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("batch: load job %s: %w", jobID, err)
	}
	if !Status(record.Status).Resumable() {
		return fmt.Errorf("batch: job %s is %s, not resumable", jobID, record.Status)
	}
	if c.jobs.active(jobID) {
		return fmt.Errorf("batch: job %s is already running", jobID)
	}

	cp, err := c.knowledge.LoadCheckpoint(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		cp = store.Checkpoint{JobID: jobID}
	} else if err != nil {
		return fmt.Errorf("batch: load checkpoint %s: %w", jobID, err)
	}

	start := resumeIndex(items, cp)
	remaining := uncounted(items[start:], cp)
	record.Status = string(StatusProcessing)
	record.UpdatedAt = time.Now().UTC()
	if err := c.knowledge.SaveJob(ctx, record); err != nil {
		return fmt.Errorf("batch: save job: %w", err)
	}

	c.logger.Info("resuming job",
		zap.String("job", jobID),
		zap.Int("startIndex", start),
		zap.Int("remaining", len(remaining)))
	c.launch(ctx, jobID, remaining, opts.withDefaults(), cp)
	return nil
}

// resumeIndex locates where to restart in the original item list.
func resumeIndex(items []string, cp store.Checkpoint) int {
	if cp.LastProcessedItemCode != "" {
		for i, code := range items {
			if code == cp.LastProcessedItemCode {
				return i + 1
			}
		}
	}
	if cp.ProcessedItems <= len(items) {
		return cp.ProcessedItems
	}
	return len(items)
}

// uncounted drops items the checkpoint already counted. The
// checkpoint records completions in completion order, so with a
// multi-worker pool items past lastProcessedItemCode may already sit
// in its lists; re-dispatching those would count them twice and push
// processedItems past the catalog size.
func uncounted(items []string, cp store.Checkpoint) []string {
	n := len(cp.Successes) + len(cp.Failures) + len(cp.Skipped) + len(cp.TimedOut)
	if n == 0 {
		return items
	}
	counted := make(map[string]struct{}, n)
	for _, list := range [][]string{cp.Successes, cp.Failures, cp.Skipped, cp.TimedOut} {
		for _, code := range list {
			counted[code] = struct{}{}
		}
	}
	out := make([]string, 0, len(items))
	for _, code := range items {
		if _, ok := counted[code]; !ok {
			out = append(out, code)
		}
	}
	return out
}

// Pause asks a running job to stop dispatching. In-flight items
// finish; the job checkpoints and stays PAUSED.
func (c *Coordinator) Pause(ctx context.Context, jobID string) error {
	return c.flagStatus(ctx, jobID, StatusPaused, "")
}

// Cancel stops a job for good: the status flag stops dispatch and the
// job context interrupts in-flight items.
func (c *Coordinator) Cancel(ctx context.Context, jobID string) error {
	if err := c.flagStatus(ctx, jobID, StatusCancelled, ""); err != nil {
		return err
	}
	c.jobs.cancel(jobID)
	return nil
}

func (c *Coordinator) flagStatus(ctx context.Context, jobID string, status Status, detail string) error {
	record, err := c.knowledge.LoadJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("batch: load job %s: %w", jobID, err)
	}
	if !Status(record.Status).Resumable() {
		return fmt.Errorf("batch: job %s is already %s", jobID, record.Status)
	}
	record.Status = string(status)
	record.UpdatedAt = time.Now().UTC()
	record.Detail = detail
	if status == StatusCancelled {
		record.FinishedAt = record.UpdatedAt
	}
	if err := c.knowledge.SaveJob(ctx, record); err != nil {
		return fmt.Errorf("batch: save job: %w", err)
	}
	c.jobs.flag(jobID, status)
	return nil
}

// Wait blocks until the job's run goroutine has settled. It returns
// immediately for jobs this coordinator is not running.
func (c *Coordinator) Wait(jobID string) {
	c.jobs.wait(jobID)
}

// Progress pairs the persisted record with its latest checkpoint for
// status reporting.
type Progress struct {
	Record     store.JobRecord
	Checkpoint store.Checkpoint
}

// Status returns the persisted view of a job.
func (c *Coordinator) Status(ctx context.Context, jobID string) (Progress, error) {
	record, err := c.knowledge.LoadJob(ctx, jobID)
	if err != nil {
		return Progress{}, fmt.Errorf("batch: load job %s: %w", jobID, err)
	}
	cp, err := c.knowledge.LoadCheckpoint(ctx, jobID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Progress{}, fmt.Errorf("batch: load checkpoint %s: %w", jobID, err)
	}
	return Progress{Record: record, Checkpoint: cp}, nil
}
