package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"cylbom/internal/store"
)

// jobRegistry tracks jobs this coordinator is currently running: the
// in-memory status flag polled by dispatchers, the cancel func for
// hard stops and the done channel for Wait.
type jobRegistry struct {
	mu   sync.Mutex
	jobs map[string]*jobState
}

type jobState struct {
	flag   Status
	cancel context.CancelFunc
	done   chan struct{}
}

func newJobRegistry() jobRegistry {
	return jobRegistry{jobs: make(map[string]*jobState)}
}

func (r *jobRegistry) register(jobID string, cancel context.CancelFunc) *jobState {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := &jobState{flag: StatusProcessing, cancel: cancel, done: make(chan struct{})}
	r.jobs[jobID] = st
	return st
}

func (r *jobRegistry) unregister(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
}

func (r *jobRegistry) active(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[jobID]
	return ok
}

func (r *jobRegistry) flag(jobID string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.jobs[jobID]; ok {
		st.flag = status
	}
}

func (r *jobRegistry) flagged(jobID string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.jobs[jobID]; ok {
		return st.flag
	}
	return StatusProcessing
}

func (r *jobRegistry) cancel(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.jobs[jobID]; ok {
		st.cancel()
	}
}

func (r *jobRegistry) wait(jobID string) {
	r.mu.Lock()
	st, ok := r.jobs[jobID]
	r.mu.Unlock()
	if ok {
		<-st.done
	}
}

// launch starts the run goroutine for a job.
func (c *Coordinator) launch(ctx context.Context, jobID string, items []string, opts Options, cp store.Checkpoint) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	st := c.jobs.register(jobID, cancel)

	go func() {
		defer close(st.done)
		defer c.jobs.unregister(jobID)
		defer cancel()
		defer func() {
			if rec := recover(); rec != nil {
				c.failJob(&CriticalError{JobID: jobID, Detail: fmt.Sprintf("panic: %v", rec)})
			}
		}()
		c.run(runCtx, jobID, items, opts, cp)
	}()
}

// failJob marks a job FAILED after a coordinator-level fault. A
// single item failure never lands here.
func (c *Coordinator) failJob(cerr *CriticalError) {
	c.logger.Error("job failed", zap.String("job", cerr.JobID), zap.String("detail", cerr.Detail))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	record, err := c.knowledge.LoadJob(ctx, cerr.JobID)
	if err != nil {
		return
	}
	jobID := cerr.JobID
	record.Status = string(StatusFailed)
	record.Detail = cerr.Detail
	record.UpdatedAt = time.Now().UTC()
	record.FinishedAt = record.UpdatedAt
	if err := c.knowledge.SaveJob(ctx, record); err != nil {
		c.logger.Error("saving failed status", zap.String("job", jobID), zap.Error(err))
	}
}

// run executes the job body: dispatch loop, collector, final
// checkpoint and status transition.
func (c *Coordinator) run(ctx context.Context, jobID string, items []string, opts Options, cp store.Checkpoint) {
	c.met.JobsActive.Inc()
	defer c.met.JobsActive.Dec()

	sem := semaphore.NewWeighted(int64(opts.Workers))
	results := make(chan outcome)
	var wg sync.WaitGroup

	// Collector: single writer for checkpoint state, consuming
	// completions in completion order.
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		sinceCheckpoint := 0
		for o := range results {
			if o.kind == outcomeCancelled {
				// Interrupted mid-flight by Cancel: not an item
				// verdict, so it stays out of the counters.
				continue
			}
			c.met.ItemsProcessed.WithLabelValues(o.kind.String()).Inc()
			c.met.ItemDuration.Observe(o.dur.Seconds())

			cp.ProcessedItems++
			cp.LastProcessedItemCode = o.code
			switch o.kind {
			case outcomeSuccess:
				cp.SuccessfulItems++
				cp.Successes = append(cp.Successes, o.code)
			case outcomeFailed:
				cp.FailedItems++
				cp.Failures = append(cp.Failures, o.code)
				c.logger.Warn("item failed",
					zap.String("job", jobID), zap.String("code", o.code), zap.Error(o.err))
			case outcomeSkipped:
				cp.SkippedItems++
				cp.Skipped = append(cp.Skipped, o.code)
			case outcomeTimeout:
				cp.TimedOutItems++
				cp.TimedOut = append(cp.TimedOut, o.code)
				c.logger.Warn("item timed out",
					zap.String("job", jobID), zap.String("code", o.code),
					zap.Duration("budget", opts.ItemTimeout))
			}

			sinceCheckpoint++
			if sinceCheckpoint >= opts.BatchSize {
				sinceCheckpoint = 0
				c.saveCheckpoint(jobID, cp)
			}
		}
	}()

	dispatched := 0
	interrupted := false
	for _, code := range items {
		// Status flag polled at the top of every task: pause and
		// cancel are cooperative.
		if flag := c.jobs.flagged(jobID); flag != StatusProcessing {
			interrupted = true
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			interrupted = true
			break
		}
		wg.Add(1)
		dispatched++
		go func(code string) {
			defer wg.Done()
			defer sem.Release(1)
			results <- c.processItem(ctx, code, opts)
		}(code)
	}

	wg.Wait()
	close(results)
	<-collectorDone

	c.saveCheckpoint(jobID, cp)
	c.finishJob(jobID, dispatched == len(items) && !interrupted)
}

// processItem runs one item: idempotent skip, per-item timeout,
// bounded retries.
func (c *Coordinator) processItem(ctx context.Context, code string, opts Options) outcome {
	start := time.Now()

	done, err := c.knowledge.HasProcessed(ctx, code)
	if err == nil && done {
		return outcome{code: code, kind: outcomeSkipped, dur: time.Since(start)}
	}

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		ictx, cancel := context.WithTimeout(ctx, opts.ItemTimeout)
		err := c.safeProcess(ictx, code)
		cancel()

		if err == nil {
			return outcome{code: code, kind: outcomeSuccess, dur: time.Since(start)}
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			timeoutErr := fmt.Errorf("%w after %s", ErrTimeout, opts.ItemTimeout)
			return outcome{code: code, kind: outcomeTimeout, err: timeoutErr, dur: time.Since(start)}
		}
		if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			// The job context was cancelled under the item, not the
			// item's own fault.
			return outcome{code: code, kind: outcomeCancelled, dur: time.Since(start)}
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	kind := FailureProcessing
	if errors.Is(lastErr, errItemPanic) {
		kind = FailurePanic
	}
	failure := &ItemFailure{Code: code, Kind: kind, Err: lastErr}
	return outcome{code: code, kind: outcomeFailed, err: failure, dur: time.Since(start)}
}

var errItemPanic = errors.New("item panic")

// safeProcess converts an item panic into an item failure: one bad
// item never takes the batch down.
func (c *Coordinator) safeProcess(ctx context.Context, code string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", errItemPanic, rec)
		}
	}()
	return c.proc.Process(ctx, code)
}

func (c *Coordinator) saveCheckpoint(jobID string, cp store.Checkpoint) {
	cp.SavedAt = time.Now().UTC()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.knowledge.SaveCheckpoint(ctx, jobID, cp); err != nil {
		c.logger.Error("saving checkpoint", zap.String("job", jobID), zap.Error(err))
	}
}

// finishJob moves the job to its terminal status. Paused and
// cancelled jobs keep the status the flag already persisted; a fully
// dispatched run completes.
func (c *Coordinator) finishJob(jobID string, complete bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	record, err := c.knowledge.LoadJob(ctx, jobID)
	if err != nil {
		c.logger.Error("loading job for finish", zap.String("job", jobID), zap.Error(err))
		return
	}
	if Status(record.Status) != StatusProcessing {
		return // pause or cancel already persisted the status
	}
	record.UpdatedAt = time.Now().UTC()
	if complete {
		record.Status = string(StatusCompleted)
		record.FinishedAt = record.UpdatedAt
	}
	// An interrupted run that is still PROCESSING (parent context
	// cancelled) stays PROCESSING: resumable, like a crash.
	if err := c.knowledge.SaveJob(ctx, record); err != nil {
		c.logger.Error("saving finished job", zap.String("job", jobID), zap.Error(err))
	}
}
