package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"cylbom/internal/bom"
	"cylbom/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeProcessor records calls per code and saves results like the
// real pipeline does.
type fakeProcessor struct {
	mu        sync.Mutex
	calls     map[string]int
	knowledge store.Knowledge

	failCodes  map[string]bool // always fail
	flakyCodes map[string]bool // fail on first attempt only
	panicCodes map[string]bool
	blockCodes map[string]bool // block until gate closes
	gate       chan struct{}
	delay      time.Duration
}

func newFakeProcessor(kn store.Knowledge) *fakeProcessor {
	return &fakeProcessor{
		calls:      make(map[string]int),
		knowledge:  kn,
		failCodes:  map[string]bool{},
		flakyCodes: map[string]bool{},
		panicCodes: map[string]bool{},
		blockCodes: map[string]bool{},
		gate:       make(chan struct{}),
	}
}

func (p *fakeProcessor) Process(ctx context.Context, code string) error {
	if p.blockCodes[code] {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	p.calls[code]++
	attempt := p.calls[code]
	p.mu.Unlock()

	if p.panicCodes[code] {
		panic("boom: " + code)
	}
	if p.failCodes[code] {
		return errors.New("cannot process " + code)
	}
	if p.flakyCodes[code] && attempt == 1 {
		return errors.New("transient failure on " + code)
	}
	return p.knowledge.SaveResult(ctx, code, &bom.Structure{TargetCode: code})
}

func (p *fakeProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func items(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("item-%03d", i)
	}
	return out
}

func TestRunToCompletion(t *testing.T) {
	kn := store.NewMemory()
	proc := newFakeProcessor(kn)
	c := New(proc, kn, nil, zap.NewNop())

	all := items(20)
	jobID, err := c.Start(context.Background(), all, Options{Workers: 4})
	require.NoError(t, err)
	c.Wait(jobID)

	progress, err := c.Status(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusCompleted), progress.Record.Status)
	assert.Equal(t, 20, progress.Checkpoint.ProcessedItems)
	assert.Equal(t, 20, progress.Checkpoint.SuccessfulItems)
	assert.ElementsMatch(t, all, progress.Checkpoint.Successes)

	for _, code := range all {
		assert.Equal(t, 1, proc.calls[code], "code %s", code)
	}
}

func TestCrashResumeExactlyOnce(t *testing.T) {
	all := items(100)
	ctx := context.Background()

	// Reference run, never interrupted.
	refStore := store.NewMemory()
	refProc := newFakeProcessor(refStore)
	ref := New(refProc, refStore, nil, zap.NewNop())
	refID, err := ref.Start(ctx, all, Options{Workers: 4})
	require.NoError(t, err)
	ref.Wait(refID)
	refProgress, err := ref.Status(ctx, refID)
	require.NoError(t, err)

	// Crashed run: 37 items done, checkpoint written, job record
	// still PROCESSING because the process died.
	kn := store.NewMemory()
	jobID := "job-crashed"
	cp := store.Checkpoint{
		ProcessedItems:        37,
		SuccessfulItems:       37,
		LastProcessedItemCode: all[36],
		Successes:             append([]string(nil), all[:37]...),
	}
	for _, code := range all[:37] {
		require.NoError(t, kn.SaveResult(ctx, code, &bom.Structure{TargetCode: code}))
	}
	require.NoError(t, kn.SaveCheckpoint(ctx, jobID, cp))
	require.NoError(t, kn.SaveJob(ctx, store.JobRecord{
		ID:         jobID,
		Status:     string(StatusProcessing),
		TotalItems: len(all),
		StartedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}))

	proc := newFakeProcessor(kn)
	c := New(proc, kn, nil, zap.NewNop())
	require.NoError(t, c.Resume(ctx, jobID, all, Options{Workers: 4}))
	c.Wait(jobID)

	progress, err := c.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusCompleted), progress.Record.Status)
	assert.Equal(t, 100, progress.Checkpoint.ProcessedItems)
	assert.Equal(t, 100, progress.Checkpoint.SuccessfulItems)

	// Only the remaining 63 items ran, each exactly once.
	assert.Equal(t, 63, proc.callCount())
	for _, code := range all[37:] {
		assert.Equal(t, 1, proc.calls[code], "code %s", code)
	}
	for _, code := range all[:37] {
		assert.Zero(t, proc.calls[code], "code %s reprocessed", code)
	}

	// Same final outcome as the uninterrupted run.
	assert.ElementsMatch(t, refProgress.Checkpoint.Successes, progress.Checkpoint.Successes)
}

func TestResumeAfterOutOfOrderCompletions(t *testing.T) {
	all := items(100)
	ctx := context.Background()
	kn := store.NewMemory()

	// With several workers the checkpoint records the last completion,
	// not the highest dispatched index: here 37 items finished but the
	// last recorded one sits at index 30. The items between must not
	// be counted a second time on resume.
	jobID := "job-out-of-order"
	cp := store.Checkpoint{
		JobID:                 jobID,
		ProcessedItems:        37,
		SuccessfulItems:       37,
		LastProcessedItemCode: all[30],
		Successes:             append([]string(nil), all[:37]...),
	}
	for _, code := range all[:37] {
		require.NoError(t, kn.SaveResult(ctx, code, &bom.Structure{TargetCode: code}))
	}
	require.NoError(t, kn.SaveCheckpoint(ctx, jobID, cp))
	require.NoError(t, kn.SaveJob(ctx, store.JobRecord{
		ID:         jobID,
		Status:     string(StatusProcessing),
		TotalItems: len(all),
		StartedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}))

	proc := newFakeProcessor(kn)
	c := New(proc, kn, nil, zap.NewNop())
	require.NoError(t, c.Resume(ctx, jobID, all, Options{Workers: 4}))
	c.Wait(jobID)

	progress, err := c.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusCompleted), progress.Record.Status)
	assert.Equal(t, 100, progress.Checkpoint.ProcessedItems)
	assert.Equal(t, 100, progress.Checkpoint.SuccessfulItems)
	assert.Equal(t, 63, proc.callCount())
	for _, code := range all[:37] {
		assert.Zero(t, proc.calls[code], "code %s reprocessed", code)
	}
	assert.ElementsMatch(t, all, progress.Checkpoint.Successes)
}

func TestPauseThenResumeCompletes(t *testing.T) {
	all := items(50)
	ctx := context.Background()
	kn := store.NewMemory()
	proc := newFakeProcessor(kn)
	proc.blockCodes[all[10]] = true

	c := New(proc, kn, nil, zap.NewNop())
	jobID, err := c.Start(ctx, all, Options{Workers: 1})
	require.NoError(t, err)

	// Wait for the first ten completions; the eleventh item is
	// parked on the gate.
	require.Eventually(t, func() bool { return proc.callCount() >= 10 },
		5*time.Second, time.Millisecond)

	require.NoError(t, c.Pause(ctx, jobID))
	close(proc.gate)
	c.Wait(jobID)

	paused, err := c.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusPaused), paused.Record.Status)
	assert.Greater(t, paused.Checkpoint.ProcessedItems, 9)
	assert.Less(t, paused.Checkpoint.ProcessedItems, 50)

	require.NoError(t, c.Resume(ctx, jobID, all, Options{Workers: 1}))
	c.Wait(jobID)

	final, err := c.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusCompleted), final.Record.Status)
	assert.Equal(t, 50, final.Checkpoint.ProcessedItems)
	assert.Equal(t, 50, final.Checkpoint.SuccessfulItems)
	for _, code := range all {
		assert.Equal(t, 1, proc.calls[code], "code %s", code)
	}
}

func TestPauseThenResumeMultiWorker(t *testing.T) {
	all := items(50)
	ctx := context.Background()
	kn := store.NewMemory()
	proc := newFakeProcessor(kn)
	proc.blockCodes[all[10]] = true
	proc.delay = 5 * time.Millisecond

	c := New(proc, kn, nil, zap.NewNop())
	jobID, err := c.Start(ctx, all, Options{Workers: 4})
	require.NoError(t, err)

	// The free workers run past the gated item, so completions land
	// out of index order before the pause.
	require.Eventually(t, func() bool { return proc.callCount() >= 20 },
		5*time.Second, time.Millisecond)

	require.NoError(t, c.Pause(ctx, jobID))
	close(proc.gate)
	c.Wait(jobID)

	paused, err := c.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusPaused), paused.Record.Status)
	assert.Less(t, paused.Checkpoint.ProcessedItems, 50)

	require.NoError(t, c.Resume(ctx, jobID, all, Options{Workers: 4}))
	c.Wait(jobID)

	final, err := c.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusCompleted), final.Record.Status)
	assert.Equal(t, 50, final.Checkpoint.ProcessedItems)
	assert.Equal(t, 50, final.Checkpoint.SuccessfulItems)
	assert.ElementsMatch(t, all, final.Checkpoint.Successes)
	for _, code := range all {
		assert.Equal(t, 1, proc.calls[code], "code %s", code)
	}
}

func TestCancelStopsInFlightItems(t *testing.T) {
	all := items(8)
	ctx := context.Background()
	kn := store.NewMemory()
	proc := newFakeProcessor(kn)
	for _, code := range all {
		proc.blockCodes[code] = true
	}

	c := New(proc, kn, nil, zap.NewNop())
	jobID, err := c.Start(ctx, all, Options{Workers: 4})
	require.NoError(t, err)

	require.NoError(t, c.Cancel(ctx, jobID))
	c.Wait(jobID)

	progress, err := c.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusCancelled), progress.Record.Status)
	assert.Zero(t, progress.Checkpoint.SuccessfulItems)

	// Items the cancellation interrupted are no verdict at all: they
	// are neither failures nor part of the processed count.
	assert.Zero(t, progress.Checkpoint.FailedItems)
	assert.Empty(t, progress.Checkpoint.Failures)
	assert.Zero(t, progress.Checkpoint.ProcessedItems)
}

func TestTimeoutCountedSeparately(t *testing.T) {
	all := []string{"item-000", "item-001"}
	kn := store.NewMemory()
	proc := newFakeProcessor(kn)
	proc.blockCodes["item-001"] = true // never released: runs into the item timeout
	defer close(proc.gate)

	c := New(proc, kn, nil, zap.NewNop())
	jobID, err := c.Start(context.Background(), all, Options{Workers: 2, ItemTimeout: 50 * time.Millisecond})
	require.NoError(t, err)
	c.Wait(jobID)

	progress, err := c.Status(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusCompleted), progress.Record.Status)
	assert.Equal(t, 1, progress.Checkpoint.SuccessfulItems)
	assert.Equal(t, 1, progress.Checkpoint.TimedOutItems)
	assert.Zero(t, progress.Checkpoint.FailedItems)
}

func TestRetryRecoversTransientFailure(t *testing.T) {
	all := items(3)
	kn := store.NewMemory()
	proc := newFakeProcessor(kn)
	proc.flakyCodes[all[1]] = true

	c := New(proc, kn, nil, zap.NewNop())
	jobID, err := c.Start(context.Background(), all, Options{Workers: 2, MaxRetries: 1})
	require.NoError(t, err)
	c.Wait(jobID)

	progress, err := c.Status(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, 3, progress.Checkpoint.SuccessfulItems)
	assert.Zero(t, progress.Checkpoint.FailedItems)
	assert.Equal(t, 2, proc.calls[all[1]])
}

func TestItemFailureDoesNotAbortBatch(t *testing.T) {
	all := items(10)
	kn := store.NewMemory()
	proc := newFakeProcessor(kn)
	proc.failCodes[all[3]] = true
	proc.panicCodes[all[7]] = true

	c := New(proc, kn, nil, zap.NewNop())
	jobID, err := c.Start(context.Background(), all, Options{Workers: 2})
	require.NoError(t, err)
	c.Wait(jobID)

	progress, err := c.Status(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusCompleted), progress.Record.Status)
	assert.Equal(t, 8, progress.Checkpoint.SuccessfulItems)
	assert.Equal(t, 2, progress.Checkpoint.FailedItems)
	assert.ElementsMatch(t, []string{all[3], all[7]}, progress.Checkpoint.Failures)
}

func TestSkipsAlreadyProcessedItems(t *testing.T) {
	all := items(5)
	ctx := context.Background()
	kn := store.NewMemory()
	require.NoError(t, kn.SaveResult(ctx, all[0], &bom.Structure{TargetCode: all[0]}))
	proc := newFakeProcessor(kn)

	c := New(proc, kn, nil, zap.NewNop())
	jobID, err := c.Start(ctx, all, Options{Workers: 2})
	require.NoError(t, err)
	c.Wait(jobID)

	progress, err := c.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Checkpoint.SkippedItems)
	assert.Equal(t, 4, progress.Checkpoint.SuccessfulItems)
	assert.Zero(t, proc.calls[all[0]])
}

func TestResumeRejectsTerminalJob(t *testing.T) {
	ctx := context.Background()
	kn := store.NewMemory()
	require.NoError(t, kn.SaveJob(ctx, store.JobRecord{
		ID:     "done",
		Status: string(StatusCompleted),
	}))

	c := New(newFakeProcessor(kn), kn, nil, zap.NewNop())
	err := c.Resume(ctx, "done", items(3), Options{})
	assert.Error(t, err)
}

func TestPeriodicCheckpointing(t *testing.T) {
	all := items(25)
	kn := store.NewMemory()
	proc := newFakeProcessor(kn)
	proc.blockCodes[all[24]] = true

	c := New(proc, kn, nil, zap.NewNop())
	jobID, err := c.Start(context.Background(), all, Options{Workers: 1, BatchSize: 10})
	require.NoError(t, err)

	// After 20 completions two periodic checkpoints have been
	// written, well before the job finishes.
	require.Eventually(t, func() bool {
		cp, err := kn.LoadCheckpoint(context.Background(), jobID)
		return err == nil && cp.ProcessedItems >= 20
	}, 5*time.Second, time.Millisecond)

	close(proc.gate)
	c.Wait(jobID)

	final, err := c.Status(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, 25, final.Checkpoint.ProcessedItems)
}
