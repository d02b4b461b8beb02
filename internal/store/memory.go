package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"cylbom/internal/bom"
)

// Memory is a map-backed Knowledge used by tests and by the batch
// crash/resume scenarios.
type Memory struct {
	mu          sync.RWMutex
	results     map[string]*Result
	checkpoints map[string]Checkpoint
	jobs        map[string]JobRecord
}

func NewMemory() *Memory {
	return &Memory{
		results:     make(map[string]*Result),
		checkpoints: make(map[string]Checkpoint),
		jobs:        make(map[string]JobRecord),
	}
}

func (m *Memory) LookupByCode(ctx context.Context, code string) (*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[code]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (m *Memory) LookupByPrefix(ctx context.Context, prefix string) ([]*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Result
	for code, r := range m.results {
		if strings.HasPrefix(code, prefix) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) HasProcessed(ctx context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.results[code]
	return ok, nil
}

func (m *Memory) SaveResult(ctx context.Context, code string, s *bom.Structure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[code] = &Result{Code: code, Structure: s, ProcessedAt: time.Now()}
	return nil
}

func (m *Memory) SaveCheckpoint(ctx context.Context, jobID string, cp Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp.JobID = jobID
	m.checkpoints[jobID] = cp
	return nil
}

func (m *Memory) LoadCheckpoint(ctx context.Context, jobID string) (Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.checkpoints[jobID]
	if !ok {
		return Checkpoint{}, ErrNotFound
	}
	return cp, nil
}

func (m *Memory) SaveJob(ctx context.Context, job JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *Memory) LoadJob(ctx context.Context, jobID string) (JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return JobRecord{}, ErrNotFound
	}
	return job, nil
}

func (m *Memory) ListJobs(ctx context.Context) ([]JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]JobRecord, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (m *Memory) Close() error { return nil }
