package catalog

import (
	"context"
	"sync"
)

// Memory is an in-memory Source, used by tests and by the CLI after
// loading a catalog file.
type Memory struct {
	mu    sync.RWMutex
	items []Item
	boms  map[string][]Line
}

func NewMemory() *Memory {
	return &Memory{boms: make(map[string][]Line)}
}

// AddItem appends an item master record.
func (m *Memory) AddItem(it Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, it)
}

// AddLine files a BOM line under masterCode.
func (m *Memory) AddLine(masterCode string, line Line) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boms[masterCode] = append(m.boms[masterCode], line)
}

func (m *Memory) Items(ctx context.Context) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *Memory) BOMLines(ctx context.Context, masterCode string) ([]Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lines := m.boms[masterCode]
	out := make([]Line, len(lines))
	copy(out, lines)
	return out, nil
}
