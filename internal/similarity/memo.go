package similarity

import (
	"sync"

	"cylbom/internal/product"
)

// Memo is a bounded, thread-safe memo table for pairwise scores. It
// replaces the module-level cache of the original engine: callers
// construct one and pass it where needed, so its lifetime and size
// are explicit. Eviction is FIFO on insertion order, which is cheap
// and good enough for a cache of a scoring function this fast.
type Memo struct {
	mu    sync.Mutex
	cap   int
	table map[memoKey]float64
	fifo  []memoKey
}

type memoKey struct {
	a, b string
}

// DefaultMemoCapacity bounds the table when callers pass a
// non-positive capacity.
const DefaultMemoCapacity = 4096

// NewMemo creates a memo table holding at most capacity entries.
func NewMemo(capacity int) *Memo {
	if capacity <= 0 {
		capacity = DefaultMemoCapacity
	}
	return &Memo{
		cap:   capacity,
		table: make(map[memoKey]float64, capacity),
	}
}

// Score returns the memoized similarity of a and b, computing and
// recording it on a miss. The key is symmetric: Score(a, b) and
// Score(b, a) share one entry.
func (m *Memo) Score(a, b product.Spec) float64 {
	k := memoKey{a.Code, b.Code}
	if k.b < k.a {
		k.a, k.b = k.b, k.a
	}

	m.mu.Lock()
	if s, ok := m.table[k]; ok {
		m.mu.Unlock()
		return s
	}
	m.mu.Unlock()

	s := Score(a, b)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.table[k]; !ok {
		if len(m.table) >= m.cap {
			oldest := m.fifo[0]
			m.fifo = m.fifo[1:]
			delete(m.table, oldest)
		}
		m.table[k] = s
		m.fifo = append(m.fifo, k)
	}
	return s
}

// Len reports the current number of cached entries.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.table)
}
