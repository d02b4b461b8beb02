package rules

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const watcherRules = `
rules:
  - name: tag-high-pressure
    priority: 30
    when:
      - fact(?x, "hasBore", ?b)
      - greaterThan(?b, 100)
    then:
      - fact(?x, "isA", "HighPressure")
`

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()

	var (
		mu     sync.Mutex
		loaded [][]Rule
	)
	w, err := NewWatcher(dir, zap.NewNop(), func(rs []Rule) {
		mu.Lock()
		defer mu.Unlock()
		loaded = append(loaded, rs)
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(dir, "pressure.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watcherRules), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(loaded) > 0
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	last := loaded[len(loaded)-1]
	mu.Unlock()
	require.Len(t, last, 1)
	assert.Equal(t, "tag-high-pressure", last[0].Name)
}

func TestWatcherIgnoresNonRuleFiles(t *testing.T) {
	dir := t.TempDir()

	var (
		mu    sync.Mutex
		calls int
	)
	w, err := NewWatcher(dir, zap.NewNop(), func([]Rule) {
		mu.Lock()
		defer mu.Unlock()
		calls++
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not rules"), 0o644))

	time.Sleep(700 * time.Millisecond) // past the debounce window
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}

func TestLoadDirMissingDirectory(t *testing.T) {
	rs, err := LoadDir(filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, rs)
}
