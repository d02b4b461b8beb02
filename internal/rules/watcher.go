package rules

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher monitors a rules directory and reloads it when a rule file
// changes. Rapid saves are debounced so an editor writing in chunks
// triggers a single reload.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	dir      string
	logger   *zap.Logger
	onReload func([]Rule)
	debounce time.Duration
	last     map[string]time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher over dir. onReload receives the full
// reloaded rule set after every accepted change event.
func NewWatcher(dir string, logger *zap.Logger, onReload func([]Rule)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		dir:      dir,
		logger:   logger.Named("rulewatch"),
		onReload: onReload,
		debounce: 500 * time.Millisecond,
		last:     make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. It is a no-op if the watcher is already
// running.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.fsw.Add(w.dir); err != nil {
		return err
	}
	w.running = true
	go w.loop()
	w.logger.Info("watching rules directory", zap.String("dir", w.dir))
	return nil
}

// Stop halts the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.fsw.Close()
}

func (w *Watcher) loop() {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isRuleFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if w.debounced(ev.Name) {
				continue
			}
			w.reload(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) debounced(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	if t, ok := w.last[path]; ok && now.Sub(t) < w.debounce {
		return true
	}
	w.last[path] = now
	return false
}

func (w *Watcher) reload(ev fsnotify.Event) {
	rs, err := LoadDir(w.dir, w.logger)
	if err != nil {
		w.logger.Warn("rule reload failed", zap.String("trigger", ev.Name), zap.Error(err))
		return
	}
	w.logger.Info("rules reloaded",
		zap.String("trigger", filepath.Base(ev.Name)),
		zap.Int("rules", len(rs)))
	w.onReload(rs)
}

func isRuleFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}
