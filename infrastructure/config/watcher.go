package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileWatcher reports changes to a fixed set of files. Rapid successive
// events are collapsed into one callback after the debounce delay.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]struct{}
	debounce time.Duration
	onChange func(path string)
	logger   *zap.Logger

	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewFileWatcher watches paths and calls onChange with the most recently
// changed path. Parent directories are watched so editors that replace
// files by rename are still seen.
func NewFileWatcher(paths []string, debounce time.Duration, onChange func(path string), logger *zap.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &FileWatcher{
		watcher:  fsWatcher,
		files:    make(map[string]struct{}, len(paths)),
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logger.Debug("Watching directory", zap.String("path", dir))
	}

	go w.watchLoop()

	logger.Info("File watching enabled",
		zap.Int("files", len(w.files)),
		zap.Duration("debounce", debounce),
	)
	return w, nil
}

func (w *FileWatcher) watchLoop() {
	defer close(w.done)
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, watched := w.files[abs]; !watched {
				continue
			}

			w.logger.Info("Watched file changed",
				zap.String("file", abs),
				zap.String("operation", event.Op.String()),
			)
			w.schedule(abs)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *FileWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *FileWatcher) fire(path string) {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Change callback panicked",
				zap.String("file", path),
				zap.Any("panic", r),
			)
		}
	}()
	w.onChange(path)
}

// Stop ends watching. No callback starts after Stop returns.
func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()

		close(w.stopCh)
		<-w.done
		w.logger.Info("Stopped file watcher")
	})
}
