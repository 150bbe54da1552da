package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"resumeforensics/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches a single file and invokes onChange, debounced, when its
// modification time moves forward or the file disappears.
type FileWatcher struct {
	mu sync.Mutex

	file        string
	lastModTime time.Time
	exists      bool

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	onChange func()
	logger   *errors.Logger

	running bool
}

func NewFileWatcher(file string, debounceDelay time.Duration, onChange func(), logger *errors.Logger) (*FileWatcher, error) {
	if file == "" {
		return nil, fmt.Errorf("file watcher requires a path")
	}
	if debounceDelay <= 0 {
		debounceDelay = 500 * time.Millisecond
	}
	return &FileWatcher{
		file:          file,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		onChange:      onChange,
		logger:        logger,
	}, nil
}

// Start begins watching. The parent directory is watched as well so atomic
// rename-over writes are observed.
func (w *FileWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("file watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsWatcher = watcher
	w.recordModTime()

	dir := filepath.Dir(w.file)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	w.running = true
	go w.watchLoop()

	if w.logger != nil {
		w.logger.Info("State file watcher started",
			"file", w.file,
			"debounce_delay", w.debounceDelay)
	}
	return nil
}

func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.running = false

	if err := w.fsWatcher.Close(); err != nil {
		if w.logger != nil {
			w.logger.LogError(err, "Failed to close file system watcher")
		}
		return err
	}
	return nil
}

func (w *FileWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// markSeen records the current modification time so the process's own writes
// do not trigger onChange.
func (w *FileWatcher) markSeen() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recordModTime()
}

// recordModTime must be called with mu held.
func (w *FileWatcher) recordModTime() {
	stat, err := os.Stat(w.file)
	if err != nil {
		w.exists = false
		w.lastModTime = time.Time{}
		return
	}
	w.exists = true
	w.lastModTime = stat.ModTime()
}

func (w *FileWatcher) hasChanged() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	stat, err := os.Stat(w.file)
	if err != nil {
		if os.IsNotExist(err) && w.exists {
			w.exists = false
			return true
		}
		return false
	}
	if !w.exists || stat.ModTime().After(w.lastModTime) {
		w.exists = true
		w.lastModTime = stat.ModTime()
		return true
	}
	return false
}

func (w *FileWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.shouldProcessEvent(event) {
				w.scheduleReload()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.LogError(err, "File watcher error")
			}

		case <-w.reloadChan:
			if w.hasChanged() {
				w.onChange()
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *FileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.file) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}

func (w *FileWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
		}
	})
}
