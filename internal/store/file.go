package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"resumeforensics/internal/errors"
	"resumeforensics/internal/types"
)

// FileStore keeps the state as a JSON document of the form
// {"resume_analyzer_state": {...}} on local disk. Loaded state is cached until
// the next Save or until the watcher sees the file change on disk.
type FileStore struct {
	mu      sync.Mutex
	path    string
	cached  *types.State
	watcher *FileWatcher
	logger  *errors.Logger
}

func NewFileStore(path string, logger *errors.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load(ctx context.Context) (types.State, error) {
	if err := ctx.Err(); err != nil {
		return types.State{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cached != nil {
		return f.cached.Clone(), nil
	}

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		state := withDefaults(types.State{})
		f.cached = &state
		return state.Clone(), nil
	}
	if err != nil {
		return types.State{}, storageError("failed to read state file", err).WithContext("path", f.path)
	}

	var doc map[string]types.State
	if err := json.Unmarshal(data, &doc); err != nil {
		return types.State{}, storageError("state file is not valid JSON", err).WithContext("path", f.path)
	}

	state := withDefaults(doc[StateKey])
	f.cached = &state
	return state.Clone(), nil
}

// Save writes the state to a temporary file and renames it over the target.
func (f *FileStore) Save(ctx context.Context, state types.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(map[string]types.State{StateKey: state}, "", "  ")
	if err != nil {
		return storageError("failed to encode state", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageError("failed to create state directory", err).WithContext("path", dir)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return storageError("failed to create temporary state file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return storageError("failed to write state file", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return storageError("failed to write state file", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return storageError("failed to replace state file", err).WithContext("path", f.path)
	}

	saved := state.Clone()
	f.cached = &saved
	if f.watcher != nil {
		f.watcher.markSeen()
	}
	return nil
}

// Watch drops the cache whenever another process rewrites the state file.
// Calling it again while a watch is active is a no-op.
func (f *FileStore) Watch(debounce time.Duration) error {
	f.mu.Lock()
	active := f.watcher != nil && f.watcher.IsRunning()
	f.mu.Unlock()
	if active {
		return nil
	}

	w, err := NewFileWatcher(f.path, debounce, f.invalidate, f.logger)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	f.mu.Lock()
	f.watcher = w
	f.mu.Unlock()
	return nil
}

func (f *FileStore) invalidate() {
	f.mu.Lock()
	f.cached = nil
	f.mu.Unlock()
	f.logger.Info("State file changed on disk, cache invalidated", "path", f.path)
}

func (f *FileStore) Close() error {
	f.mu.Lock()
	w := f.watcher
	f.watcher = nil
	f.mu.Unlock()
	if w != nil {
		return w.Stop()
	}
	return nil
}
