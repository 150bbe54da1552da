package store

import (
	"context"
	"sync"

	"resumeforensics/internal/types"
)

// MemoryStore keeps the state in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	state types.State
	saved bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (types.State, error) {
	if err := ctx.Err(); err != nil {
		return types.State{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.saved {
		return withDefaults(types.State{}), nil
	}
	return withDefaults(m.state.Clone()), nil
}

func (m *MemoryStore) Save(ctx context.Context, state types.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state.Clone()
	m.saved = true
	return nil
}

func (m *MemoryStore) Close() error { return nil }
