package scripts

import (
	"context"
	"sync"
)

// MemoryRepo implements Repo in process memory.
type MemoryRepo struct {
	mu      sync.RWMutex
	scripts map[string]Metadata
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{scripts: make(map[string]Metadata)}
}

func (r *MemoryRepo) Create(ctx context.Context, meta Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[meta.ID] = meta
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.scripts[id]
	if !ok {
		return Metadata{}, ErrNotFound
	}
	return meta, nil
}
