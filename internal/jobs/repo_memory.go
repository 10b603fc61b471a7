package jobs

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo implements Repo in process memory. Used when no database
// is configured and in tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{jobs: make(map[string]Job)}
}

func (r *MemoryRepo) Create(ctx context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

func (r *MemoryRepo) MarkProcessing(ctx context.Context, id string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil
	}
	now := time.Now().UTC()
	job.Status = StatusProcessing
	if job.StartedAt == nil {
		job.StartedAt = &now
	}
	job.Progress = raiseProgress(job.Progress, progress)
	job.UpdatedAt = now
	r.jobs[id] = job
	return nil
}

func (r *MemoryRepo) UpdateProgress(ctx context.Context, id string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil
	}
	job.Progress = raiseProgress(job.Progress, progress)
	job.UpdatedAt = time.Now().UTC()
	r.jobs[id] = job
	return nil
}

func (r *MemoryRepo) MarkCompleted(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil
	}
	now := time.Now().UTC()
	job.Status = StatusCompleted
	job.Progress = 100
	job.ErrorMessage = ""
	job.CompletedAt = &now
	job.UpdatedAt = now
	r.jobs[id] = job
	return nil
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, id string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil
	}
	now := time.Now().UTC()
	job.Status = StatusFailed
	job.ErrorMessage = message
	job.CompletedAt = &now
	job.UpdatedAt = now
	r.jobs[id] = job
	return nil
}

// raiseProgress applies the monotonic clamp.
func raiseProgress(current, next int) int {
	if next > 100 {
		next = 100
	}
	if next < current {
		return current
	}
	return next
}
