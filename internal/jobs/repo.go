package jobs

import (
	"context"
	"errors"
)

// ErrNotFound indicates the job does not exist.
var ErrNotFound = errors.New("job not found")

// Repo persists analysis jobs. Implementations enforce two invariants
// on every write: progress never decreases and stays within [0, 100],
// and a job in a terminal state is never mutated again.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, id string) (Job, error)

	// MarkProcessing moves a queued job to processing and records its
	// start time. Terminal jobs are left untouched.
	MarkProcessing(ctx context.Context, id string, progress int) error

	// UpdateProgress raises the progress value. Lower values and writes
	// to terminal jobs are silently dropped.
	UpdateProgress(ctx context.Context, id string, progress int) error

	// MarkCompleted finalizes a job at 100 percent.
	MarkCompleted(ctx context.Context, id string) error

	// MarkFailed finalizes a job with a failure message. A job already
	// in a terminal state keeps its original outcome.
	MarkFailed(ctx context.Context, id string, message string) error
}
