package jobs

import (
	"context"
	"time"
)

// Simulated progress bounds while the provider call is outstanding.
// Real progress resumes at 75 once the provider returns.
const (
	estimatorStart = 15
	estimatorEnd   = 60
	estimatorStep  = 5

	// After the end bound, a few touches keep updated_at moving so the
	// job does not look stalled during a long provider call.
	maxAliveTouches = 3
)

// simulateProgress walks the progress value from 15 to 60 on a fixed
// tick, then touches the row a bounded number of times. Exits as soon
// as the context is cancelled.
func (m *Manager) simulateProgress(ctx context.Context, jobID string) {
	ticker := time.NewTicker(m.progressTick())
	defer ticker.Stop()

	progress := estimatorStart
	touches := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if progress > estimatorEnd {
			if touches >= maxAliveTouches {
				return
			}
			touches++
			m.persist(func(ctx context.Context) error {
				return m.Repo.UpdateProgress(ctx, jobID, estimatorEnd)
			}, jobID, "progress touch")
			continue
		}

		value := progress
		m.persist(func(ctx context.Context) error {
			return m.Repo.UpdateProgress(ctx, jobID, value)
		}, jobID, "progress estimate")
		progress += estimatorStep
	}
}
