package jobs

import (
	"context"
	"testing"
	"time"
)

func TestSimulateProgressWalksToEndBound(t *testing.T) {
	repo := NewMemoryRepo()
	job := Job{ID: "job-1", Status: StatusProcessing, Progress: 10}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	m := NewManager(repo, nil, nil)
	m.ProgressTick = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.simulateProgress(ctx, job.ID)
		close(done)
	}()

	// The estimator self-terminates after the end bound plus its
	// bounded alive touches.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("estimator did not terminate")
	}

	current, _ := repo.GetByID(context.Background(), job.ID)
	if current.Progress != estimatorEnd {
		t.Fatalf("progress = %d, want %d", current.Progress, estimatorEnd)
	}
}

func TestSimulateProgressStopsOnCancel(t *testing.T) {
	repo := NewMemoryRepo()
	job := Job{ID: "job-1", Status: StatusProcessing, Progress: 10}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	m := NewManager(repo, nil, nil)
	m.ProgressTick = time.Hour // never ticks

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.simulateProgress(ctx, job.ID)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("estimator ignored cancellation")
	}

	current, _ := repo.GetByID(context.Background(), job.ID)
	if current.Progress != 10 {
		t.Fatalf("progress = %d, want untouched 10", current.Progress)
	}
}

func TestSimulateProgressRespectsTerminalState(t *testing.T) {
	repo := NewMemoryRepo()
	job := Job{ID: "job-1", Status: StatusCompleted, Progress: 100}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	m := NewManager(repo, nil, nil)
	m.ProgressTick = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	m.simulateProgress(ctx, job.ID)

	current, _ := repo.GetByID(context.Background(), job.ID)
	if current.Progress != 100 || current.Status != StatusCompleted {
		t.Fatalf("terminal job mutated: %+v", current)
	}
}
