package reports

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo implements Repo in process memory. Used when no database
// is configured and in tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	reports map[string]CoverageReport
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{reports: make(map[string]CoverageReport)}
}

func (r *MemoryRepo) Create(ctx context.Context, report CoverageReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[report.ID] = report
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (CoverageReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.reports[id]
	if !ok {
		return CoverageReport{}, ErrNotFound
	}
	return report, nil
}

func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]CoverageReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]CoverageReport, 0, len(r.reports))
	for _, report := range r.reports {
		all = append(all, report)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return []CoverageReport{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reports[id]; !ok {
		return ErrNotFound
	}
	delete(r.reports, id)
	return nil
}

func (r *MemoryRepo) SaveResult(ctx context.Context, id string, result NormalizedCoverage, modelUsed string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	expires := now.Add(ReportRetention)
	report.Status = StatusCompleted
	report.Result = &result
	report.ModelUsed = modelUsed
	report.ErrorMessage = ""
	report.CompletedAt = &now
	report.ExpiresAt = &expires
	r.reports[id] = report
	return nil
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, id string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	report.Status = StatusFailed
	report.ErrorMessage = message
	report.CompletedAt = &now
	r.reports[id] = report
	return nil
}
