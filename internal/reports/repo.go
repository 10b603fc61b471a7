package reports

import (
	"context"
	"errors"
)

// ErrNotFound indicates the report does not exist or was deleted.
var ErrNotFound = errors.New("report not found")

// Repo persists coverage reports.
type Repo interface {
	Create(ctx context.Context, report CoverageReport) error
	GetByID(ctx context.Context, id string) (CoverageReport, error)
	List(ctx context.Context, limit, offset int) ([]CoverageReport, error)
	Delete(ctx context.Context, id string) error

	// SaveResult stores a normalized result and marks the report completed.
	SaveResult(ctx context.Context, id string, result NormalizedCoverage, modelUsed string) error
	// MarkFailed records a failure message and marks the report failed.
	MarkFailed(ctx context.Context, id string, message string) error
}
