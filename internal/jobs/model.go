package jobs

import "time"

// JobStatus is the lifecycle state of an analysis job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks one asynchronous coverage analysis. The script text itself
// is never stored; only its SHA-256 hash is kept for correlation.
type Job struct {
	ID             string     `json:"id"`
	ReportID       string     `json:"reportId"`
	ScriptID       string     `json:"scriptId,omitempty"`
	Status         JobStatus  `json:"status"`
	Progress       int        `json:"progress"`
	ScriptTextHash string     `json:"scriptTextHash"`
	Genre          string     `json:"genre,omitempty"`
	Comps          []string   `json:"comps,omitempty"`
	Depth          string     `json:"depth"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}
