package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"coverage-backend/internal/analysis"
	"coverage-backend/internal/llm"
	"coverage-backend/internal/reports"
	"coverage-backend/internal/shared/metrics"
	"coverage-backend/internal/shared/telemetry"
	"coverage-backend/internal/shared/util"
)

const (
	// DefaultDeadline bounds one whole analysis run.
	DefaultDeadline = 5 * time.Minute
	// DefaultStaleAfter is the maximum queue age before a job is
	// abandoned without calling a provider.
	DefaultStaleAfter = 10 * time.Minute
	// DefaultProgressTick paces the simulated progress estimator.
	DefaultProgressTick = 2 * time.Second

	staleMessage   = "analysis job exceeded maximum age"
	timeoutMessage = "analysis timed out"
	cancelMessage  = "analysis cancelled"

	persistTimeout = 10 * time.Second
)

// Manager owns the lifecycle of analysis jobs: creation, the
// background run, progress reporting, and cooperative cancellation.
type Manager struct {
	Repo     Repo
	Reports  reports.Repo
	Pipeline *analysis.Pipeline

	Deadline     time.Duration
	StaleAfter   time.Duration
	ProgressTick time.Duration

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewManager wires a Manager with default timing parameters.
func NewManager(repo Repo, reportsRepo reports.Repo, pipeline *analysis.Pipeline) *Manager {
	return &Manager{
		Repo:         repo,
		Reports:      reportsRepo,
		Pipeline:     pipeline,
		Deadline:     DefaultDeadline,
		StaleAfter:   DefaultStaleAfter,
		ProgressTick: DefaultProgressTick,
		running:      make(map[string]context.CancelFunc),
	}
}

// GenerateParams describes a coverage generation request. ScriptText
// stays in memory for the duration of the run and is never persisted.
type GenerateParams struct {
	ScriptID   string
	ScriptText string
	Title      string
	Genre      string
	Comps      []string
	Depth      string
}

// Generate creates the report and job records and starts the
// background analysis. It returns immediately with the queued job.
func (m *Manager) Generate(ctx context.Context, params GenerateParams) (Job, error) {
	depth := llm.NormalizeDepth(params.Depth)
	now := time.Now().UTC()

	report := reports.CoverageReport{
		ID:        uuid.NewString(),
		ScriptID:  params.ScriptID,
		Title:     params.Title,
		Genre:     params.Genre,
		Comps:     params.Comps,
		Depth:     string(depth),
		Status:    reports.StatusProcessing,
		CreatedAt: now,
	}
	if err := m.Reports.Create(ctx, report); err != nil {
		return Job{}, err
	}

	job := Job{
		ID:             uuid.NewString(),
		ReportID:       report.ID,
		ScriptID:       params.ScriptID,
		Status:         StatusQueued,
		Progress:       0,
		ScriptTextHash: util.HashText(params.ScriptText),
		Genre:          params.Genre,
		Comps:          params.Comps,
		Depth:          string(depth),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.Repo.Create(ctx, job); err != nil {
		return Job{}, err
	}

	m.StartBackground(job, params.ScriptText)
	return job, nil
}

// StartBackground registers a cancel handle and launches the analysis
// goroutine for an already persisted job.
func (m *Manager) StartBackground(job Job, scriptText string) {
	runCtx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.running[job.ID] = cancel
	m.mu.Unlock()

	go m.runJob(runCtx, job, scriptText)
}

// Cancel delivers a cancellation signal to a running job. The return
// value reports signal delivery, not the job's final outcome.
func (m *Manager) Cancel(jobID string) bool {
	m.mu.Lock()
	cancel, ok := m.running[jobID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (m *Manager) unregister(jobID string) {
	m.mu.Lock()
	if cancel, ok := m.running[jobID]; ok {
		cancel()
		delete(m.running, jobID)
	}
	m.mu.Unlock()
}

func (m *Manager) runJob(ctx context.Context, job Job, scriptText string) {
	defer m.unregister(job.ID)
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("job.panic", map[string]any{
				"job_id": job.ID,
				"error":  rec,
			})
			m.failJob(job.ID, job.ReportID, "internal error during analysis")
		}
	}()

	loadCtx, loadCancel := context.WithTimeout(context.Background(), persistTimeout)
	current, err := m.Repo.GetByID(loadCtx, job.ID)
	loadCancel()
	if errors.Is(err, ErrNotFound) {
		// Deleted between enqueue and pickup. Nothing to update.
		return
	}
	if err != nil {
		telemetry.Error("job.load", map[string]any{"job_id": job.ID, "error": err.Error()})
		return
	}
	if current.Status.IsTerminal() {
		return
	}
	if m.staleAfter() > 0 && time.Since(current.CreatedAt) > m.staleAfter() {
		telemetry.Info("job.stale", map[string]any{
			"job_id":  job.ID,
			"age_sec": time.Since(current.CreatedAt).Seconds(),
		})
		m.failJob(job.ID, job.ReportID, staleMessage)
		return
	}

	metrics.IncJobStarted()
	m.persist(func(ctx context.Context) error {
		return m.Repo.MarkProcessing(ctx, job.ID, 5)
	}, job.ID, "mark processing")

	runCtx, cancel := context.WithTimeout(ctx, m.deadline())
	defer cancel()

	m.persist(func(ctx context.Context) error {
		return m.Repo.UpdateProgress(ctx, job.ID, 10)
	}, job.ID, "progress 10")

	estCtx, stopEstimator := context.WithCancel(runCtx)
	go m.simulateProgress(estCtx, job.ID)

	started := time.Now()
	runErr := m.Pipeline.Run(runCtx, job.ReportID, analysis.Request{
		ScriptText: scriptText,
		Genre:      job.Genre,
		Comps:      job.Comps,
		Depth:      llm.NormalizeDepth(job.Depth),
	})
	stopEstimator()
	metrics.ObserveAnalysisDurationMs(float64(time.Since(started).Milliseconds()))

	if runErr != nil {
		m.failJob(job.ID, job.ReportID, failureMessage(runCtx, runErr))
		return
	}

	m.persist(func(ctx context.Context) error {
		return m.Repo.UpdateProgress(ctx, job.ID, 75)
	}, job.ID, "progress 75")
	m.persist(func(ctx context.Context) error {
		return m.Repo.UpdateProgress(ctx, job.ID, 90)
	}, job.ID, "progress 90")
	m.persist(func(ctx context.Context) error {
		return m.Repo.MarkCompleted(ctx, job.ID)
	}, job.ID, "mark completed")
	metrics.IncJobCompleted()

	telemetry.Info("job.completed", map[string]any{
		"job_id":      job.ID,
		"report_id":   job.ReportID,
		"duration_ms": time.Since(started).Milliseconds(),
	})
}

// failJob finalizes both the job and its report. Runs on a fresh
// context because the job context is usually already dead here.
func (m *Manager) failJob(jobID, reportID, message string) {
	m.persist(func(ctx context.Context) error {
		return m.Repo.MarkFailed(ctx, jobID, message)
	}, jobID, "mark failed")

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	m.Pipeline.MarkFailed(ctx, reportID, message)

	metrics.IncJobFailed()
	telemetry.Info("job.failed", map[string]any{
		"job_id":    jobID,
		"report_id": reportID,
		"message":   message,
	})
}

// failureMessage maps a run error to the stored failure message.
// Only the run context decides timeout and cancel wording: a provider
// call can time out on its own per-call deadline while the job is
// still inside its budget, and that stays a provider error. Provider
// text is sanitized and bounded before persistence.
func failureMessage(runCtx context.Context, err error) string {
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return timeoutMessage
	case errors.Is(runCtx.Err(), context.Canceled):
		return cancelMessage
	default:
		return util.SanitizeErrorMessage(err.Error())
	}
}

// persist runs a repo write on a fresh bounded context so final state
// lands even after the job context is cancelled or timed out.
func (m *Manager) persist(fn func(ctx context.Context) error, jobID, label string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := fn(ctx); err != nil && !errors.Is(err, ErrNotFound) {
		telemetry.Error("job.persist", map[string]any{
			"job_id": jobID,
			"step":   label,
			"error":  err.Error(),
		})
	}
}

func (m *Manager) deadline() time.Duration {
	if m.Deadline > 0 {
		return m.Deadline
	}
	return DefaultDeadline
}

func (m *Manager) staleAfter() time.Duration {
	if m.StaleAfter > 0 {
		return m.StaleAfter
	}
	return DefaultStaleAfter
}

func (m *Manager) progressTick() time.Duration {
	if m.ProgressTick > 0 {
		return m.ProgressTick
	}
	return DefaultProgressTick
}
