package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres. Every mutation runs as its own
// read-modify-write transaction with a row lock, so the runner
// goroutine and the heartbeat goroutine never interleave writes.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `
id, report_id, script_id, status, progress, script_text_hash, genre, comps,
depth, error_message, created_at, updated_at, started_at, completed_at`

func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO analysis_jobs (id, report_id, script_id, status, progress, script_text_hash, genre, comps, depth, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	comps, err := marshalComps(job.Comps)
	if err != nil {
		return err
	}
	var scriptID any
	if job.ScriptID != "" {
		scriptID = job.ScriptID
	}
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = r.DB.ExecContext(ctx, query,
		job.ID,
		job.ReportID,
		scriptID,
		job.Status,
		job.Progress,
		job.ScriptTextHash,
		job.Genre,
		comps,
		job.Depth,
		createdAt,
		createdAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Job, error) {
	const query = `
SELECT ` + jobColumns + `
FROM analysis_jobs
WHERE id = $1
LIMIT 1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return job, err
}

func (r *PGRepo) MarkProcessing(ctx context.Context, id string, progress int) error {
	return r.mutate(ctx, id, func(job *Job, now time.Time) {
		job.Status = StatusProcessing
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
		job.Progress = raiseProgress(job.Progress, progress)
	})
}

func (r *PGRepo) UpdateProgress(ctx context.Context, id string, progress int) error {
	return r.mutate(ctx, id, func(job *Job, now time.Time) {
		job.Progress = raiseProgress(job.Progress, progress)
	})
}

func (r *PGRepo) MarkCompleted(ctx context.Context, id string) error {
	return r.mutate(ctx, id, func(job *Job, now time.Time) {
		job.Status = StatusCompleted
		job.Progress = 100
		job.ErrorMessage = ""
		job.CompletedAt = &now
	})
}

func (r *PGRepo) MarkFailed(ctx context.Context, id string, message string) error {
	return r.mutate(ctx, id, func(job *Job, now time.Time) {
		job.Status = StatusFailed
		job.ErrorMessage = message
		job.CompletedAt = &now
	})
}

// mutate loads the row under FOR UPDATE, applies fn, and writes the
// result back. Terminal jobs are committed unchanged.
func (r *PGRepo) mutate(ctx context.Context, id string, fn func(job *Job, now time.Time)) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
SELECT ` + jobColumns + `
FROM analysis_jobs
WHERE id = $1
FOR UPDATE`
	job, err := scanJob(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return tx.Commit()
	}

	now := time.Now().UTC()
	fn(&job, now)
	job.UpdatedAt = now

	const update = `
UPDATE analysis_jobs
SET status = $2, progress = $3, error_message = $4, updated_at = $5, started_at = $6, completed_at = $7
WHERE id = $1`
	var startedAt, completedAt any
	if job.StartedAt != nil {
		startedAt = *job.StartedAt
	}
	if job.CompletedAt != nil {
		completedAt = *job.CompletedAt
	}
	if _, err := tx.ExecContext(ctx, update, job.ID, job.Status, job.Progress, job.ErrorMessage, job.UpdatedAt, startedAt, completedAt); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var scriptID sql.NullString
	var comps []byte
	var errorMessage sql.NullString
	var startedAt sql.NullTime
	var completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.ReportID,
		&scriptID,
		&job.Status,
		&job.Progress,
		&job.ScriptTextHash,
		&job.Genre,
		&comps,
		&job.Depth,
		&errorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return Job{}, err
	}

	job.ScriptID = scriptID.String
	job.ErrorMessage = errorMessage.String
	if len(comps) > 0 {
		if err := json.Unmarshal(comps, &job.Comps); err != nil {
			return Job{}, err
		}
	}
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return job, nil
}

func marshalComps(comps []string) ([]byte, error) {
	if comps == nil {
		comps = []string{}
	}
	return json.Marshal(comps)
}
