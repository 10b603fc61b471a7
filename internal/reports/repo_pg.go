package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const reportColumns = `
id, script_id, title, genre, comps, depth, status, result, model_used,
error_message, created_at, completed_at, expires_at`

func (r *PGRepo) Create(ctx context.Context, report CoverageReport) error {
	const query = `
INSERT INTO coverage_reports (id, script_id, title, genre, comps, depth, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	comps, err := marshalComps(report.Comps)
	if err != nil {
		return err
	}
	var scriptID any
	if report.ScriptID != "" {
		scriptID = report.ScriptID
	}
	createdAt := report.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = r.DB.ExecContext(ctx, query,
		report.ID,
		scriptID,
		report.Title,
		report.Genre,
		comps,
		report.Depth,
		report.Status,
		createdAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (CoverageReport, error) {
	const query = `
SELECT ` + reportColumns + `
FROM coverage_reports
WHERE id = $1
LIMIT 1`
	report, err := scanReport(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return CoverageReport{}, ErrNotFound
	}
	return report, err
}

func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]CoverageReport, error) {
	const query = `
SELECT ` + reportColumns + `
FROM coverage_reports
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []CoverageReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM coverage_reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) SaveResult(ctx context.Context, id string, result NormalizedCoverage, modelUsed string) error {
	const query = `
UPDATE coverage_reports
SET status = $2, result = $3, model_used = $4, error_message = '', completed_at = $5, expires_at = $6
WHERE id = $1`
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, query, id, StatusCompleted, payload, modelUsed, now, now.Add(ReportRetention))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PGRepo) MarkFailed(ctx context.Context, id string, message string) error {
	const query = `
UPDATE coverage_reports
SET status = $2, error_message = $3, completed_at = $4
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, StatusFailed, message, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (CoverageReport, error) {
	var report CoverageReport
	var scriptID sql.NullString
	var comps []byte
	var result []byte
	var modelUsed sql.NullString
	var errorMessage sql.NullString
	var completedAt sql.NullTime
	var expiresAt sql.NullTime

	err := row.Scan(
		&report.ID,
		&scriptID,
		&report.Title,
		&report.Genre,
		&comps,
		&report.Depth,
		&report.Status,
		&result,
		&modelUsed,
		&errorMessage,
		&report.CreatedAt,
		&completedAt,
		&expiresAt,
	)
	if err != nil {
		return CoverageReport{}, err
	}

	report.ScriptID = scriptID.String
	report.ModelUsed = modelUsed.String
	report.ErrorMessage = errorMessage.String
	if len(comps) > 0 {
		if err := json.Unmarshal(comps, &report.Comps); err != nil {
			return CoverageReport{}, err
		}
	}
	if len(result) > 0 {
		var normalized NormalizedCoverage
		if err := json.Unmarshal(result, &normalized); err != nil {
			return CoverageReport{}, err
		}
		report.Result = &normalized
	}
	if completedAt.Valid {
		t := completedAt.Time
		report.CompletedAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		report.ExpiresAt = &t
	}
	return report, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalComps(comps []string) ([]byte, error) {
	if comps == nil {
		comps = []string{}
	}
	return json.Marshal(comps)
}
