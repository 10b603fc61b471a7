package scripts

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, meta Metadata) error {
	const query = `
INSERT INTO script_metadata (id, file_name, content_type, format, size_bytes, page_count, char_count, title, text_hash, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	createdAt := meta.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx, query,
		meta.ID,
		meta.FileName,
		meta.ContentType,
		meta.Format,
		meta.SizeBytes,
		meta.PageCount,
		meta.CharCount,
		meta.Title,
		meta.TextHash,
		createdAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Metadata, error) {
	const query = `
SELECT id, file_name, content_type, format, size_bytes, page_count, char_count, title, text_hash, created_at
FROM script_metadata
WHERE id = $1
LIMIT 1`
	var meta Metadata
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&meta.ID,
		&meta.FileName,
		&meta.ContentType,
		&meta.Format,
		&meta.SizeBytes,
		&meta.PageCount,
		&meta.CharCount,
		&meta.Title,
		&meta.TextHash,
		&meta.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Metadata{}, ErrNotFound
	}
	return meta, err
}
