package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Postgres driver registered for database/sql.
	_ "github.com/lib/pq"

	pkgerrors "github.com/brightpath/safescan/pkg/errors"
)

// PostgresRepository persists review records in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository opens the database and verifies connectivity.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Insert stores a new review record.
func (r *PostgresRepository) Insert(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO review_records
			(id, content_hash, file_name, user_id, status, reason, score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.ContentHash, rec.FileName, rec.UserID,
		rec.Status, rec.Reason, rec.Score, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review record: %w", err)
	}
	return nil
}

// Get loads a review record by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Record, error) {
	var (
		rec        Record
		resolvedBy sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, content_hash, file_name, user_id, status, reason, score, resolved_by, created_at, updated_at
		FROM review_records
		WHERE id = $1`, id,
	).Scan(
		&rec.ID, &rec.ContentHash, &rec.FileName, &rec.UserID,
		&rec.Status, &rec.Reason, &rec.Score, &resolvedBy,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get review record: %w", err)
	}
	rec.ResolvedBy = resolvedBy.String
	return &rec, nil
}

// ListByStatus pages through records in a given status, newest first.
func (r *PostgresRepository) ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*Record, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM review_records WHERE status = $1`, status,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count review records: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content_hash, file_name, user_id, status, reason, score, resolved_by, created_at, updated_at
		FROM review_records
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		status, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list review records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			rec        Record
			resolvedBy sql.NullString
		)
		if err := rows.Scan(
			&rec.ID, &rec.ContentHash, &rec.FileName, &rec.UserID,
			&rec.Status, &rec.Reason, &rec.Score, &resolvedBy,
			&rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review record: %w", err)
		}
		rec.ResolvedBy = resolvedBy.String
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review records: %w", err)
	}
	return records, total, nil
}

// UpdateStatus resolves a pending record.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, status, resolvedBy string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE review_records
		SET status = $2, resolved_by = $3, updated_at = NOW()
		WHERE id = $1`,
		id, status, resolvedBy,
	)
	if err != nil {
		return fmt.Errorf("update review record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review record: %w", err)
	}
	if affected == 0 {
		return pkgerrors.ErrReviewNotFound
	}
	return nil
}
