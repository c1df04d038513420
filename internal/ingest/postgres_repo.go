package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"libraryapi/internal/platform/postgres"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) CreateRun(ctx context.Context, run *Run) (string, error) {
	const sql = `
		INSERT INTO import_runs (status, requested, started_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var id string
	err := r.db.QueryRow(timeoutCtx, sql, run.Status, run.Requested, run.StartedAt).Scan(&id)
	return id, err
}

func (r *PostgresRepo) UpdateRun(ctx context.Context, run *Run) error {
	const sql = `
		UPDATE import_runs SET
			finished_at = $1,
			status = $2,
			imported = $3,
			skipped = $4,
			failed = $5,
			error = $6
		WHERE id = $7`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.db.Exec(timeoutCtx, sql, run.FinishedAt, run.Status, run.Imported, run.Skipped, run.Failed, run.Error, run.ID)
	return err
}

func (r *PostgresRepo) AddItem(ctx context.Context, runID string, item Item) error {
	const sql = `
		INSERT INTO import_run_items (run_id, isbn, outcome, book_id, error)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5)
		ON CONFLICT DO NOTHING`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.db.Exec(timeoutCtx, sql, runID, item.ISBN, item.Outcome, item.BookID, item.Error)
	return err
}

func (r *PostgresRepo) GetRun(ctx context.Context, id string) (Run, error) {
	const sql = `
		SELECT id, status, requested, imported, skipped, failed, error, started_at, finished_at
		FROM import_runs
		WHERE id = $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var run Run
	err := r.db.QueryRow(timeoutCtx, sql, id).Scan(
		&run.ID, &run.Status, &run.Requested, &run.Imported, &run.Skipped, &run.Failed,
		&run.Error, &run.StartedAt, &run.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) || postgres.IsInvalidID(err) {
		return Run{}, ErrNotFound
	}
	return run, err
}

func (r *PostgresRepo) ListItems(ctx context.Context, runID string) ([]Item, error) {
	const sql = `
		SELECT isbn, outcome, COALESCE(book_id::text, ''), error
		FROM import_run_items
		WHERE run_id = $1
		ORDER BY isbn`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, sql, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ISBN, &it.Outcome, &it.BookID, &it.Error); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
