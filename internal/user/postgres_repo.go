package user

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

const userColumns = `id, email, username, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *PostgresRepo) Create(ctx context.Context, u *User) error {
	const query = `
	INSERT INTO users (id, email, username, password_hash, role)
	VALUES (gen_random_uuid(), $1, $2, $3, COALESCE(NULLIF($4, ''), 'USER'))
	RETURNING id, role, created_at, updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, u.Email, u.Username, u.PasswordHash, u.Role).
		Scan(&u.ID, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

// Delete removes the account. Sessions go with it; borrow history blocks it.
func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM users WHERE id = $1`, id)
	switch {
	case postgres.IsForeignKeyViolation(err):
		return ErrInUse
	case postgres.IsInvalidID(err):
		return ErrNotFound
	case err != nil:
		return err
	case tag.RowsAffected() == 0:
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	u, err := scanUser(r.db.QueryRow(timeoutCtx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	u, err := scanUser(r.db.QueryRow(timeoutCtx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || postgres.IsInvalidID(err) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *PostgresRepo) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(timeoutCtx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(timeoutCtx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}
