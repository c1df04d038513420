package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"libraryapi/internal/platform/postgres"
)

// store is the pool plus per-statement deadline both repositories share.
type store struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

type buildFunc func() (string, []any, error)

func (s store) exec(ctx context.Context, build buildFunc) (pgconn.CommandTag, error) {
	query, args, err := build()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.Exec(ctx, query, args...)
}

func (s store) purge(ctx context.Context, build buildFunc) (int64, error) {
	tag, err := s.exec(ctx, build)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type PostgresRepo struct {
	store
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{store{db: db, timeout: timeout}}
}

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.UserAgent, &s.IPAddress,
		&s.RememberMe, &s.ExpiresAt, &s.CreatedAt, &s.LastUsedAt)
	return s, err
}

func (r *PostgresRepo) Create(ctx context.Context, s *Session) error {
	query, args, err := insertSessionSQL(s)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err = r.db.QueryRow(ctx, query, args...).Scan(&s.ID, &s.CreatedAt, &s.LastUsedAt)
	if postgres.IsForeignKeyViolation(err) || postgres.IsInvalidID(err) {
		return ErrUnknownUser
	}
	return err
}

func (r *PostgresRepo) Consume(ctx context.Context, tokenHash string) (Session, error) {
	query, args, err := consumeSQL(tokenHash)
	if err != nil {
		return Session{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	s, err := scanSession(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return s, err
}

func (r *PostgresRepo) ListActive(ctx context.Context, userID string) ([]Session, error) {
	query, args, err := listActiveSQL(userID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		if postgres.IsInvalidID(err) {
			return []Session{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) DeleteForUser(ctx context.Context, userID, sessionID string) error {
	tag, err := r.exec(ctx, func() (string, []any, error) { return deleteForUserSQL(userID, sessionID) })
	if postgres.IsInvalidID(err) || (err == nil && tag.RowsAffected() == 0) {
		return ErrNotFound
	}
	return err
}

func (r *PostgresRepo) PurgeExpired(ctx context.Context) (int64, error) {
	return r.purge(ctx, func() (string, []any, error) { return purgeSQL(sessions) })
}

type BlacklistPostgresRepo struct {
	store
}

func NewBlacklistPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *BlacklistPostgresRepo {
	return &BlacklistPostgresRepo{store{db: db, timeout: timeout}}
}

// Revoke is idempotent: revoking the same jti twice keeps the first entry.
func (r *BlacklistPostgresRepo) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	_, err := r.exec(ctx, func() (string, []any, error) { return revokeSQL(jti, userID, expiresAt) })
	return err
}

func (r *BlacklistPostgresRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	query, args, err := isRevokedSQL(jti)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *BlacklistPostgresRepo) PurgeExpired(ctx context.Context) (int64, error) {
	return r.purge(ctx, func() (string, []any, error) { return purgeSQL(blacklist) })
}
