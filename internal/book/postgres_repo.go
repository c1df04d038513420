package book

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

const selectColumns = `id, isbn, title, author, genre, publisher, description,
	publication_year, cover_url, available, created_at, updated_at`

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Genre, &b.Publisher, &b.Description,
		&b.PublicationYear, &b.CoverURL, &b.Available, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, int, error) {
	countSQL, countArgs, dataSQL, dataArgs, err := buildListSQL(q)
	if err != nil {
		return nil, 0, err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(timeoutCtx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(timeoutCtx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Book, error) {
	const query = `SELECT ` + selectColumns + ` FROM books WHERE id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || postgres.IsInvalidID(err) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) GetByISBN(ctx context.Context, isbn string) (Book, error) {
	const query = `SELECT ` + selectColumns + ` FROM books WHERE isbn = $1 LIMIT 1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, isbn))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

// Create inserts b. New books are always available.
func (r *PostgresRepo) Create(ctx context.Context, b *Book) error {
	const query = `
		INSERT INTO books (isbn, title, author, genre, publisher, description, publication_year, cover_url, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
		RETURNING id, available, created_at, updated_at`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query,
		b.ISBN, b.Title, b.Author, b.Genre, b.Publisher, b.Description, b.PublicationYear, b.CoverURL,
	).Scan(&b.ID, &b.Available, &b.CreatedAt, &b.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

// Update rewrites the descriptive columns. available is deliberately absent
// from the SET list; it is read back so the caller sees the stored value.
func (r *PostgresRepo) Update(ctx context.Context, b *Book) error {
	const query = `
		UPDATE books
		SET isbn = $1, title = $2, author = $3, genre = $4, publisher = $5,
		    description = $6, publication_year = $7, cover_url = $8, updated_at = now()
		WHERE id = $9
		RETURNING available, created_at, updated_at`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query,
		b.ISBN, b.Title, b.Author, b.Genre, b.Publisher, b.Description, b.PublicationYear, b.CoverURL, b.ID,
	).Scan(&b.Available, &b.CreatedAt, &b.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows), postgres.IsInvalidID(err):
		return ErrNotFound
	case postgres.IsUniqueViolation(err):
		return ErrAlreadyExists
	default:
		return err
	}
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM books WHERE id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, id)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		if postgres.IsInvalidID(err) {
			return ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
