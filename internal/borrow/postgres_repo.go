package borrow

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

const recordSelect = `SELECT id, user_id, book_id, borrow_date, due_date, return_date, returned FROM borrow_records`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.UserID, &rec.BookID, &rec.BorrowDate, &rec.DueDate, &rec.ReturnDate, &rec.Returned)
	return rec, err
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// WithinTx runs fn in a read-committed transaction. Row locks taken by
// LockBook and LockRecord serialise concurrent borrows of one book.
func (r *PostgresRepo) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return err
	}
	// No-op after a successful commit; covers the error and panic paths.
	defer tx.Rollback(timeoutCtx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(timeoutCtx)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) UserExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if postgres.IsInvalidID(err) {
		return false, nil
	}
	return exists, err
}

func (t *pgTx) LockBook(ctx context.Context, bookID string) (bool, error) {
	var available bool
	err := t.tx.QueryRow(ctx, `SELECT available FROM books WHERE id = $1 FOR UPDATE`, bookID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) || postgres.IsInvalidID(err) {
		return false, ErrBookNotFound
	}
	return available, err
}

func (t *pgTx) SetBookAvailable(ctx context.Context, bookID string, available bool) error {
	tag, err := t.tx.Exec(ctx, `UPDATE books SET available = $1, updated_at = now() WHERE id = $2`, available, bookID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (t *pgTx) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	const query = `
		INSERT INTO borrow_records (user_id, book_id, borrow_date, due_date, returned)
		VALUES ($1, $2, $3, $4, false)
		RETURNING id`
	err := t.tx.QueryRow(ctx, query, rec.UserID, rec.BookID, rec.BorrowDate, rec.DueDate).Scan(&rec.ID)
	switch {
	case err == nil:
		return rec, nil
	case postgres.IsUniqueViolation(err):
		return Record{}, ErrBookUnavailable
	case postgres.IsForeignKeyViolation(err) && postgres.ConstraintName(err) == "borrow_records_user_id_fkey":
		return Record{}, ErrUserNotFound
	case postgres.IsForeignKeyViolation(err):
		return Record{}, ErrBookNotFound
	default:
		return Record{}, err
	}
}

func (t *pgTx) LockRecord(ctx context.Context, id string) (Record, error) {
	rec, err := scanRecord(t.tx.QueryRow(ctx, recordSelect+` WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) || postgres.IsInvalidID(err) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

// UpdateRecord persists the return transition. The WHERE clause refuses to
// reopen or re-close a record.
func (t *pgTx) UpdateRecord(ctx context.Context, rec Record) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE borrow_records SET returned = $1, return_date = $2 WHERE id = $3 AND NOT returned`,
		rec.Returned, rec.ReturnDate, rec.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyReturned
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Record, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rec, err := scanRecord(r.db.QueryRow(timeoutCtx, recordSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) || postgres.IsInvalidID(err) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Record, error) {
	query, args, err := buildListSQL(q)
	if err != nil {
		return nil, err
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		if postgres.IsInvalidID(err) {
			return []Record{}, nil
		}
		return nil, err
	}
	return collectRecords(rows)
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, returned *bool) ([]Record, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx,
		recordSelect+` WHERE user_id = $1 AND ($2::boolean IS NULL OR returned = $2) ORDER BY borrow_date DESC, id DESC`,
		userID, returned)
	if err != nil {
		if postgres.IsInvalidID(err) {
			return []Record{}, nil
		}
		return nil, err
	}
	return collectRecords(rows)
}

func (r *PostgresRepo) Overdue(ctx context.Context, today time.Time) ([]Record, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx,
		recordSelect+` WHERE NOT returned AND due_date < $1 ORDER BY due_date, id`, today)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

func (r *PostgresRepo) Stats(ctx context.Context, today time.Time) (Stats, error) {
	const query = `
		SELECT
			(SELECT count(*) FROM books),
			(SELECT count(*) FROM books WHERE available),
			(SELECT count(*) FROM books WHERE NOT available),
			(SELECT count(*) FROM users WHERE role = 'USER'),
			(SELECT count(*) FROM borrow_records WHERE NOT returned AND due_date < $1)`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	var s Stats
	err := r.db.QueryRow(timeoutCtx, query, today).Scan(
		&s.TotalBooks, &s.AvailableBooks, &s.BorrowedBooks, &s.TotalMembers, &s.OverdueBooks)
	return s, err
}
