package borrow

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=borrow

import (
	"context"
	"time"
)

// Repository is the borrow store. Mutations happen only through WithinTx.
type Repository interface {
	// WithinTx runs fn in one transaction, committing when fn returns nil and
	// rolling back on error or panic.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, q Query) ([]Record, error)
	ListByUser(ctx context.Context, userID string, returned *bool) ([]Record, error)
	Overdue(ctx context.Context, today time.Time) ([]Record, error)
	Stats(ctx context.Context, today time.Time) (Stats, error)
}

// Tx is the transactional view used by borrow and return. Lock methods hold
// the row until the transaction ends.
type Tx interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	// LockBook returns the book's availability or ErrBookNotFound.
	LockBook(ctx context.Context, bookID string) (bool, error)
	SetBookAvailable(ctx context.Context, bookID string, available bool) error
	// InsertRecord stores r and returns it with its generated ID. A second
	// active record for the same book fails with ErrBookUnavailable.
	InsertRecord(ctx context.Context, r Record) (Record, error)
	// LockRecord returns the record or ErrRecordNotFound.
	LockRecord(ctx context.Context, id string) (Record, error)
	UpdateRecord(ctx context.Context, r Record) error
}

// Metrics receives workflow outcomes.
type Metrics interface {
	RecordBorrowed()
	RecordReturned()
	RecordRejected(operation, reason string)
}
