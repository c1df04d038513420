package borrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service runs the borrow and return workflow.
type Service struct {
	repo    Repository
	metrics Metrics
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now; tests use it to pin "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, metrics Metrics, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, metrics: metrics, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the service clock, exposed so handlers derive overdue from the same date.
func (s *Service) Now() time.Time {
	return s.now()
}

// Borrow lends bookID to userID. It fails with ErrUserNotFound,
// ErrBookNotFound or ErrBookUnavailable and then changes nothing.
func (s *Service) Borrow(ctx context.Context, userID, bookID string) (Record, error) {
	var rec Record
	err := s.repo.WithinTx(ctx, func(tx Tx) error {
		ok, err := tx.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUserNotFound
		}

		available, err := tx.LockBook(ctx, bookID)
		if err != nil {
			return err
		}
		if !available {
			return ErrBookUnavailable
		}

		if err := tx.SetBookAvailable(ctx, bookID, false); err != nil {
			return err
		}
		rec, err = tx.InsertRecord(ctx, NewRecord(userID, bookID, s.now()))
		return err
	})
	if err != nil {
		return Record{}, s.fail("borrow", err, "user_id", userID, "book_id", bookID)
	}

	s.metrics.RecordBorrowed()
	s.logger.Info("book borrowed",
		"borrow_id", rec.ID, "user_id", userID, "book_id", bookID,
		"due_date", rec.DueDate.Format(time.DateOnly))
	return rec, nil
}

// Return closes the loan borrowID and makes its book available again. It
// fails with ErrRecordNotFound or ErrAlreadyReturned and then changes nothing.
func (s *Service) Return(ctx context.Context, borrowID string) (Record, error) {
	var rec Record
	err := s.repo.WithinTx(ctx, func(tx Tx) error {
		current, err := tx.LockRecord(ctx, borrowID)
		if err != nil {
			return err
		}
		next, err := current.Return(s.now())
		if err != nil {
			return err
		}
		if err := tx.UpdateRecord(ctx, next); err != nil {
			return err
		}
		if err := tx.SetBookAvailable(ctx, next.BookID, true); err != nil {
			return err
		}
		rec = next
		return nil
	})
	if err != nil {
		return Record{}, s.fail("return", err, "borrow_id", borrowID)
	}

	s.metrics.RecordReturned()
	s.logger.Info("book returned",
		"borrow_id", rec.ID, "user_id", rec.UserID, "book_id", rec.BookID,
		"late", rec.ReturnDate.After(rec.DueDate))
	return rec, nil
}

// fail records a rejected precondition or logs an unexpected store error.
func (s *Service) fail(op string, err error, attrs ...any) error {
	if reason := rejectReason(err); reason != "" {
		s.metrics.RecordRejected(op, reason)
		s.logger.Info(op+" rejected", append(attrs, "reason", reason)...)
		return err
	}
	s.logger.Error(op+" failed", append(attrs, "error", err)...)
	return fmt.Errorf("%s: %w", op, err)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrBookNotFound):
		return "book_not_found"
	case errors.Is(err, ErrRecordNotFound):
		return "record_not_found"
	case errors.Is(err, ErrBookUnavailable):
		return "book_unavailable"
	case errors.Is(err, ErrAlreadyReturned):
		return "already_returned"
	}
	return ""
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.repo.Get(ctx, id)
}

// List returns one page of records and the cursor of the next page, empty
// on the last page.
func (s *Service) List(ctx context.Context, userID string, status Status, cursor string, limit int) ([]Record, string, error) {
	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	records, err := s.repo.List(ctx, Query{
		UserID: userID,
		Status: status,
		After:  after,
		Limit:  limit + 1,
		Today:  DateOf(s.now()),
	})
	if err != nil {
		return nil, "", err
	}

	var next string
	if len(records) > limit {
		records = records[:limit]
		next = CursorOf(records[limit-1]).Encode()
	}
	return records, next, nil
}

// ListByUser returns a member's records, optionally only the returned or
// only the active ones.
func (s *Service) ListByUser(ctx context.Context, userID string, returned *bool) ([]Record, error) {
	return s.repo.ListByUser(ctx, userID, returned)
}

// Overdue returns active records whose due date has passed.
func (s *Service) Overdue(ctx context.Context) ([]Record, error) {
	return s.repo.Overdue(ctx, DateOf(s.now()))
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx, DateOf(s.now()))
}
