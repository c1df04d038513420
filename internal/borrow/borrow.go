// Package borrow implements lending books to members and taking them back.
//
// A Record moves from active to returned exactly once. Every state change is
// a value transition applied inside one store transaction together with the
// book's availability flag, so a book is available iff no active record
// references it.
package borrow

import (
	"errors"
	"fmt"
	"time"
)

// LoanDays is the loan period; the due date is fixed when the record is created.
const LoanDays = 14

var (
	// ErrNotFound tags every "referenced entity does not exist" failure.
	ErrNotFound = errors.New("not found")
	// ErrConflict tags every "entity is in the wrong state" failure.
	ErrConflict = errors.New("conflict")

	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrBookNotFound    = fmt.Errorf("book %w", ErrNotFound)
	ErrRecordNotFound  = fmt.Errorf("borrow record %w", ErrNotFound)
	ErrBookUnavailable = fmt.Errorf("book is already on loan: %w", ErrConflict)
	ErrAlreadyReturned = fmt.Errorf("borrow record already returned: %w", ErrConflict)
)

type Status string

const (
	StatusBorrowed Status = "borrowed"
	StatusReturned Status = "returned"
	StatusOverdue  Status = "overdue"

	// StatusActive is a list filter only: every record not yet returned,
	// overdue or not.
	StatusActive Status = "active"
)

// ParseStatus validates a list filter value.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "":
		return "", true
	case string(StatusActive):
		return StatusActive, true
	case string(StatusBorrowed):
		return StatusBorrowed, true
	case string(StatusReturned):
		return StatusReturned, true
	case string(StatusOverdue):
		return StatusOverdue, true
	}
	return "", false
}

// Record is one loan of one book to one user. Dates are UTC calendar dates
// (midnight UTC).
type Record struct {
	ID         string
	UserID     string
	BookID     string
	BorrowDate time.Time
	DueDate    time.Time
	ReturnDate *time.Time
	Returned   bool
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewRecord builds the active record for a loan starting on today's date.
func NewRecord(userID, bookID string, now time.Time) Record {
	borrowed := DateOf(now)
	return Record{
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: borrowed,
		DueDate:    borrowed.AddDate(0, 0, LoanDays),
	}
}

// Return yields the returned state of r. The receiver is left untouched.
func (r Record) Return(now time.Time) (Record, error) {
	if r.Returned {
		return r, ErrAlreadyReturned
	}
	returned := DateOf(now)
	r.Returned = true
	r.ReturnDate = &returned
	return r, nil
}

// IsOverdue reports whether an active loan is past its due date.
func (r Record) IsOverdue(now time.Time) bool {
	return !r.Returned && DateOf(now).After(r.DueDate)
}

func (r Record) Status(now time.Time) Status {
	switch {
	case r.Returned:
		return StatusReturned
	case r.IsOverdue(now):
		return StatusOverdue
	default:
		return StatusBorrowed
	}
}

// Stats summarises the inventory and loans for the dashboard.
type Stats struct {
	TotalBooks     int `json:"total_books"`
	AvailableBooks int `json:"available_books"`
	BorrowedBooks  int `json:"borrowed_books"`
	TotalMembers   int `json:"total_members"`
	OverdueBooks   int `json:"overdue_books"`
}

// Query filters and pages the record list. Results are ordered newest first
// by (borrow_date, id).
type Query struct {
	UserID string
	Status Status
	After  *Cursor
	Limit  int
	// Today is the date overdue is evaluated against.
	Today time.Time
}
