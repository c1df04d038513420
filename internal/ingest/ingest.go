// Package ingest stocks the inventory in bulk: a run imports a list of ISBNs
// from Open Library and records the outcome of each one.
package ingest

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("import run not found")
	ErrNoISBNs  = errors.New("no isbns to import")
)

const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

const (
	OutcomeImported = "imported"
	OutcomeSkipped  = "skipped" // already in the inventory
	OutcomeFailed   = "failed"
)

type Run struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Requested  int        `json:"requested"`
	Imported   int        `json:"imported"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Items      []Item     `json:"items,omitempty"`
}

type Item struct {
	ISBN    string `json:"isbn"`
	Outcome string `json:"outcome"`
	BookID  string `json:"book_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r *Run) count(it Item) {
	switch it.Outcome {
	case OutcomeImported:
		r.Imported++
	case OutcomeSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}
