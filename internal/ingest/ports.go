package ingest

import (
	"context"

	"libraryapi/internal/book"
)

type Repository interface {
	CreateRun(ctx context.Context, run *Run) (string, error)
	UpdateRun(ctx context.Context, run *Run) error
	AddItem(ctx context.Context, runID string, item Item) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListItems(ctx context.Context, runID string) ([]Item, error)
}

// Importer is satisfied by *book.Service.
type Importer interface {
	ImportByISBN(ctx context.Context, isbn string) (book.Book, error)
}
