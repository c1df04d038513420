package book

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=book

import (
	"context"

	"libraryapi/internal/platform/openlibrary"
)

// Repository defines the contract for book data storage.
type Repository interface {
	List(ctx context.Context, q Query) ([]Book, int, error)
	GetByID(ctx context.Context, id string) (Book, error)
	GetByISBN(ctx context.Context, isbn string) (Book, error)
	Create(ctx context.Context, b *Book) error
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id string) error
}

// MetadataSource looks up bibliographic data for an ISBN.
type MetadataSource interface {
	GetBookByISBN(ctx context.Context, isbn string) (*openlibrary.BookDetails, error)
}
