package book

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")
	// ErrAlreadyExists is returned when another book already has the ISBN.
	ErrAlreadyExists = errors.New("book with this isbn already exists")
	// ErrInUse is returned when deleting a book that borrow records reference.
	ErrInUse = errors.New("book is referenced by borrow records")
	// ErrMetadataNotFound is returned by ImportByISBN when no catalogue entry exists.
	ErrMetadataNotFound = errors.New("no catalogue metadata for isbn")
)

// NormalizeISBN strips separators so "978-0-13-468599-1" and "9780134685991"
// identify the same book.
func NormalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	return strings.ToUpper(isbn)
}

// Book is an inventory item. Available is owned by the borrow workflow:
// inventory edits never write it.
type Book struct {
	ID              string    `json:"id"`
	ISBN            string    `json:"isbn"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Genre           string    `json:"genre,omitempty"`
	Publisher       string    `json:"publisher,omitempty"`
	Description     string    `json:"description,omitempty"`
	PublicationYear *int      `json:"publication_year,omitempty"`
	CoverURL        *string   `json:"cover_url,omitempty"`
	Available       bool      `json:"available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Query defines filters and pagination for listing books.
type Query struct {
	Q         string
	Genre     string
	Author    string
	Available *bool
	Sort      string
	Desc      bool
	Limit     int
	Offset    int
}
