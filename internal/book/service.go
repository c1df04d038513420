package book

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"libraryapi/internal/platform/openlibrary"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service provides book-related business logic.
type Service struct {
	repo     Repository
	metadata MetadataSource
}

// NewService creates a new book service. metadata may be nil, in which case
// ImportByISBN is unavailable.
func NewService(repo Repository, metadata MetadataSource) *Service {
	return &Service{repo: repo, metadata: metadata}
}

// List returns a page of books matching the query and the total match count.
func (s *Service) List(ctx context.Context, q Query) ([]Book, int, error) {
	if q.Limit <= 0 || q.Limit > maxLimit {
		q.Limit = defaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return s.repo.List(ctx, q)
}

// Search matches title, author, isbn, genre or publisher.
func (s *Service) Search(ctx context.Context, text string, limit, offset int) ([]Book, int, error) {
	return s.List(ctx, Query{Q: strings.TrimSpace(text), Limit: limit, Offset: offset})
}

// ListAvailable returns books that are not currently on loan.
func (s *Service) ListAvailable(ctx context.Context, limit, offset int) ([]Book, int, error) {
	available := true
	return s.List(ctx, Query{Available: &available, Limit: limit, Offset: offset})
}

func (s *Service) GetByID(ctx context.Context, id string) (Book, error) {
	return s.repo.GetByID(ctx, id)
}

// Create adds a book to the inventory. The stored ISBN is normalized and the
// book always starts available.
func (s *Service) Create(ctx context.Context, b Book) (Book, error) {
	b.ISBN = NormalizeISBN(b.ISBN)
	b.Available = true
	if err := s.repo.Create(ctx, &b); err != nil {
		return Book{}, err
	}
	return b, nil
}

// Update replaces the descriptive fields of a book. Availability is left to
// the borrow workflow.
func (s *Service) Update(ctx context.Context, id string, b Book) (Book, error) {
	b.ID = id
	b.ISBN = NormalizeISBN(b.ISBN)
	if err := s.repo.Update(ctx, &b); err != nil {
		return Book{}, err
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// ImportByISBN creates a book from catalogue metadata. An ISBN that is already
// in the inventory yields ErrAlreadyExists without calling the catalogue.
func (s *Service) ImportByISBN(ctx context.Context, isbn string) (Book, error) {
	if s.metadata == nil {
		return Book{}, ErrMetadataNotFound
	}
	isbn = NormalizeISBN(isbn)

	if _, err := s.repo.GetByISBN(ctx, isbn); err == nil {
		return Book{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return Book{}, err
	}

	details, err := s.metadata.GetBookByISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, openlibrary.ErrNotFound) {
			return Book{}, ErrMetadataNotFound
		}
		return Book{}, fmt.Errorf("fetch metadata for %s: %w", isbn, err)
	}

	return s.Create(ctx, fromDetails(isbn, details))
}

var yearRe = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)

func fromDetails(isbn string, d *openlibrary.BookDetails) Book {
	b := Book{
		ISBN:        isbn,
		Title:       d.Title,
		Description: d.Notes,
	}
	if d.Subtitle != "" {
		b.Title = d.Title + ": " + d.Subtitle
	}

	authors := make([]string, 0, len(d.Authors))
	for _, a := range d.Authors {
		authors = append(authors, a.Name)
	}
	b.Author = strings.Join(authors, ", ")
	if b.Author == "" {
		b.Author = "Unknown"
	}

	if len(d.Publishers) > 0 {
		b.Publisher = d.Publishers[0].Name
	}
	if len(d.Subjects) > 0 {
		b.Genre = d.Subjects[0].Name
	}
	if m := yearRe.FindString(d.PublishDate); m != "" {
		year, _ := strconv.Atoi(m)
		b.PublicationYear = &year
	}

	cover := d.Cover.Large
	if cover == "" {
		cover = d.Cover.Medium
	}
	if cover != "" {
		b.CoverURL = &cover
	}
	return b
}
