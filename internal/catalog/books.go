package catalog

import (
	"context"
	"time"

	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/errors"
	"github.com/openshelf/openshelf-server/internal/genre"
	"github.com/openshelf/openshelf-server/internal/id"
	"github.com/openshelf/openshelf-server/internal/normalize"
	"github.com/openshelf/openshelf-server/internal/search"
	"github.com/openshelf/openshelf-server/internal/store"
)

// AddBookRequest carries the fields for a new catalog title.
type AddBookRequest struct {
	ISBN            string `json:"isbn" validate:"required"`
	Title           string `json:"title" validate:"required,min=1,max=500"`
	Author          string `json:"author" validate:"required,min=1,max=200"`
	Genre           string `json:"genre" validate:"required"`
	PublicationYear int    `json:"publication_year" validate:"gte=1000,lte=2100"`
	TotalCopies     int    `json:"total_copies" validate:"gte=1,lte=1000"`
}

// AddBook registers a new title. The ISBN is canonicalized before
// storage; the author row is reused by exact name or created on first
// use. New books start fully stocked (available == total).
func (s *Service) AddBook(ctx context.Context, req AddBookRequest) (*domain.Book, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	isbn := normalize.ISBN(req.ISBN)
	if isbn == "" {
		return nil, errors.Validationf("%q is not a valid ISBN-10 or ISBN-13", req.ISBN)
	}

	genreSlug := genre.Normalize(req.Genre)
	if genreSlug == "" {
		return nil, errors.Validationf("genre %q is empty after normalization", req.Genre)
	}
	if !genre.IsCanonical(genreSlug) {
		s.logger.Warn("genre outside the canonical taxonomy", "genre", genreSlug, "isbn", isbn)
	}

	now := s.clock.Now()
	var book *domain.Book

	err := s.store.InTx(ctx, func(tx store.Tx) error {
		author, err := s.resolveAuthor(ctx, tx, req.Author, now)
		if err != nil {
			return err
		}

		book = &domain.Book{
			ISBN:            isbn,
			Title:           req.Title,
			AuthorID:        author.ID,
			AuthorName:      author.Name,
			Genre:           genreSlug,
			PublicationYear: req.PublicationYear,
			TotalCopies:     req.TotalCopies,
			AvailableCopies: req.TotalCopies,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := tx.CreateBook(ctx, book); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return errors.Conflictf("book %q is already in the catalog", isbn)
			}
			return storageErr("create book", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Indexing is best effort; a broken index never fails the write.
	if s.index != nil {
		if err := s.index.IndexBook(book); err != nil {
			s.logger.Warn("failed to index book", "isbn", book.ISBN, "error", err)
		}
	}

	s.logger.Info("book added", "isbn", book.ISBN, "title", book.Title, "copies", book.TotalCopies)
	return book, nil
}

// resolveAuthor finds an author by exact name or creates one.
func (s *Service) resolveAuthor(ctx context.Context, tx store.Tx, name string, now time.Time) (*domain.Author, error) {
	author, err := tx.GetAuthorByName(ctx, name)
	if err == nil {
		return author, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, storageErr("get author", err)
	}

	authorID, err := id.Generate(id.PrefixAuthor)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate author id")
	}
	author = &domain.Author{
		ID:        authorID,
		Name:      name,
		CreatedAt: now,
	}
	if err := tx.CreateAuthor(ctx, author); err != nil {
		return nil, storageErr("create author", err)
	}
	return author, nil
}

// GetBook returns one title by ISBN, tolerant of separator formatting.
func (s *Service) GetBook(ctx context.Context, rawISBN string) (*domain.Book, error) {
	isbn := normalize.ISBN(rawISBN)
	if isbn == "" {
		return nil, errors.Validationf("%q is not a valid ISBN-10 or ISBN-13", rawISBN)
	}

	book, err := s.store.GetBook(ctx, isbn)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("book %q not found", isbn)
	}
	if err != nil {
		return nil, storageErr("get book", err)
	}
	return book, nil
}

// ListBooks returns the full catalog ordered by title.
func (s *Service) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, storageErr("list books", err)
	}
	return books, nil
}

// Search runs a full-text query over the index.
func (s *Service) Search(ctx context.Context, query string, limit int) (*search.Result, error) {
	if s.index == nil {
		return nil, errors.Internalf("search index not configured")
	}
	params := search.DefaultParams()
	params.Query = query
	if limit > 0 {
		params.Limit = limit
	}
	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "search catalog")
	}
	return result, nil
}

// ReindexAll rebuilds the search index from the catalog. Used at
// startup so index state never drifts from the store across restarts.
func (s *Service) ReindexAll(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return storageErr("list books", err)
	}
	if err := s.index.IndexBooks(books); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "reindex catalog")
	}
	s.logger.Info("catalog reindexed", "books", len(books))
	return nil
}
