package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `b.isbn, b.title, b.author_id, a.name, b.genre, b.publication_year,
	b.total_copies, b.available_copies, b.created_at, b.updated_at`

func scanBook(sc scanner) (*domain.Book, error) {
	var b domain.Book
	var createdAt, updatedAt string

	err := sc.Scan(
		&b.ISBN,
		&b.Title,
		&b.AuthorID,
		&b.AuthorName,
		&b.Genre,
		&b.PublicationYear,
		&b.TotalCopies,
		&b.AvailableCopies,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBook inserts a new book.
// Returns store.ErrAlreadyExists if the ISBN is taken.
func (q *queries) CreateBook(ctx context.Context, book *domain.Book) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO books (
			isbn, title, author_id, genre, publication_year,
			total_copies, available_copies, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ISBN,
		book.Title,
		book.AuthorID,
		book.Genre,
		book.PublicationYear,
		book.TotalCopies,
		book.AvailableCopies,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create book: %w", translateErr(err))
	}
	return nil
}

// GetBook looks up a book by ISBN, joining the author name.
func (q *queries) GetBook(ctx context.Context, isbn string) (*domain.Book, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+bookColumns+`
		FROM books b JOIN authors a ON a.id = b.author_id
		WHERE b.isbn = ?`, isbn)

	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %q: %w", isbn, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// ListBooks returns the whole catalog ordered by title.
func (q *queries) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+bookColumns+`
		FROM books b JOIN authors a ON a.id = b.author_id
		ORDER BY b.title`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// UpdateBook persists counter and attribute changes. The schema's CHECK
// on available_copies surfaces racing counter updates as ErrConflict.
func (q *queries) UpdateBook(ctx context.Context, book *domain.Book) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE books SET
			title = ?, author_id = ?, genre = ?, publication_year = ?,
			total_copies = ?, available_copies = ?, updated_at = ?
		WHERE isbn = ?`,
		book.Title,
		book.AuthorID,
		book.Genre,
		book.PublicationYear,
		book.TotalCopies,
		book.AvailableCopies,
		formatTime(book.UpdatedAt),
		book.ISBN,
	)
	if err != nil {
		return fmt.Errorf("update book: %w", translateErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update book: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("book %q: %w", book.ISBN, store.ErrNotFound)
	}
	return nil
}

// CreateAuthor inserts a new author.
// Returns store.ErrAlreadyExists if the name is taken.
func (q *queries) CreateAuthor(ctx context.Context, author *domain.Author) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO authors (id, name, created_at) VALUES (?, ?, ?)`,
		author.ID, author.Name, formatTime(author.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create author: %w", translateErr(err))
	}
	return nil
}

// GetAuthor looks up an author by ID.
func (q *queries) GetAuthor(ctx context.Context, id string) (*domain.Author, error) {
	return q.getAuthorBy(ctx, "id", id)
}

// GetAuthorByName does an exact-name lookup.
func (q *queries) GetAuthorByName(ctx context.Context, name string) (*domain.Author, error) {
	return q.getAuthorBy(ctx, "name", name)
}

func (q *queries) getAuthorBy(ctx context.Context, column, value string) (*domain.Author, error) {
	var a domain.Author
	var createdAt string

	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM authors WHERE `+column+` = ?`, value,
	).Scan(&a.ID, &a.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("author %q: %w", value, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get author: %w", err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}
