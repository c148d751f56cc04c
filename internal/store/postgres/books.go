package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/store"
)

// bookColumns is the ordered column list for book selects.
// Must match the scan order in scanBook.
var bookColumns = []any{
	goqu.I("b.isbn"), goqu.I("b.title"), goqu.I("b.author_id"), goqu.I("a.name"),
	goqu.I("b.genre"), goqu.I("b.publication_year"), goqu.I("b.total_copies"),
	goqu.I("b.available_copies"), goqu.I("b.created_at"), goqu.I("b.updated_at"),
}

func bookSelect() *goqu.SelectDataset {
	return builder.From(goqu.T("books").As("b")).
		Join(goqu.T("authors").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("b.author_id")))).
		Select(bookColumns...).
		Prepared(true)
}

func scanBook(sc scanner) (*domain.Book, error) {
	var b domain.Book
	err := sc.Scan(
		&b.ISBN,
		&b.Title,
		&b.AuthorID,
		&b.AuthorName,
		&b.Genre,
		&b.PublicationYear,
		&b.TotalCopies,
		&b.AvailableCopies,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

// CreateBook inserts a new book.
// Returns store.ErrAlreadyExists if the ISBN is taken.
func (q *queries) CreateBook(ctx context.Context, book *domain.Book) error {
	ds := builder.Insert("books").Rows(goqu.Record{
		"isbn":             book.ISBN,
		"title":            book.Title,
		"author_id":        book.AuthorID,
		"genre":            book.Genre,
		"publication_year": book.PublicationYear,
		"total_copies":     book.TotalCopies,
		"available_copies": book.AvailableCopies,
		"created_at":       book.CreatedAt,
		"updated_at":       book.UpdatedAt,
	}).Prepared(true)

	if _, err := q.exec(ctx, "create book", ds); err != nil {
		return err
	}
	return nil
}

// GetBook looks up a book by ISBN, joining the author name. Inside a
// transaction the book row is locked for the life of the transaction.
func (q *queries) GetBook(ctx context.Context, isbn string) (*domain.Book, error) {
	ds := bookSelect().Where(goqu.I("b.isbn").Eq(isbn))
	if q.forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}

	row, err := q.queryRow(ctx, "get book", ds)
	if err != nil {
		return nil, err
	}
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
	ds := bookSelect().Order(goqu.I("b.title").Asc())

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("list books: build query: %w", err)
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
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
	ds := builder.Update("books").Set(goqu.Record{
		"title":            book.Title,
		"author_id":        book.AuthorID,
		"genre":            book.Genre,
		"publication_year": book.PublicationYear,
		"total_copies":     book.TotalCopies,
		"available_copies": book.AvailableCopies,
		"updated_at":       book.UpdatedAt,
	}).Where(goqu.C("isbn").Eq(book.ISBN)).Prepared(true)

	res, err := q.exec(ctx, "update book", ds)
	if err != nil {
		return err
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
	ds := builder.Insert("authors").Rows(goqu.Record{
		"id":         author.ID,
		"name":       author.Name,
		"created_at": author.CreatedAt,
	}).Prepared(true)

	if _, err := q.exec(ctx, "create author", ds); err != nil {
		return err
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
	ds := builder.From("authors").
		Select("id", "name", "created_at").
		Where(goqu.C(column).Eq(value)).
		Prepared(true)

	row, err := q.queryRow(ctx, "get author", ds)
	if err != nil {
		return nil, err
	}

	var a domain.Author
	err = row.Scan(&a.ID, &a.Name, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("author %q: %w", value, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get author: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}
