package catalog

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openshelf/openshelf-server/internal/clock"
	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/errors"
	"github.com/openshelf/openshelf-server/internal/search"
	"github.com/openshelf/openshelf-server/internal/store/sqlite"
)

var testEpoch = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	service *Service
	store   *sqlite.Store
	index   *search.Index
	clock   *clock.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	index, err := search.NewIndex(search.Options{DataPath: dir, Logger: logger})
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { index.Close() })

	clk := clock.NewFake(testEpoch)
	return &fixture{
		service: New(st, index, clk, logger),
		store:   st,
		index:   index,
		clock:   clk,
	}
}

func wantValidation(t *testing.T, err error, substr string) {
	t.Helper()
	if err == nil {
		t.Fatal("want validation error, got nil")
	}
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), substr) {
		t.Fatalf("error %q does not mention %q", err, substr)
	}
}

func addBookReq() AddBookRequest {
	return AddBookRequest{
		ISBN:            "978-0-618-00221-3",
		Title:           "The Hobbit",
		Author:          "J.R.R. Tolkien",
		Genre:           "Fantasy",
		PublicationYear: 1937,
		TotalCopies:     3,
	}
}

func TestAddBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	book, err := f.service.AddBook(ctx, addBookReq())
	if err != nil {
		t.Fatalf("add book: %v", err)
	}

	if book.ISBN != "9780618002213" {
		t.Errorf("ISBN not canonicalized: %q", book.ISBN)
	}
	if book.Genre != "fantasy" {
		t.Errorf("genre not normalized: %q", book.Genre)
	}
	if book.AvailableCopies != 3 || book.TotalCopies != 3 {
		t.Errorf("new book should start fully stocked, got %d/%d",
			book.AvailableCopies, book.TotalCopies)
	}
	if book.AuthorID == "" {
		t.Error("author was not minted")
	}

	// Persisted and joined back with the author name.
	got, err := f.service.GetBook(ctx, "978-0-618-00221-3")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if got.AuthorName != "J.R.R. Tolkien" {
		t.Errorf("author name = %q", got.AuthorName)
	}

	// And searchable.
	result, err := f.service.Search(ctx, "hobbit", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(result.Hits) != 1 || result.Hits[0].ISBN != "9780618002213" {
		t.Fatalf("search hits = %+v", result.Hits)
	}
}

func TestAddBookReusesAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.AddBook(ctx, addBookReq())
	if err != nil {
		t.Fatalf("add first: %v", err)
	}

	req := addBookReq()
	req.ISBN = "9780261102736"
	req.Title = "The Fellowship of the Ring"
	second, err := f.service.AddBook(ctx, req)
	if err != nil {
		t.Fatalf("add second: %v", err)
	}

	if first.AuthorID != second.AuthorID {
		t.Errorf("same author name minted two IDs: %q vs %q", first.AuthorID, second.AuthorID)
	}
}

func TestAddBookDuplicateISBN(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.service.AddBook(ctx, addBookReq()); err != nil {
		t.Fatalf("add book: %v", err)
	}

	// Same ISBN in a different separator shape is still a duplicate.
	req := addBookReq()
	req.ISBN = "9780618002213"
	_, err := f.service.AddBook(ctx, req)
	if !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
}

func TestAddBookRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("malformed isbn", func(t *testing.T) {
		req := addBookReq()
		req.ISBN = "not-an-isbn"
		_, err := f.service.AddBook(ctx, req)
		wantValidation(t, err, "ISBN")
	})

	t.Run("missing title", func(t *testing.T) {
		req := addBookReq()
		req.Title = ""
		_, err := f.service.AddBook(ctx, req)
		if !errors.Is(err, errors.ErrValidation) {
			t.Fatalf("want validation error, got %v", err)
		}
	})

	t.Run("zero copies", func(t *testing.T) {
		req := addBookReq()
		req.TotalCopies = 0
		_, err := f.service.AddBook(ctx, req)
		if !errors.Is(err, errors.ErrValidation) {
			t.Fatalf("want validation error, got %v", err)
		}
	})
}

func TestGetBookNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetBook(context.Background(), "9780618002213")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestRegisterPatron(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	patron, err := f.service.RegisterPatron(ctx, RegisterPatronRequest{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if !strings.HasPrefix(patron.ID, "pat-") {
		t.Errorf("patron ID = %q", patron.ID)
	}
	if patron.Status != domain.MembershipActive {
		t.Errorf("status = %q", patron.Status)
	}
	if patron.BorrowingLimit != defaultBorrowingLimit {
		t.Errorf("limit = %d, want default %d", patron.BorrowingLimit, defaultBorrowingLimit)
	}
	if patron.CurrentCheckouts != 0 || patron.OutstandingFines != 0 {
		t.Error("counters should start at zero")
	}
}

func TestRegisterPatronCustomLimit(t *testing.T) {
	f := newFixture(t)

	patron, err := f.service.RegisterPatron(context.Background(), RegisterPatronRequest{
		Name:           "Grace Hopper",
		Email:          "grace@example.com",
		BorrowingLimit: 12,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if patron.BorrowingLimit != 12 {
		t.Errorf("limit = %d", patron.BorrowingLimit)
	}
}

func TestRegisterPatronBadEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.RegisterPatron(context.Background(), RegisterPatronRequest{
		Name:  "No Email",
		Email: "not-an-email",
	})
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestSetPatronStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	patron, err := f.service.RegisterPatron(ctx, RegisterPatronRequest{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := f.service.SetPatronStatus(ctx, patron.ID, domain.MembershipSuspended)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if updated.Status != domain.MembershipSuspended {
		t.Errorf("status = %q", updated.Status)
	}

	// The change is persisted.
	got, err := f.service.GetPatron(ctx, patron.ID)
	if err != nil {
		t.Fatalf("get patron: %v", err)
	}
	if got.Status != domain.MembershipSuspended {
		t.Errorf("persisted status = %q", got.Status)
	}
}

func TestSetPatronStatusInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SetPatronStatus(context.Background(), "pat-x", domain.MembershipStatus("banned"))
	wantValidation(t, err, "banned")
}

func TestSetPatronStatusNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SetPatronStatus(context.Background(), "pat-missing", domain.MembershipActive)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestReindexAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.service.AddBook(ctx, addBookReq()); err != nil {
		t.Fatalf("add book: %v", err)
	}

	// Wipe the index, then rebuild from the store.
	if err := f.index.Rebuild(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if err := f.service.ReindexAll(ctx); err != nil {
		t.Fatalf("reindex: %v", err)
	}

	count, err := f.index.DocumentCount()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("indexed count = %d, want 1", count)
	}
}
