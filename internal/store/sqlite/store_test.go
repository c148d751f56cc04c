package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openshelf/openshelf-server/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testEpoch = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func seedAuthor(t *testing.T, s *Store, id, name string) *domain.Author {
	t.Helper()
	author := &domain.Author{ID: id, Name: name, CreatedAt: testEpoch}
	if err := s.CreateAuthor(context.Background(), author); err != nil {
		t.Fatalf("seed author: %v", err)
	}
	return author
}

func seedBook(t *testing.T, s *Store, isbn string, total, available int) *domain.Book {
	t.Helper()
	author := &domain.Author{ID: "aut-" + isbn, Name: "Author of " + isbn, CreatedAt: testEpoch}
	if err := s.CreateAuthor(context.Background(), author); err != nil {
		t.Fatalf("seed author: %v", err)
	}
	book := &domain.Book{
		ISBN:            isbn,
		Title:           "Book " + isbn,
		AuthorID:        author.ID,
		Genre:           "fiction",
		PublicationYear: 2001,
		TotalCopies:     total,
		AvailableCopies: available,
		CreatedAt:       testEpoch,
		UpdatedAt:       testEpoch,
	}
	if err := s.CreateBook(context.Background(), book); err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return book
}

func seedPatron(t *testing.T, s *Store, id string, limit int) *domain.Patron {
	t.Helper()
	patron := domain.NewPatron(id, "Patron "+id, id+"@example.com", limit, testEpoch)
	if err := s.CreatePatron(context.Background(), patron); err != nil {
		t.Fatalf("seed patron: %v", err)
	}
	return patron
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.sqlDB.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	var fk int
	if err := s.sqlDB.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	tables := []string{"authors", "books", "patrons", "checkouts", "returns", "reservations"}
	for _, table := range tables {
		var name string
		err := s.sqlDB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s1, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	seedBook(t, s1, "9780000000001", 2, 2)
	s1.Close()

	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	book, err := s2.GetBook(context.Background(), "9780000000001")
	if err != nil {
		t.Fatalf("get book after reopen: %v", err)
	}
	if book.TotalCopies != 2 {
		t.Errorf("total copies = %d, want 2", book.TotalCopies)
	}
}
