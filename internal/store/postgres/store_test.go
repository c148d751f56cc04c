package postgres_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/store"
	"github.com/openshelf/openshelf-server/internal/store/postgres"
)

var testEpoch = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*postgres.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return postgres.New(sqlx.NewDb(db, "pgx"), logger), mock
}

func testBook() *domain.Book {
	return &domain.Book{
		ISBN:            "9780140449136",
		Title:           "The Odyssey",
		AuthorID:        "aut-1",
		Genre:           "classics",
		PublicationYear: 1996,
		TotalCopies:     2,
		AvailableCopies: 2,
		CreatedAt:       testEpoch,
		UpdatedAt:       testEpoch,
	}
}

var patronRowColumns = []string{
	"id", "name", "email", "status", "membership_expires_at",
	"borrowing_limit", "current_checkouts", "total_checkouts", "outstanding_fines",
	"last_activity_at", "created_at", "updated_at",
}

func patronRow() *sqlmock.Rows {
	return sqlmock.NewRows(patronRowColumns).
		AddRow("pat-1", "Ada", "ada@example.com", "active", nil,
			3, 1, 5, int64(250), nil, testEpoch, testEpoch)
}

func TestGetPatron(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM "patrons" WHERE \("id" = \$1\)`).
		WithArgs("pat-1").
		WillReturnRows(patronRow())

	patron, err := s.GetPatron(context.Background(), "pat-1")
	require.NoError(t, err)
	assert.Equal(t, "pat-1", patron.ID)
	assert.Equal(t, domain.MembershipActive, patron.Status)
	assert.Equal(t, domain.Cents(250), patron.OutstandingFines)
	assert.Nil(t, patron.MembershipExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPatronNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM "patrons"`).
		WithArgs("pat-missing").
		WillReturnRows(sqlmock.NewRows(patronRowColumns))

	_, err := s.GetPatron(context.Background(), "pat-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookDuplicateISBN(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO "books"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "books_pkey"})

	err := s.CreateBook(context.Background(), testBook())
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBookCounterOutOfRangeIsConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "books"`).
		WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "books_available_copies_check"})

	book := testBook()
	book.AvailableCopies = -1
	err := s.UpdateBook(context.Background(), book)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBookMissingIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "books"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateBook(context.Background(), testBook())
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxLocksRowsAndCommits(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "patrons" WHERE \("id" = \$1\) FOR UPDATE`).
		WithArgs("pat-1").
		WillReturnRows(patronRow())
	mock.ExpectExec(`UPDATE "patrons"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.InTx(context.Background(), func(tx store.Tx) error {
		patron, err := tx.GetPatron(context.Background(), "pat-1")
		if err != nil {
			return err
		}
		patron.RecordCheckout(testEpoch)
		return tx.UpdatePatron(context.Background(), patron)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)

	boom := errors.New("no copies available")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(tx store.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxCommitConflictIsTranslated(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectCommit().
		WillReturnError(&pgconn.PgError{Code: "40001"})

	err := s.InTx(context.Background(), func(tx store.Tx) error { return nil })
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaxQueuePositionEmptyQueue(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT MAX\("queue_position"\) FROM "reservations"`).
		WithArgs("9780140449136", "pending", "available").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	max, err := s.MaxQueuePosition(context.Background(), "9780140449136")
	require.NoError(t, err)
	assert.Zero(t, max)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReservationNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM "reservations"`).
		WithArgs("rsv-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetReservation(context.Background(), "rsv-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
