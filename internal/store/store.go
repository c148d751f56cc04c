// Package store defines the storage contracts the circulation engine
// and catalog run against. Backends live in subpackages (sqlite,
// postgres) and translate their driver errors into the sentinel errors
// defined here.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/openshelf-server/internal/domain"
)

// Sentinel errors returned by all backends. Callers match with
// errors.Is; the engine translates them into its own error taxonomy.
var (
	// ErrNotFound means the row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists means a uniqueness constraint rejected the write
	// (duplicate primary key, or a taken queue position).
	ErrAlreadyExists = errors.New("already exists")

	// ErrConflict means a concurrent writer invalidated the row between
	// read and commit. Retrying the whole transaction is safe.
	ErrConflict = errors.New("conflict")
)

// BookStore is the catalog-entity contract for books and authors.
type BookStore interface {
	CreateBook(ctx context.Context, book *domain.Book) error
	// GetBook looks up a book by canonical ISBN.
	GetBook(ctx context.Context, isbn string) (*domain.Book, error)
	ListBooks(ctx context.Context) ([]*domain.Book, error)
	// UpdateBook persists counter and attribute changes. Backends guard
	// the copy counters so a racing writer surfaces as ErrConflict
	// rather than a negative count.
	UpdateBook(ctx context.Context, book *domain.Book) error

	CreateAuthor(ctx context.Context, author *domain.Author) error
	GetAuthor(ctx context.Context, id string) (*domain.Author, error)
	// GetAuthorByName does an exact-name lookup, used by the catalog to
	// reuse authors across books.
	GetAuthorByName(ctx context.Context, name string) (*domain.Author, error)
}

// PatronStore is the contract for patron records and their counters.
type PatronStore interface {
	CreatePatron(ctx context.Context, patron *domain.Patron) error
	GetPatron(ctx context.Context, id string) (*domain.Patron, error)
	ListPatrons(ctx context.Context) ([]*domain.Patron, error)
	UpdatePatron(ctx context.Context, patron *domain.Patron) error
}

// CirculationLedger is the contract for the append-mostly circulation
// records: checkouts, returns, reservations, and the read views over
// them.
type CirculationLedger interface {
	CreateCheckout(ctx context.Context, checkout *domain.Checkout) error
	GetCheckout(ctx context.Context, id string) (*domain.Checkout, error)
	UpdateCheckout(ctx context.Context, checkout *domain.Checkout) error
	// ActiveCheckoutsForPatron returns loans still out (active or
	// overdue) for one patron, oldest first.
	ActiveCheckoutsForPatron(ctx context.Context, patronID string) ([]*domain.Checkout, error)
	ActiveCheckoutsForBook(ctx context.Context, isbn string) ([]*domain.Checkout, error)
	// ListActiveCheckouts returns every loan still out, across all
	// patrons, most recently issued first.
	ListActiveCheckouts(ctx context.Context) ([]*domain.Checkout, error)
	// ListCheckoutsDueBefore returns active loans whose due date is
	// strictly before cutoff. Feeds the overdue sweep.
	ListCheckoutsDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.Checkout, error)

	CreateReturn(ctx context.Context, ret *domain.Return) error
	GetReturnForCheckout(ctx context.Context, checkoutID string) (*domain.Return, error)

	CreateReservation(ctx context.Context, reservation *domain.Reservation) error
	GetReservation(ctx context.Context, id string) (*domain.Reservation, error)
	UpdateReservation(ctx context.Context, reservation *domain.Reservation) error
	// QueueForBook returns the open (pending or available) reservations
	// for a book ordered by queue position.
	QueueForBook(ctx context.Context, isbn string) ([]*domain.Reservation, error)
	// OpenReservationForPatron returns the patron's open reservation for
	// a book, or ErrNotFound. At most one can exist.
	OpenReservationForPatron(ctx context.Context, patronID, isbn string) (*domain.Reservation, error)
	// MaxQueuePosition returns the highest queue position among a book's
	// open (pending or available) reservations, 0 when the queue is
	// empty. Positions are never reused, so the next position is always
	// max+1.
	MaxQueuePosition(ctx context.Context, isbn string) (int, error)
	// ListOpenReservations returns every pending or available
	// reservation across all books. Feeds the expiry sweep.
	ListOpenReservations(ctx context.Context) ([]*domain.Reservation, error)

	CirculationStats(ctx context.Context) (*domain.CirculationStats, error)
}

// Tx is the data surface visible inside one transaction. Every read
// through a Tx sees the transaction's own writes; every write commits
// or rolls back with the transaction as a whole.
type Tx interface {
	BookStore
	PatronStore
	CirculationLedger
}

// Store is the full storage contract. Methods called directly on the
// Store read committed state; InTx runs fn inside a single isolated
// transaction and commits only when fn returns nil.
type Store interface {
	Tx

	// InTx executes fn in one transaction. Any error from fn rolls the
	// transaction back and is returned unchanged; a failed commit
	// surfaces as ErrConflict or a driver error.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}
