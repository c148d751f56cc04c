// Package circulation implements the lending state machine: checkouts,
// returns, renewals, the reservation queue, and fines. Every mutating
// operation runs as one store transaction and returns the domain events
// it produced for the caller to forward.
package circulation

import (
	"context"
	"log/slog"

	"github.com/openshelf/openshelf-server/internal/clock"
	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/errors"
	"github.com/openshelf/openshelf-server/internal/store"
)

// Engine coordinates all circulation mutations. It owns no state of its
// own; everything lives in the store, and time comes from the injected
// clock so tests can pin "today".
type Engine struct {
	store  store.Store
	clock  clock.Clock
	policy Policy
	logger *slog.Logger
}

// NewEngine wires an engine over a store with the given lending policy.
func NewEngine(st store.Store, clk clock.Clock, policy Policy, logger *slog.Logger) *Engine {
	return &Engine{
		store:  st,
		clock:  clk,
		policy: policy,
		logger: logger,
	}
}

// Policy returns the lending terms the engine applies.
func (e *Engine) Policy() Policy {
	return e.policy
}

// storageErr wraps unexpected store failures. Sentinels that carry
// operation meaning (not found, conflict) are translated at the call
// site; everything else is infrastructure.
func storageErr(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return errors.Wrap(err, errors.CodeConflict, op+": concurrent update, retry the operation")
	default:
		return errors.Wrap(err, errors.CodeStorage, op+": storage failure")
	}
}

// getPatron loads a patron, translating the missing-row sentinel.
func getPatron(ctx context.Context, tx store.Tx, patronID string) (*domain.Patron, error) {
	patron, err := tx.GetPatron(ctx, patronID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("patron %q not found", patronID)
	}
	if err != nil {
		return nil, storageErr("get patron", err)
	}
	return patron, nil
}

// getBook loads a book, translating the missing-row sentinel.
func getBook(ctx context.Context, tx store.Tx, isbn string) (*domain.Book, error) {
	book, err := tx.GetBook(ctx, isbn)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("book %q not found", isbn)
	}
	if err != nil {
		return nil, storageErr("get book", err)
	}
	return book, nil
}

// getCheckout loads a checkout, translating the missing-row sentinel.
func getCheckout(ctx context.Context, tx store.Tx, id string) (*domain.Checkout, error) {
	checkout, err := tx.GetCheckout(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("checkout %q not found", id)
	}
	if err != nil {
		return nil, storageErr("get checkout", err)
	}
	return checkout, nil
}

// getReservation loads a reservation, translating the missing-row sentinel.
func getReservation(ctx context.Context, tx store.Tx, id string) (*domain.Reservation, error) {
	reservation, err := tx.GetReservation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("reservation %q not found", id)
	}
	if err != nil {
		return nil, storageErr("get reservation", err)
	}
	return reservation, nil
}

// PatronCheckouts returns the loans still out for one patron.
func (e *Engine) PatronCheckouts(ctx context.Context, patronID string) ([]*domain.Checkout, error) {
	checkouts, err := e.store.ActiveCheckoutsForPatron(ctx, patronID)
	if err != nil {
		return nil, storageErr("patron checkouts", err)
	}
	return checkouts, nil
}

// ActiveCheckouts returns every loan still out across all patrons.
func (e *Engine) ActiveCheckouts(ctx context.Context) ([]*domain.Checkout, error) {
	checkouts, err := e.store.ListActiveCheckouts(ctx)
	if err != nil {
		return nil, storageErr("active checkouts", err)
	}
	return checkouts, nil
}

// OverdueCheckouts returns loans past their due date as of today, with
// the fine each would accrue if returned now.
func (e *Engine) OverdueCheckouts(ctx context.Context) ([]*OverdueLoan, error) {
	checkouts, err := e.store.ListActiveCheckouts(ctx)
	if err != nil {
		return nil, storageErr("overdue checkouts", err)
	}

	today := e.clock.Today()
	var overdue []*OverdueLoan
	for _, c := range checkouts {
		if !c.IsPastDue(today) {
			continue
		}
		lateDays := c.LateDays(today)
		overdue = append(overdue, &OverdueLoan{
			Checkout:       c,
			LateDays:       lateDays,
			AccruedFine:    e.policy.FinePerDay * domain.Cents(lateDays),
			FlaggedBySweep: c.Status == domain.CheckoutOverdue,
		})
	}
	return overdue, nil
}

// OverdueLoan pairs an overdue checkout with its fine-to-date.
type OverdueLoan struct {
	Checkout *domain.Checkout `json:"checkout"`
	LateDays int              `json:"late_days"`
	// AccruedFine is what the fine would be if the book came back today.
	AccruedFine domain.Cents `json:"accrued_fine"`
	// FlaggedBySweep reports whether the overdue sweep has already
	// marked the loan.
	FlaggedBySweep bool `json:"flagged"`
}

// Queue returns the open reservation queue for a book in position order.
func (e *Engine) Queue(ctx context.Context, isbn string) ([]*domain.Reservation, error) {
	queue, err := e.store.QueueForBook(ctx, isbn)
	if err != nil {
		return nil, storageErr("reservation queue", err)
	}
	return queue, nil
}

// Stats returns the aggregate circulation snapshot.
func (e *Engine) Stats(ctx context.Context) (*domain.CirculationStats, error) {
	stats, err := e.store.CirculationStats(ctx)
	if err != nil {
		return nil, storageErr("circulation stats", err)
	}
	return stats, nil
}

// ReturnForCheckout returns the return record of a completed loan.
func (e *Engine) ReturnForCheckout(ctx context.Context, checkoutID string) (*domain.Return, error) {
	ret, err := e.store.GetReturnForCheckout(ctx, checkoutID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("no return recorded for checkout %q", checkoutID)
	}
	if err != nil {
		return nil, storageErr("get return", err)
	}
	return ret, nil
}

func (e *Engine) logEvents(events []domain.Event) {
	for _, ev := range events {
		e.logger.Info("circulation event",
			slog.String("type", string(ev.Type)),
			slog.String("patron_id", ev.PatronID),
			slog.String("book_isbn", ev.BookISBN),
		)
	}
}
