package circulation

import (
	"context"
	"time"

	"github.com/openshelf/openshelf-server/internal/clock"
	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/errors"
	"github.com/openshelf/openshelf-server/internal/id"
	"github.com/openshelf/openshelf-server/internal/store"
)

// ReserveRequest carries the inputs for placing a hold. An absent
// ExpirationDate defaults to the policy reservation life.
type ReserveRequest struct {
	PatronID       string
	BookISBN       string
	ExpirationDate *time.Time
	Notes          string
}

// Reserve places a hold at the back of a book's queue. Availability is
// deliberately not checked: reserving a book that is on the shelf is
// allowed. Queue positions are monotonic per book and never reused;
// cancellations leave gaps.
func (e *Engine) Reserve(ctx context.Context, req ReserveRequest) (*domain.Reservation, []domain.Event, error) {
	var (
		reservation *domain.Reservation
		events      []domain.Event
	)
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		now := e.clock.Now()
		today := e.clock.Today()

		patron, err := getPatron(ctx, tx, req.PatronID)
		if err != nil {
			return err
		}
		if !patron.IsActive() {
			return errors.BusinessRulef("patron %q membership inactive (status %s)", patron.ID, patron.Status)
		}
		if patron.MembershipLapsed(today) {
			return errors.BusinessRulef("patron %q membership expired on %s",
				patron.ID, patron.MembershipExpiresAt.Format("2006-01-02"))
		}

		// The book row lock serializes queue-position assignment per book.
		book, err := getBook(ctx, tx, req.BookISBN)
		if err != nil {
			return err
		}

		existing, err := tx.OpenReservationForPatron(ctx, patron.ID, book.ISBN)
		if err == nil {
			return errors.BusinessRulef("duplicate reservation: patron %q already holds position %d for %q",
				patron.ID, existing.QueuePosition, book.ISBN)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return storageErr("check existing reservation", err)
		}

		expiration := today.AddDate(0, 0, e.policy.ReservationLifeDays)
		if req.ExpirationDate != nil {
			exp := clock.Midnight(*req.ExpirationDate)
			if !exp.After(today) {
				return errors.Validationf("expiration date %s is not in the future", exp.Format("2006-01-02"))
			}
			if exp.After(expiration) {
				return errors.Validationf("expiration date exceeds the maximum of %d days out", e.policy.ReservationLifeDays)
			}
			expiration = exp
		}

		maxPos, err := tx.MaxQueuePosition(ctx, book.ISBN)
		if err != nil {
			return storageErr("max queue position", err)
		}

		reservationID, err := id.Generate(id.PrefixReservation)
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "generate reservation id")
		}

		reservation = domain.NewReservation(reservationID, patron.ID, book.ISBN, maxPos+1, now, expiration)
		reservation.Notes = req.Notes

		if err := tx.CreateReservation(ctx, reservation); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return errors.Conflict("queue position claimed by a concurrent reservation, retry")
			}
			return storageErr("create reservation", err)
		}

		patron.Touch(now)
		if err := tx.UpdatePatron(ctx, patron); err != nil {
			return storageErr("update patron", err)
		}

		ev := domain.NewEvent(domain.EventReservationQueued, now)
		ev.PatronID = patron.ID
		ev.BookISBN = book.ISBN
		ev.ReservationID = reservation.ID
		ev.QueuePosition = reservation.QueuePosition
		events = []domain.Event{ev}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.logEvents(events)
	return reservation, events, nil
}

// CancelReservation withdraws an open hold. The freed queue position is
// not reused and the rest of the queue keeps its positions.
func (e *Engine) CancelReservation(ctx context.Context, reservationID string) (*domain.Reservation, []domain.Event, error) {
	var (
		reservation *domain.Reservation
		events      []domain.Event
	)
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		now := e.clock.Now()

		var err error
		reservation, err = getReservation(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if !reservation.CanCancel() {
			return errors.BusinessRulef("reservation %q cannot be cancelled from status %q",
				reservation.ID, reservation.Status)
		}

		reservation.MarkCancelled(now)
		if err := tx.UpdateReservation(ctx, reservation); err != nil {
			return storageErr("update reservation", err)
		}

		ev := domain.NewEvent(domain.EventReservationCancelled, now)
		ev.PatronID = reservation.PatronID
		ev.BookISBN = reservation.BookISBN
		ev.ReservationID = reservation.ID
		events = []domain.Event{ev}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.logEvents(events)
	return reservation, events, nil
}

// FulfillResult pairs the collected reservation with the checkout it
// produced.
type FulfillResult struct {
	Reservation *domain.Reservation `json:"reservation"`
	Checkout    *domain.Checkout    `json:"checkout"`
}

// FulfillReservation hands the held copy to the waiting patron: the
// hold completes and the book is checked out under the normal lending
// rules, all in one transaction. Legal only from Available.
func (e *Engine) FulfillReservation(ctx context.Context, reservationID string) (*FulfillResult, []domain.Event, error) {
	var (
		result *FulfillResult
		events []domain.Event
	)
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		now := e.clock.Now()

		reservation, err := getReservation(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if !reservation.CanFulfill() {
			return errors.BusinessRulef("reservation %q is not available for pickup (status %q)",
				reservation.ID, reservation.Status)
		}

		reservation.MarkFulfilled(now)
		if err := tx.UpdateReservation(ctx, reservation); err != nil {
			return storageErr("update reservation", err)
		}

		checkout, checkoutEvents, err := e.checkoutLocked(ctx, tx, CheckoutRequest{
			PatronID: reservation.PatronID,
			BookISBN: reservation.BookISBN,
		})
		if err != nil {
			return err
		}

		ev := domain.NewEvent(domain.EventReservationFulfilled, now)
		ev.PatronID = reservation.PatronID
		ev.BookISBN = reservation.BookISBN
		ev.ReservationID = reservation.ID
		ev.CheckoutID = checkout.ID
		events = append([]domain.Event{ev}, checkoutEvents...)

		result = &FulfillResult{Reservation: reservation, Checkout: checkout}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.logEvents(events)
	return result, events, nil
}
