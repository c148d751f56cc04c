package circulation

import (
	"context"

	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/store"
)

// SweepResult reports how many records each sweep touched.
type SweepResult struct {
	OverdueMarked       int `json:"overdue_marked"`
	ReservationsExpired int `json:"reservations_expired"`
}

// MarkOverdueLoans flags active loans whose due date has passed.
// Idempotent: loans already flagged are skipped, so a second run on the
// same day marks nothing.
func (e *Engine) MarkOverdueLoans(ctx context.Context) (int, []domain.Event, error) {
	var (
		marked int
		events []domain.Event
	)
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		now := e.clock.Now()
		today := e.clock.Today()

		due, err := tx.ListCheckoutsDueBefore(ctx, today)
		if err != nil {
			return storageErr("list due checkouts", err)
		}

		for _, checkout := range due {
			checkout.MarkOverdue(now)
			if err := tx.UpdateCheckout(ctx, checkout); err != nil {
				return storageErr("update checkout", err)
			}

			ev := domain.NewEvent(domain.EventCheckoutMarkedOverdue, now)
			ev.PatronID = checkout.PatronID
			ev.BookISBN = checkout.BookISBN
			ev.CheckoutID = checkout.ID
			ev.LateDays = checkout.LateDays(today)
			events = append(events, ev)
		}
		marked = len(due)
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	e.logEvents(events)
	return marked, events, nil
}

// ExpireReservations closes open holds that have lapsed: available ones
// past their pickup deadline, pending ones past their expiration date.
// Idempotent; expired holds free their queue positions.
func (e *Engine) ExpireReservations(ctx context.Context) (int, []domain.Event, error) {
	var (
		expired int
		events  []domain.Event
	)
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		now := e.clock.Now()
		today := e.clock.Today()

		open, err := tx.ListOpenReservations(ctx)
		if err != nil {
			return storageErr("list open reservations", err)
		}

		for _, reservation := range open {
			if !reservation.HasLapsed(today) {
				continue
			}
			reservation.MarkExpired(now)
			if err := tx.UpdateReservation(ctx, reservation); err != nil {
				return storageErr("update reservation", err)
			}

			ev := domain.NewEvent(domain.EventReservationExpired, now)
			ev.PatronID = reservation.PatronID
			ev.BookISBN = reservation.BookISBN
			ev.ReservationID = reservation.ID
			events = append(events, ev)
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	e.logEvents(events)
	return expired, events, nil
}

// Sweep runs both maintenance passes. This is the code path behind both
// the scheduled jobs and the manual sweep tool.
func (e *Engine) Sweep(ctx context.Context) (*SweepResult, []domain.Event, error) {
	marked, overdueEvents, err := e.MarkOverdueLoans(ctx)
	if err != nil {
		return nil, nil, err
	}
	expired, expiryEvents, err := e.ExpireReservations(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &SweepResult{
		OverdueMarked:       marked,
		ReservationsExpired: expired,
	}, append(overdueEvents, expiryEvents...), nil
}
