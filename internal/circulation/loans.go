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

// CheckoutRequest carries the inputs for a checkout. DueDate overrides
// the policy loan period when set; it may not lie in the past.
type CheckoutRequest struct {
	PatronID string
	BookISBN string
	DueDate  *time.Time
	Notes    string
}

// Checkout lends one copy of a book to a patron. Preconditions are
// checked in a fixed order and the first failure wins: patron exists,
// patron eligible, book exists, a copy is on the shelf, due date sane.
// All effects commit atomically or not at all. Checkout never touches
// the reservation queue.
func (e *Engine) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Checkout, []domain.Event, error) {
	var (
		checkout *domain.Checkout
		events   []domain.Event
	)
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		checkout, events, err = e.checkoutLocked(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	e.logEvents(events)
	return checkout, events, nil
}

// checkoutLocked performs the checkout inside an open transaction. It
// is shared with reservation fulfillment, which lends under the same
// rules in the same transaction as the hold state change.
func (e *Engine) checkoutLocked(ctx context.Context, tx store.Tx, req CheckoutRequest) (*domain.Checkout, []domain.Event, error) {
	now := e.clock.Now()
	today := e.clock.Today()

	patron, err := getPatron(ctx, tx, req.PatronID)
	if err != nil {
		return nil, nil, err
	}
	if err := e.checkEligibility(patron, today); err != nil {
		return nil, nil, err
	}

	book, err := getBook(ctx, tx, req.BookISBN)
	if err != nil {
		return nil, nil, err
	}
	if !book.TakeCopy() {
		return nil, nil, errors.BusinessRulef("no copies of %q available", book.ISBN)
	}

	dueDate := today.AddDate(0, 0, e.policy.LoanPeriodDays)
	if req.DueDate != nil {
		due := clock.Midnight(*req.DueDate)
		if due.Before(today) {
			return nil, nil, errors.Validationf("due date %s is in the past", due.Format("2006-01-02"))
		}
		dueDate = due
	}

	checkoutID, err := id.Generate(id.PrefixCheckout)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeInternal, "generate checkout id")
	}

	checkout := domain.NewCheckout(checkoutID, patron.ID, book.ISBN, now, dueDate)
	checkout.Notes = req.Notes

	if err := tx.CreateCheckout(ctx, checkout); err != nil {
		return nil, nil, storageErr("create checkout", err)
	}
	if err := tx.UpdateBook(ctx, book); err != nil {
		return nil, nil, storageErr("update book", err)
	}
	patron.RecordCheckout(now)
	if err := tx.UpdatePatron(ctx, patron); err != nil {
		return nil, nil, storageErr("update patron", err)
	}

	ev := domain.NewEvent(domain.EventBookCheckedOut, now)
	ev.PatronID = patron.ID
	ev.BookISBN = book.ISBN
	ev.CheckoutID = checkout.ID
	due := checkout.DueDate
	ev.DueDate = &due
	return checkout, []domain.Event{ev}, nil
}

// checkEligibility applies the composite borrow guard with a
// distinguishing message per rule. Checked fresh on every call.
func (e *Engine) checkEligibility(patron *domain.Patron, today time.Time) error {
	switch {
	case !patron.IsActive():
		return errors.BusinessRulef("patron %q membership inactive (status %s)", patron.ID, patron.Status)
	case patron.MembershipLapsed(today):
		return errors.BusinessRulef("patron %q membership expired on %s",
			patron.ID, patron.MembershipExpiresAt.Format("2006-01-02"))
	case patron.AtBorrowingLimit():
		return errors.BusinessRulef("patron %q borrowing limit reached (%d of %d)",
			patron.ID, patron.CurrentCheckouts, patron.BorrowingLimit)
	case patron.FinesBlockCheckout(e.policy.FineThreshold):
		return errors.BusinessRulef("patron %q fines exceed threshold (%s owed, limit %s)",
			patron.ID, patron.OutstandingFines, e.policy.FineThreshold)
	}
	return nil
}

// ReturnRequest carries the inputs for a return. An empty Condition
// defaults to "good".
type ReturnRequest struct {
	CheckoutID string
	Condition  domain.Condition
	Notes      string
}

// ReturnResult pairs the immutable return record with the completed
// checkout.
type ReturnResult struct {
	Return   *domain.Return   `json:"return"`
	Checkout *domain.Checkout `json:"checkout"`
}

// Return accepts a copy back. The fine is computed from the due date at
// return time whether or not the sweep flagged the loan overdue. When
// this return brings the available pool from zero to one, the
// lowest-position pending reservation is promoted to available; a pool
// that was already stocked promotes nothing.
func (e *Engine) Return(ctx context.Context, req ReturnRequest) (*ReturnResult, []domain.Event, error) {
	condition := req.Condition
	if condition == "" {
		condition = domain.DefaultCondition
	}
	if !domain.ValidConditions[condition] {
		return nil, nil, errors.Validationf("invalid condition %q", condition)
	}

	var (
		result *ReturnResult
		events []domain.Event
	)
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		now := e.clock.Now()
		today := e.clock.Today()

		checkout, err := getCheckout(ctx, tx, req.CheckoutID)
		if err != nil {
			return err
		}
		if !checkout.IsOnLoan() {
			return errors.BusinessRulef("checkout %q not active (status %s)", checkout.ID, checkout.Status)
		}

		patron, err := getPatron(ctx, tx, checkout.PatronID)
		if err != nil {
			return err
		}
		book, err := getBook(ctx, tx, checkout.BookISBN)
		if err != nil {
			return err
		}

		lateDays := checkout.LateDays(today)
		fine := domain.Cents(lateDays) * e.policy.FinePerDay

		returnID, err := id.Generate(id.PrefixReturn)
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "generate return id")
		}

		checkout.MarkReturned(fine, now)
		ret := domain.NewReturn(returnID, checkout, condition, lateDays, fine, req.Notes, now)

		if !book.ReturnCopy() {
			return errors.Internalf("book %q copy counters disagree with the ledger", book.ISBN)
		}
		patron.RecordReturn(fine, now)

		if err := tx.CreateReturn(ctx, ret); err != nil {
			return storageErr("create return", err)
		}
		if err := tx.UpdateCheckout(ctx, checkout); err != nil {
			return storageErr("update checkout", err)
		}
		if err := tx.UpdateBook(ctx, book); err != nil {
			return storageErr("update book", err)
		}
		if err := tx.UpdatePatron(ctx, patron); err != nil {
			return storageErr("update patron", err)
		}

		ev := domain.NewEvent(domain.EventBookReturned, now)
		ev.PatronID = patron.ID
		ev.BookISBN = book.ISBN
		ev.CheckoutID = checkout.ID
		ev.LateDays = lateDays
		events = []domain.Event{ev}

		if fine > 0 {
			fv := domain.NewEvent(domain.EventFineAssessed, now)
			fv.PatronID = patron.ID
			fv.CheckoutID = checkout.ID
			fv.LateDays = lateDays
			fv.Amount = fine
			events = append(events, fv)
		}

		if book.AvailableCopies == 1 {
			promoted, err := e.promoteNextHold(ctx, tx, book.ISBN, now, today)
			if err != nil {
				return err
			}
			if promoted != nil {
				events = append(events, *promoted)
			}
		}

		result = &ReturnResult{Return: ret, Checkout: checkout}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.logEvents(events)
	return result, events, nil
}

// promoteNextHold moves the front pending reservation to available.
// Called only on the 0→1 copy transition; at most one hold per return.
func (e *Engine) promoteNextHold(ctx context.Context, tx store.Tx, isbn string, now, today time.Time) (*domain.Event, error) {
	queue, err := tx.QueueForBook(ctx, isbn)
	if err != nil {
		return nil, storageErr("reservation queue", err)
	}
	for _, hold := range queue {
		if !hold.CanNotify() {
			continue
		}
		hold.MarkAvailable(now, today.AddDate(0, 0, e.policy.PickupWindowDays))
		if err := tx.UpdateReservation(ctx, hold); err != nil {
			return nil, storageErr("update reservation", err)
		}

		ev := domain.NewEvent(domain.EventReservationAvailable, now)
		ev.PatronID = hold.PatronID
		ev.BookISBN = hold.BookISBN
		ev.ReservationID = hold.ID
		ev.QueuePosition = hold.QueuePosition
		ev.PickupDeadline = hold.PickupDeadline
		return &ev, nil
	}
	return nil, nil
}

// Renew extends an active loan. Fails when renewals are exhausted, the
// loan is past due, or another patron is queued for the book. Renewal
// deliberately ignores the patron's outstanding fines; fines gate new
// checkouts, not extensions of existing ones.
func (e *Engine) Renew(ctx context.Context, checkoutID string, extensionDays int) (*domain.Checkout, []domain.Event, error) {
	if extensionDays < 0 {
		return nil, nil, errors.Validationf("extension days must be positive, got %d", extensionDays)
	}
	if extensionDays == 0 {
		extensionDays = e.policy.LoanPeriodDays
	}

	var (
		checkout *domain.Checkout
		events   []domain.Event
	)
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		now := e.clock.Now()
		today := e.clock.Today()

		var err error
		checkout, err = getCheckout(ctx, tx, checkoutID)
		if err != nil {
			return err
		}
		if !checkout.IsOnLoan() {
			return errors.BusinessRulef("checkout %q not active (status %s)", checkout.ID, checkout.Status)
		}
		if checkout.RenewalsExhausted(e.policy.MaxRenewals) {
			return errors.BusinessRulef("maximum renewal limit (%d) reached", e.policy.MaxRenewals)
		}
		if checkout.Status == domain.CheckoutOverdue || checkout.IsPastDue(today) {
			return errors.BusinessRulef("cannot renew overdue checkout %q", checkout.ID)
		}

		queue, err := tx.QueueForBook(ctx, checkout.BookISBN)
		if err != nil {
			return storageErr("reservation queue", err)
		}
		for _, hold := range queue {
			if hold.Status == domain.ReservationPending && hold.PatronID != checkout.PatronID {
				return errors.BusinessRulef("cannot renew: other patrons are waiting for %q", checkout.BookISBN)
			}
		}

		checkout.Renew(extensionDays, now)
		if err := tx.UpdateCheckout(ctx, checkout); err != nil {
			return storageErr("update checkout", err)
		}

		ev := domain.NewEvent(domain.EventCheckoutRenewed, now)
		ev.PatronID = checkout.PatronID
		ev.BookISBN = checkout.BookISBN
		ev.CheckoutID = checkout.ID
		due := checkout.DueDate
		ev.DueDate = &due
		events = []domain.Event{ev}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.logEvents(events)
	return checkout, events, nil
}
