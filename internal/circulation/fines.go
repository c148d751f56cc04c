package circulation

import (
	"context"

	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/errors"
	"github.com/openshelf/openshelf-server/internal/store"
)

// PayFine applies a payment against a patron's outstanding fines. The
// balance floors at zero; overpayment is not an error and the event
// carries the amount actually applied.
func (e *Engine) PayFine(ctx context.Context, patronID string, amount domain.Cents) (*domain.Patron, []domain.Event, error) {
	if amount <= 0 {
		return nil, nil, errors.Validationf("payment amount must be positive, got %s", amount)
	}

	var (
		patron *domain.Patron
		events []domain.Event
	)
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		now := e.clock.Now()

		var err error
		patron, err = getPatron(ctx, tx, patronID)
		if err != nil {
			return err
		}

		applied := patron.PayFine(amount, now)
		if err := tx.UpdatePatron(ctx, patron); err != nil {
			return storageErr("update patron", err)
		}

		ev := domain.NewEvent(domain.EventFinePaid, now)
		ev.PatronID = patron.ID
		ev.Amount = applied
		events = []domain.Event{ev}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.logEvents(events)
	return patron, events, nil
}
