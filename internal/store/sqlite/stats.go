package sqlite

import (
	"context"
	"fmt"

	"github.com/openshelf/openshelf-server/internal/domain"
)

// CirculationStats computes the aggregate snapshot in one pass per
// table. All counts come from committed state; inside a transaction
// they include the transaction's own writes.
func (q *queries) CirculationStats(ctx context.Context) (*domain.CirculationStats, error) {
	var s domain.CirculationStats
	var outstandingFines, finesAssessed int64

	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_copies), 0), COALESCE(SUM(available_copies), 0)
		FROM books`,
	).Scan(&s.TotalBooks, &s.TotalCopies, &s.AvailableCopies)
	if err != nil {
		return nil, fmt.Errorf("stats: books: %w", err)
	}

	err = q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(outstanding_fines), 0)
		FROM patrons`,
	).Scan(&s.TotalPatrons, &s.ActivePatrons, &outstandingFines)
	if err != nil {
		return nil, fmt.Errorf("stats: patrons: %w", err)
	}

	err = q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status IN `+onLoanStatuses+` THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'overdue' THEN 1 ELSE 0 END), 0)
		FROM checkouts`,
	).Scan(&s.TotalCheckouts, &s.ActiveCheckouts, &s.OverdueCheckouts)
	if err != nil {
		return nil, fmt.Errorf("stats: checkouts: %w", err)
	}

	err = q.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(fine_assessed), 0) FROM returns`,
	).Scan(&s.TotalReturns, &finesAssessed)
	if err != nil {
		return nil, fmt.Errorf("stats: returns: %w", err)
	}

	err = q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations WHERE status IN `+openStatuses,
	).Scan(&s.OpenReservations)
	if err != nil {
		return nil, fmt.Errorf("stats: reservations: %w", err)
	}

	s.OutstandingFines = domain.Cents(outstandingFines)
	s.FinesAssessed = domain.Cents(finesAssessed)
	return &s, nil
}
