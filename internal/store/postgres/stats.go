package postgres

import (
	"context"
	"fmt"

	"github.com/openshelf/openshelf-server/internal/domain"
)

// CirculationStats computes the aggregate snapshot in one pass per
// table. Plain SQL here; goqu buys nothing for fixed aggregates.
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
			COUNT(*) FILTER (WHERE status = 'active'),
			COALESCE(SUM(outstanding_fines), 0)
		FROM patrons`,
	).Scan(&s.TotalPatrons, &s.ActivePatrons, &outstandingFines)
	if err != nil {
		return nil, fmt.Errorf("stats: patrons: %w", err)
	}

	err = q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('active', 'overdue')),
			COUNT(*) FILTER (WHERE status = 'overdue')
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
		SELECT COUNT(*) FROM reservations WHERE status IN ('pending', 'available')`,
	).Scan(&s.OpenReservations)
	if err != nil {
		return nil, fmt.Errorf("stats: reservations: %w", err)
	}

	s.OutstandingFines = domain.Cents(outstandingFines)
	s.FinesAssessed = domain.Cents(finesAssessed)
	return &s, nil
}
