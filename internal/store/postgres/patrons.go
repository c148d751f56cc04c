package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/store"
)

// patronColumns is the ordered column list for patron selects.
// Must match the scan order in scanPatron.
var patronColumns = []any{
	"id", "name", "email", "status", "membership_expires_at",
	"borrowing_limit", "current_checkouts", "total_checkouts", "outstanding_fines",
	"last_activity_at", "created_at", "updated_at",
}

func patronSelect() *goqu.SelectDataset {
	return builder.From("patrons").Select(patronColumns...).Prepared(true)
}

func scanPatron(sc scanner) (*domain.Patron, error) {
	var p domain.Patron
	var (
		status         string
		expiresAt      sql.NullTime
		fines          int64
		lastActivityAt sql.NullTime
	)

	err := sc.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&status,
		&expiresAt,
		&p.BorrowingLimit,
		&p.CurrentCheckouts,
		&p.TotalCheckouts,
		&fines,
		&lastActivityAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.MembershipStatus(status)
	p.OutstandingFines = domain.Cents(fines)
	p.MembershipExpiresAt = nullableTime(expiresAt)
	p.LastActivityAt = nullableTime(lastActivityAt)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// CreatePatron inserts a new patron.
func (q *queries) CreatePatron(ctx context.Context, patron *domain.Patron) error {
	ds := builder.Insert("patrons").Rows(goqu.Record{
		"id":                    patron.ID,
		"name":                  patron.Name,
		"email":                 patron.Email,
		"status":                string(patron.Status),
		"membership_expires_at": patron.MembershipExpiresAt,
		"borrowing_limit":       patron.BorrowingLimit,
		"current_checkouts":     patron.CurrentCheckouts,
		"total_checkouts":       patron.TotalCheckouts,
		"outstanding_fines":     int64(patron.OutstandingFines),
		"last_activity_at":      patron.LastActivityAt,
		"created_at":            patron.CreatedAt,
		"updated_at":            patron.UpdatedAt,
	}).Prepared(true)

	if _, err := q.exec(ctx, "create patron", ds); err != nil {
		return err
	}
	return nil
}

// GetPatron looks up a patron by ID. Inside a transaction the patron
// row is locked for the life of the transaction.
func (q *queries) GetPatron(ctx context.Context, id string) (*domain.Patron, error) {
	ds := patronSelect().Where(goqu.C("id").Eq(id))
	if q.forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}

	row, err := q.queryRow(ctx, "get patron", ds)
	if err != nil {
		return nil, err
	}
	patron, err := scanPatron(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patron %q: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get patron: %w", err)
	}
	return patron, nil
}

// ListPatrons returns all patrons ordered by name.
func (q *queries) ListPatrons(ctx context.Context) ([]*domain.Patron, error) {
	ds := patronSelect().Order(goqu.C("name").Asc())

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("list patrons: build query: %w", err)
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list patrons: %w", err)
	}
	defer rows.Close()

	var patrons []*domain.Patron
	for rows.Next() {
		patron, err := scanPatron(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patron: %w", err)
		}
		patrons = append(patrons, patron)
	}
	return patrons, rows.Err()
}

// UpdatePatron persists counter and attribute changes. The schema's
// CHECK on current_checkouts and outstanding_fines surfaces racing
// counter updates as ErrConflict.
func (q *queries) UpdatePatron(ctx context.Context, patron *domain.Patron) error {
	ds := builder.Update("patrons").Set(goqu.Record{
		"name":                  patron.Name,
		"email":                 patron.Email,
		"status":                string(patron.Status),
		"membership_expires_at": patron.MembershipExpiresAt,
		"borrowing_limit":       patron.BorrowingLimit,
		"current_checkouts":     patron.CurrentCheckouts,
		"total_checkouts":       patron.TotalCheckouts,
		"outstanding_fines":     int64(patron.OutstandingFines),
		"last_activity_at":      patron.LastActivityAt,
		"updated_at":            patron.UpdatedAt,
	}).Where(goqu.C("id").Eq(patron.ID)).Prepared(true)

	res, err := q.exec(ctx, "update patron", ds)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update patron: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("patron %q: %w", patron.ID, store.ErrNotFound)
	}
	return nil
}
