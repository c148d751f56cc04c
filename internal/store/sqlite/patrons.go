package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/store"
)

// patronColumns is the ordered list of columns selected in patron
// queries. Must match the scan order in scanPatron.
const patronColumns = `id, name, email, status, membership_expires_at,
	borrowing_limit, current_checkouts, total_checkouts, outstanding_fines,
	last_activity_at, created_at, updated_at`

func scanPatron(sc scanner) (*domain.Patron, error) {
	var p domain.Patron
	var (
		status         string
		expiresAt      sql.NullString
		fines          int64
		lastActivityAt sql.NullString
		createdAt      string
		updatedAt      string
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
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.MembershipStatus(status)
	p.OutstandingFines = domain.Cents(fines)

	if p.MembershipExpiresAt, err = parseNullableTime(expiresAt); err != nil {
		return nil, err
	}
	if p.LastActivityAt, err = parseNullableTime(lastActivityAt); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePatron inserts a new patron.
func (q *queries) CreatePatron(ctx context.Context, patron *domain.Patron) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO patrons (
			id, name, email, status, membership_expires_at,
			borrowing_limit, current_checkouts, total_checkouts, outstanding_fines,
			last_activity_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		patron.ID,
		patron.Name,
		patron.Email,
		string(patron.Status),
		nullTimeString(patron.MembershipExpiresAt),
		patron.BorrowingLimit,
		patron.CurrentCheckouts,
		patron.TotalCheckouts,
		int64(patron.OutstandingFines),
		nullTimeString(patron.LastActivityAt),
		formatTime(patron.CreatedAt),
		formatTime(patron.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create patron: %w", translateErr(err))
	}
	return nil
}

// GetPatron looks up a patron by ID.
func (q *queries) GetPatron(ctx context.Context, id string) (*domain.Patron, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+patronColumns+` FROM patrons WHERE id = ?`, id)

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
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+patronColumns+` FROM patrons ORDER BY name`)
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
	res, err := q.db.ExecContext(ctx, `
		UPDATE patrons SET
			name = ?, email = ?, status = ?, membership_expires_at = ?,
			borrowing_limit = ?, current_checkouts = ?, total_checkouts = ?,
			outstanding_fines = ?, last_activity_at = ?, updated_at = ?
		WHERE id = ?`,
		patron.Name,
		patron.Email,
		string(patron.Status),
		nullTimeString(patron.MembershipExpiresAt),
		patron.BorrowingLimit,
		patron.CurrentCheckouts,
		patron.TotalCheckouts,
		int64(patron.OutstandingFines),
		nullTimeString(patron.LastActivityAt),
		formatTime(patron.UpdatedAt),
		patron.ID,
	)
	if err != nil {
		return fmt.Errorf("update patron: %w", translateErr(err))
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
