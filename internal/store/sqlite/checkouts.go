package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/store"
)

// onLoanStatuses matches loans still out with a patron. Overdue loans
// are active loans the sweep has flagged; both count as on loan.
const onLoanStatuses = `('active', 'overdue')`

const checkoutColumns = `id, patron_id, book_isbn, checked_out_at, due_date, returned_at,
	status, renewal_count, fine_amount, fine_paid, notes, created_at, updated_at`

func scanCheckout(sc scanner) (*domain.Checkout, error) {
	var c domain.Checkout
	var (
		checkedOutAt string
		dueDate      string
		returnedAt   sql.NullString
		status       string
		fineAmount   int64
		finePaid     int
		createdAt    string
		updatedAt    string
	)

	err := sc.Scan(
		&c.ID,
		&c.PatronID,
		&c.BookISBN,
		&checkedOutAt,
		&dueDate,
		&returnedAt,
		&status,
		&c.RenewalCount,
		&fineAmount,
		&finePaid,
		&c.Notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Status = domain.CheckoutStatus(status)
	c.FineAmount = domain.Cents(fineAmount)
	c.FinePaid = finePaid != 0

	if c.CheckedOutAt, err = parseTime(checkedOutAt); err != nil {
		return nil, err
	}
	if c.DueDate, err = parseTime(dueDate); err != nil {
		return nil, err
	}
	if c.ReturnedAt, err = parseNullableTime(returnedAt); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCheckout inserts a new loan record.
func (q *queries) CreateCheckout(ctx context.Context, checkout *domain.Checkout) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO checkouts (
			id, patron_id, book_isbn, checked_out_at, due_date, returned_at,
			status, renewal_count, fine_amount, fine_paid, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		checkout.ID,
		checkout.PatronID,
		checkout.BookISBN,
		formatTime(checkout.CheckedOutAt),
		formatTime(checkout.DueDate),
		nullTimeString(checkout.ReturnedAt),
		string(checkout.Status),
		checkout.RenewalCount,
		int64(checkout.FineAmount),
		boolToInt(checkout.FinePaid),
		checkout.Notes,
		formatTime(checkout.CreatedAt),
		formatTime(checkout.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create checkout: %w", translateErr(err))
	}
	return nil
}

// GetCheckout looks up a loan by ID.
func (q *queries) GetCheckout(ctx context.Context, id string) (*domain.Checkout, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+checkoutColumns+` FROM checkouts WHERE id = ?`, id)

	checkout, err := scanCheckout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checkout %q: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get checkout: %w", err)
	}
	return checkout, nil
}

// UpdateCheckout persists loan state changes.
func (q *queries) UpdateCheckout(ctx context.Context, checkout *domain.Checkout) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE checkouts SET
			due_date = ?, returned_at = ?, status = ?, renewal_count = ?,
			fine_amount = ?, fine_paid = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		formatTime(checkout.DueDate),
		nullTimeString(checkout.ReturnedAt),
		string(checkout.Status),
		checkout.RenewalCount,
		int64(checkout.FineAmount),
		boolToInt(checkout.FinePaid),
		checkout.Notes,
		formatTime(checkout.UpdatedAt),
		checkout.ID,
	)
	if err != nil {
		return fmt.Errorf("update checkout: %w", translateErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update checkout: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("checkout %q: %w", checkout.ID, store.ErrNotFound)
	}
	return nil
}

// ActiveCheckoutsForPatron returns loans still out for one patron,
// oldest first.
func (q *queries) ActiveCheckoutsForPatron(ctx context.Context, patronID string) ([]*domain.Checkout, error) {
	return q.listCheckouts(ctx, `
		SELECT `+checkoutColumns+` FROM checkouts
		WHERE patron_id = ? AND status IN `+onLoanStatuses+`
		ORDER BY checked_out_at`, patronID)
}

// ActiveCheckoutsForBook returns loans still out for one book.
func (q *queries) ActiveCheckoutsForBook(ctx context.Context, isbn string) ([]*domain.Checkout, error) {
	return q.listCheckouts(ctx, `
		SELECT `+checkoutColumns+` FROM checkouts
		WHERE book_isbn = ? AND status IN `+onLoanStatuses+`
		ORDER BY checked_out_at`, isbn)
}

// ListActiveCheckouts returns every loan still out across all patrons,
// most recently issued first.
func (q *queries) ListActiveCheckouts(ctx context.Context) ([]*domain.Checkout, error) {
	return q.listCheckouts(ctx, `
		SELECT `+checkoutColumns+` FROM checkouts
		WHERE status IN `+onLoanStatuses+`
		ORDER BY checked_out_at DESC`)
}

// ListCheckoutsDueBefore returns active loans due strictly before
// cutoff. Already-flagged overdue loans are excluded so the sweep stays
// idempotent.
func (q *queries) ListCheckoutsDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.Checkout, error) {
	return q.listCheckouts(ctx, `
		SELECT `+checkoutColumns+` FROM checkouts
		WHERE status = 'active' AND due_date < ?
		ORDER BY due_date`, formatTime(cutoff))
}

func (q *queries) listCheckouts(ctx context.Context, query string, args ...any) ([]*domain.Checkout, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list checkouts: %w", err)
	}
	defer rows.Close()

	var checkouts []*domain.Checkout
	for rows.Next() {
		checkout, err := scanCheckout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkout: %w", err)
		}
		checkouts = append(checkouts, checkout)
	}
	return checkouts, rows.Err()
}

// CreateReturn inserts the immutable return record for a checkout.
// The UNIQUE constraint on checkout_id enforces exactly-one-per-loan.
func (q *queries) CreateReturn(ctx context.Context, ret *domain.Return) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO returns (
			id, checkout_id, patron_id, book_isbn, returned_at, condition,
			late_days, fine_assessed, fine_paid, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ret.ID,
		ret.CheckoutID,
		ret.PatronID,
		ret.BookISBN,
		formatTime(ret.ReturnedAt),
		string(ret.Condition),
		ret.LateDays,
		int64(ret.FineAssessed),
		int64(ret.FinePaid),
		ret.Notes,
		formatTime(ret.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create return: %w", translateErr(err))
	}
	return nil
}

// GetReturnForCheckout looks up the return record of a completed loan.
func (q *queries) GetReturnForCheckout(ctx context.Context, checkoutID string) (*domain.Return, error) {
	var r domain.Return
	var (
		returnedAt string
		condition  string
		assessed   int64
		paid       int64
		createdAt  string
	)

	err := q.db.QueryRowContext(ctx, `
		SELECT id, checkout_id, patron_id, book_isbn, returned_at, condition,
			late_days, fine_assessed, fine_paid, notes, created_at
		FROM returns WHERE checkout_id = ?`, checkoutID,
	).Scan(
		&r.ID,
		&r.CheckoutID,
		&r.PatronID,
		&r.BookISBN,
		&returnedAt,
		&condition,
		&r.LateDays,
		&assessed,
		&paid,
		&r.Notes,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("return for checkout %q: %w", checkoutID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get return: %w", err)
	}

	r.Condition = domain.Condition(condition)
	r.FineAssessed = domain.Cents(assessed)
	r.FinePaid = domain.Cents(paid)

	if r.ReturnedAt, err = parseTime(returnedAt); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &r, nil
}
