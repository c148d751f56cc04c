package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/store"
)

// onLoanStatuses matches loans still out with a patron. Overdue loans
// are active loans the sweep has flagged; both count as on loan.
var onLoanStatuses = []string{
	string(domain.CheckoutActive),
	string(domain.CheckoutOverdue),
}

// checkoutColumns is the ordered column list for checkout selects.
// Must match the scan order in scanCheckout.
var checkoutColumns = []any{
	"id", "patron_id", "book_isbn", "checked_out_at", "due_date", "returned_at",
	"status", "renewal_count", "fine_amount", "fine_paid", "notes", "created_at", "updated_at",
}

func checkoutSelect() *goqu.SelectDataset {
	return builder.From("checkouts").Select(checkoutColumns...).Prepared(true)
}

func scanCheckout(sc scanner) (*domain.Checkout, error) {
	var c domain.Checkout
	var (
		returnedAt sql.NullTime
		status     string
		fineAmount int64
	)

	err := sc.Scan(
		&c.ID,
		&c.PatronID,
		&c.BookISBN,
		&c.CheckedOutAt,
		&c.DueDate,
		&returnedAt,
		&status,
		&c.RenewalCount,
		&fineAmount,
		&c.FinePaid,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Status = domain.CheckoutStatus(status)
	c.FineAmount = domain.Cents(fineAmount)
	c.ReturnedAt = nullableTime(returnedAt)
	c.CheckedOutAt = c.CheckedOutAt.UTC()
	c.DueDate = c.DueDate.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

// CreateCheckout inserts a new loan record.
func (q *queries) CreateCheckout(ctx context.Context, checkout *domain.Checkout) error {
	ds := builder.Insert("checkouts").Rows(goqu.Record{
		"id":             checkout.ID,
		"patron_id":      checkout.PatronID,
		"book_isbn":      checkout.BookISBN,
		"checked_out_at": checkout.CheckedOutAt,
		"due_date":       checkout.DueDate,
		"returned_at":    checkout.ReturnedAt,
		"status":         string(checkout.Status),
		"renewal_count":  checkout.RenewalCount,
		"fine_amount":    int64(checkout.FineAmount),
		"fine_paid":      checkout.FinePaid,
		"notes":          checkout.Notes,
		"created_at":     checkout.CreatedAt,
		"updated_at":     checkout.UpdatedAt,
	}).Prepared(true)

	if _, err := q.exec(ctx, "create checkout", ds); err != nil {
		return err
	}
	return nil
}

// GetCheckout looks up a loan by ID. Inside a transaction the row is
// locked for the life of the transaction.
func (q *queries) GetCheckout(ctx context.Context, id string) (*domain.Checkout, error) {
	ds := checkoutSelect().Where(goqu.C("id").Eq(id))
	if q.forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}

	row, err := q.queryRow(ctx, "get checkout", ds)
	if err != nil {
		return nil, err
	}
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
	ds := builder.Update("checkouts").Set(goqu.Record{
		"due_date":      checkout.DueDate,
		"returned_at":   checkout.ReturnedAt,
		"status":        string(checkout.Status),
		"renewal_count": checkout.RenewalCount,
		"fine_amount":   int64(checkout.FineAmount),
		"fine_paid":     checkout.FinePaid,
		"notes":         checkout.Notes,
		"updated_at":    checkout.UpdatedAt,
	}).Where(goqu.C("id").Eq(checkout.ID)).Prepared(true)

	res, err := q.exec(ctx, "update checkout", ds)
	if err != nil {
		return err
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
	ds := checkoutSelect().
		Where(goqu.C("patron_id").Eq(patronID), goqu.C("status").In(onLoanStatuses)).
		Order(goqu.C("checked_out_at").Asc())
	return q.listCheckouts(ctx, ds)
}

// ActiveCheckoutsForBook returns loans still out for one book.
func (q *queries) ActiveCheckoutsForBook(ctx context.Context, isbn string) ([]*domain.Checkout, error) {
	ds := checkoutSelect().
		Where(goqu.C("book_isbn").Eq(isbn), goqu.C("status").In(onLoanStatuses)).
		Order(goqu.C("checked_out_at").Asc())
	return q.listCheckouts(ctx, ds)
}

// ListActiveCheckouts returns every loan still out across all patrons,
// most recently issued first.
func (q *queries) ListActiveCheckouts(ctx context.Context) ([]*domain.Checkout, error) {
	ds := checkoutSelect().
		Where(goqu.C("status").In(onLoanStatuses)).
		Order(goqu.C("checked_out_at").Desc())
	return q.listCheckouts(ctx, ds)
}

// ListCheckoutsDueBefore returns active loans due strictly before
// cutoff. Already-flagged overdue loans are excluded so the sweep stays
// idempotent.
func (q *queries) ListCheckoutsDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.Checkout, error) {
	ds := checkoutSelect().
		Where(
			goqu.C("status").Eq(string(domain.CheckoutActive)),
			goqu.C("due_date").Lt(cutoff),
		).
		Order(goqu.C("due_date").Asc())
	return q.listCheckouts(ctx, ds)
}

func (q *queries) listCheckouts(ctx context.Context, ds *goqu.SelectDataset) ([]*domain.Checkout, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("list checkouts: build query: %w", err)
	}
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
	ds := builder.Insert("returns").Rows(goqu.Record{
		"id":            ret.ID,
		"checkout_id":   ret.CheckoutID,
		"patron_id":     ret.PatronID,
		"book_isbn":     ret.BookISBN,
		"returned_at":   ret.ReturnedAt,
		"condition":     string(ret.Condition),
		"late_days":     ret.LateDays,
		"fine_assessed": int64(ret.FineAssessed),
		"fine_paid":     int64(ret.FinePaid),
		"notes":         ret.Notes,
		"created_at":    ret.CreatedAt,
	}).Prepared(true)

	if _, err := q.exec(ctx, "create return", ds); err != nil {
		return err
	}
	return nil
}

// GetReturnForCheckout looks up the return record of a completed loan.
func (q *queries) GetReturnForCheckout(ctx context.Context, checkoutID string) (*domain.Return, error) {
	ds := builder.From("returns").
		Select("id", "checkout_id", "patron_id", "book_isbn", "returned_at", "condition",
			"late_days", "fine_assessed", "fine_paid", "notes", "created_at").
		Where(goqu.C("checkout_id").Eq(checkoutID)).
		Prepared(true)

	row, err := q.queryRow(ctx, "get return", ds)
	if err != nil {
		return nil, err
	}

	var r domain.Return
	var (
		condition string
		assessed  int64
		paid      int64
	)
	err = row.Scan(
		&r.ID,
		&r.CheckoutID,
		&r.PatronID,
		&r.BookISBN,
		&r.ReturnedAt,
		&condition,
		&r.LateDays,
		&assessed,
		&paid,
		&r.Notes,
		&r.CreatedAt,
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
	r.ReturnedAt = r.ReturnedAt.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}
