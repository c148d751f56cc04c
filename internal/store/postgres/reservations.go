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

// openStatuses matches holds still occupying a queue position.
var openStatuses = []string{
	string(domain.ReservationPending),
	string(domain.ReservationAvailable),
}

// reservationColumns is the ordered column list for reservation
// selects. Must match the scan order in scanReservation.
var reservationColumns = []any{
	"id", "patron_id", "book_isbn", "reserved_at", "expiration_date",
	"notified_at", "pickup_deadline", "status", "queue_position", "notes",
	"created_at", "updated_at",
}

func reservationSelect() *goqu.SelectDataset {
	return builder.From("reservations").Select(reservationColumns...).Prepared(true)
}

func scanReservation(sc scanner) (*domain.Reservation, error) {
	var r domain.Reservation
	var (
		notifiedAt     sql.NullTime
		pickupDeadline sql.NullTime
		status         string
	)

	err := sc.Scan(
		&r.ID,
		&r.PatronID,
		&r.BookISBN,
		&r.ReservedAt,
		&r.ExpirationDate,
		&notifiedAt,
		&pickupDeadline,
		&status,
		&r.QueuePosition,
		&r.Notes,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = domain.ReservationStatus(status)
	r.NotifiedAt = nullableTime(notifiedAt)
	r.PickupDeadline = nullableTime(pickupDeadline)
	r.ReservedAt = r.ReservedAt.UTC()
	r.ExpirationDate = r.ExpirationDate.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

// CreateReservation inserts a new hold. The partial unique index on
// (book_isbn, queue_position) rejects a position already claimed by an
// open reservation; callers see store.ErrAlreadyExists and retry.
func (q *queries) CreateReservation(ctx context.Context, reservation *domain.Reservation) error {
	ds := builder.Insert("reservations").Rows(goqu.Record{
		"id":              reservation.ID,
		"patron_id":       reservation.PatronID,
		"book_isbn":       reservation.BookISBN,
		"reserved_at":     reservation.ReservedAt,
		"expiration_date": reservation.ExpirationDate,
		"notified_at":     reservation.NotifiedAt,
		"pickup_deadline": reservation.PickupDeadline,
		"status":          string(reservation.Status),
		"queue_position":  reservation.QueuePosition,
		"notes":           reservation.Notes,
		"created_at":      reservation.CreatedAt,
		"updated_at":      reservation.UpdatedAt,
	}).Prepared(true)

	if _, err := q.exec(ctx, "create reservation", ds); err != nil {
		return err
	}
	return nil
}

// GetReservation looks up a hold by ID. Inside a transaction the row
// is locked for the life of the transaction.
func (q *queries) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	ds := reservationSelect().Where(goqu.C("id").Eq(id))
	if q.forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}

	row, err := q.queryRow(ctx, "get reservation", ds)
	if err != nil {
		return nil, err
	}
	reservation, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reservation %q: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return reservation, nil
}

// UpdateReservation persists hold state changes.
func (q *queries) UpdateReservation(ctx context.Context, reservation *domain.Reservation) error {
	ds := builder.Update("reservations").Set(goqu.Record{
		"expiration_date": reservation.ExpirationDate,
		"notified_at":     reservation.NotifiedAt,
		"pickup_deadline": reservation.PickupDeadline,
		"status":          string(reservation.Status),
		"notes":           reservation.Notes,
		"updated_at":      reservation.UpdatedAt,
	}).Where(goqu.C("id").Eq(reservation.ID)).Prepared(true)

	res, err := q.exec(ctx, "update reservation", ds)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reservation: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("reservation %q: %w", reservation.ID, store.ErrNotFound)
	}
	return nil
}

// QueueForBook returns the open reservations for a book ordered by
// queue position. Gaps from cancellations are expected and preserved.
func (q *queries) QueueForBook(ctx context.Context, isbn string) ([]*domain.Reservation, error) {
	ds := reservationSelect().
		Where(goqu.C("book_isbn").Eq(isbn), goqu.C("status").In(openStatuses)).
		Order(goqu.C("queue_position").Asc())
	return q.listReservations(ctx, ds)
}

// OpenReservationForPatron returns the patron's open hold for a book.
func (q *queries) OpenReservationForPatron(ctx context.Context, patronID, isbn string) (*domain.Reservation, error) {
	ds := reservationSelect().Where(
		goqu.C("patron_id").Eq(patronID),
		goqu.C("book_isbn").Eq(isbn),
		goqu.C("status").In(openStatuses),
	)

	row, err := q.queryRow(ctx, "get open reservation", ds)
	if err != nil {
		return nil, err
	}
	reservation, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reservation for patron %q on %q: %w", patronID, isbn, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get open reservation: %w", err)
	}
	return reservation, nil
}

// MaxQueuePosition returns the highest queue position still occupied by
// an open hold (pending or available), 0 when the queue is empty. Both
// statuses count: a promoted hold keeps its position until it is
// fulfilled, cancelled, or expired.
func (q *queries) MaxQueuePosition(ctx context.Context, isbn string) (int, error) {
	ds := builder.From("reservations").
		Select(goqu.MAX("queue_position")).
		Where(
			goqu.C("book_isbn").Eq(isbn),
			goqu.C("status").In(openStatuses),
		).
		Prepared(true)

	row, err := q.queryRow(ctx, "max queue position", ds)
	if err != nil {
		return 0, err
	}
	var max sql.NullInt64
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("max queue position: %w", err)
	}
	return int(max.Int64), nil
}

// ListOpenReservations returns every open hold across all books.
func (q *queries) ListOpenReservations(ctx context.Context) ([]*domain.Reservation, error) {
	ds := reservationSelect().
		Where(goqu.C("status").In(openStatuses)).
		Order(goqu.C("book_isbn").Asc(), goqu.C("queue_position").Asc())
	return q.listReservations(ctx, ds)
}

func (q *queries) listReservations(ctx context.Context, ds *goqu.SelectDataset) ([]*domain.Reservation, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("list reservations: build query: %w", err)
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*domain.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, reservation)
	}
	return reservations, rows.Err()
}
