package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/store"
)

const openStatuses = `('pending', 'available')`

const reservationColumns = `id, patron_id, book_isbn, reserved_at, expiration_date,
	notified_at, pickup_deadline, status, queue_position, notes, created_at, updated_at`

func scanReservation(sc scanner) (*domain.Reservation, error) {
	var r domain.Reservation
	var (
		reservedAt     string
		expirationDate string
		notifiedAt     sql.NullString
		pickupDeadline sql.NullString
		status         string
		createdAt      string
		updatedAt      string
	)

	err := sc.Scan(
		&r.ID,
		&r.PatronID,
		&r.BookISBN,
		&reservedAt,
		&expirationDate,
		&notifiedAt,
		&pickupDeadline,
		&status,
		&r.QueuePosition,
		&r.Notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = domain.ReservationStatus(status)

	if r.ReservedAt, err = parseTime(reservedAt); err != nil {
		return nil, err
	}
	if r.ExpirationDate, err = parseTime(expirationDate); err != nil {
		return nil, err
	}
	if r.NotifiedAt, err = parseNullableTime(notifiedAt); err != nil {
		return nil, err
	}
	if r.PickupDeadline, err = parseNullableTime(pickupDeadline); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReservation inserts a new hold. The partial unique index on
// (book_isbn, queue_position) rejects a position already claimed by an
// open reservation; callers see store.ErrAlreadyExists and retry.
func (q *queries) CreateReservation(ctx context.Context, reservation *domain.Reservation) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO reservations (
			id, patron_id, book_isbn, reserved_at, expiration_date,
			notified_at, pickup_deadline, status, queue_position, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reservation.ID,
		reservation.PatronID,
		reservation.BookISBN,
		formatTime(reservation.ReservedAt),
		formatTime(reservation.ExpirationDate),
		nullTimeString(reservation.NotifiedAt),
		nullTimeString(reservation.PickupDeadline),
		string(reservation.Status),
		reservation.QueuePosition,
		reservation.Notes,
		formatTime(reservation.CreatedAt),
		formatTime(reservation.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create reservation: %w", translateErr(err))
	}
	return nil
}

// GetReservation looks up a hold by ID.
func (q *queries) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)

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
	res, err := q.db.ExecContext(ctx, `
		UPDATE reservations SET
			expiration_date = ?, notified_at = ?, pickup_deadline = ?,
			status = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		formatTime(reservation.ExpirationDate),
		nullTimeString(reservation.NotifiedAt),
		nullTimeString(reservation.PickupDeadline),
		string(reservation.Status),
		reservation.Notes,
		formatTime(reservation.UpdatedAt),
		reservation.ID,
	)
	if err != nil {
		return fmt.Errorf("update reservation: %w", translateErr(err))
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
	return q.listReservations(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE book_isbn = ? AND status IN `+openStatuses+`
		ORDER BY queue_position`, isbn)
}

// OpenReservationForPatron returns the patron's open hold for a book.
func (q *queries) OpenReservationForPatron(ctx context.Context, patronID, isbn string) (*domain.Reservation, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE patron_id = ? AND book_isbn = ? AND status IN `+openStatuses,
		patronID, isbn)

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
	var max sql.NullInt64
	err := q.db.QueryRowContext(ctx, `
		SELECT MAX(queue_position) FROM reservations
		WHERE book_isbn = ? AND status IN `+openStatuses, isbn,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max queue position: %w", err)
	}
	return int(max.Int64), nil
}

// ListOpenReservations returns every open hold across all books.
func (q *queries) ListOpenReservations(ctx context.Context) ([]*domain.Reservation, error) {
	return q.listReservations(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE status IN `+openStatuses+`
		ORDER BY book_isbn, queue_position`)
}

func (q *queries) listReservations(ctx context.Context, query string, args ...any) ([]*domain.Reservation, error) {
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
