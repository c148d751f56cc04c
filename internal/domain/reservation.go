package domain

import "time"

// ReservationStatus represents the state of a hold in the queue.
type ReservationStatus string

const (
	// ReservationPending holds are waiting in the queue.
	ReservationPending ReservationStatus = "pending"
	// ReservationAvailable holds have a copy waiting; the patron was
	// notified and must collect before the pickup deadline.
	ReservationAvailable ReservationStatus = "available"
	// ReservationFulfilled holds were collected. Terminal.
	ReservationFulfilled ReservationStatus = "fulfilled"
	// ReservationCancelled holds were withdrawn. Terminal.
	ReservationCancelled ReservationStatus = "cancelled"
	// ReservationExpired holds lapsed before collection.
	ReservationExpired ReservationStatus = "expired"
)

// Reservation is one patron's place in a book's hold queue. Positions
// start at 1, are unique per book among open reservations, and are
// never renumbered; cancellations leave gaps.
type Reservation struct {
	ID       string `json:"id"`
	PatronID string `json:"patron_id"`
	BookISBN string `json:"book_isbn"`

	ReservedAt     time.Time  `json:"reserved_at"`
	ExpirationDate time.Time  `json:"expiration_date"`
	NotifiedAt     *time.Time `json:"notified_at,omitempty"`
	PickupDeadline *time.Time `json:"pickup_deadline,omitempty"`

	Status        ReservationStatus `json:"status"`
	QueuePosition int               `json:"queue_position"`

	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewReservation creates a pending hold at the given queue position.
func NewReservation(id, patronID, bookISBN string, position int, now, expiration time.Time) *Reservation {
	return &Reservation{
		ID:             id,
		PatronID:       patronID,
		BookISBN:       bookISBN,
		ReservedAt:     now,
		ExpirationDate: expiration,
		Status:         ReservationPending,
		QueuePosition:  position,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsOpen reports whether the hold still occupies a queue position.
func (r *Reservation) IsOpen() bool {
	return r.Status == ReservationPending || r.Status == ReservationAvailable
}

// CanNotify reports whether the hold may advance to Available.
// Legal only from Pending.
func (r *Reservation) CanNotify() bool {
	return r.Status == ReservationPending
}

// CanFulfill reports whether the hold may be collected.
// Legal only from Available.
func (r *Reservation) CanFulfill() bool {
	return r.Status == ReservationAvailable
}

// CanCancel reports whether the hold may be withdrawn.
// Legal from Pending or Available; Fulfilled and Cancelled are terminal.
func (r *Reservation) CanCancel() bool {
	return r.IsOpen()
}

// HasLapsed reports the derived expiry property: an Available hold past
// its pickup deadline, or an open hold without a deadline past its
// expiration date. Fulfilled and Cancelled holds never lapse. The sweep
// turns lapsed holds into status Expired; until then the stored status
// still reads Pending or Available.
func (r *Reservation) HasLapsed(today time.Time) bool {
	switch r.Status {
	case ReservationAvailable:
		if r.PickupDeadline != nil {
			return today.After(*r.PickupDeadline)
		}
		return today.After(r.ExpirationDate)
	case ReservationPending:
		return today.After(r.ExpirationDate)
	default:
		return false
	}
}

// MarkAvailable advances the hold to Available with its pickup deadline.
func (r *Reservation) MarkAvailable(now time.Time, pickupDeadline time.Time) {
	t := now
	d := pickupDeadline
	r.Status = ReservationAvailable
	r.NotifiedAt = &t
	r.PickupDeadline = &d
	r.UpdatedAt = now
}

// MarkFulfilled records collection of the held copy.
func (r *Reservation) MarkFulfilled(now time.Time) {
	r.Status = ReservationFulfilled
	r.UpdatedAt = now
}

// MarkCancelled withdraws the hold. Its queue position is not reused.
func (r *Reservation) MarkCancelled(now time.Time) {
	r.Status = ReservationCancelled
	r.UpdatedAt = now
}

// MarkExpired records that the hold lapsed.
func (r *Reservation) MarkExpired(now time.Time) {
	r.Status = ReservationExpired
	r.UpdatedAt = now
}
