package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType discriminates circulation events.
type EventType string

const (
	// EventBookCheckedOut is emitted for every successful checkout,
	// including the one inside a reservation fulfillment.
	EventBookCheckedOut EventType = "book_checked_out"

	// EventBookReturned is emitted when a return completes a checkout.
	EventBookReturned EventType = "book_returned"

	// EventCheckoutRenewed is emitted when a renewal extends a due date.
	EventCheckoutRenewed EventType = "checkout_renewed"

	// EventFineAssessed is emitted when a late return adds to a patron's
	// outstanding fines.
	EventFineAssessed EventType = "fine_assessed"

	// EventFinePaid is emitted when a payment reduces outstanding fines.
	EventFinePaid EventType = "fine_paid"

	// EventReservationQueued is emitted when a hold joins a queue.
	EventReservationQueued EventType = "reservation_queued"

	// EventReservationAvailable is emitted when a return promotes the
	// front of the queue; the caller forwards it as the pickup notice.
	EventReservationAvailable EventType = "reservation_available"

	// EventReservationFulfilled is emitted when a held copy is collected.
	EventReservationFulfilled EventType = "reservation_fulfilled"

	// EventReservationCancelled is emitted when a hold is withdrawn.
	EventReservationCancelled EventType = "reservation_cancelled"

	// EventReservationExpired is emitted by the sweep for lapsed holds.
	EventReservationExpired EventType = "reservation_expired"

	// EventCheckoutMarkedOverdue is emitted by the sweep for loans past due.
	EventCheckoutMarkedOverdue EventType = "checkout_marked_overdue"
)

// Event is one circulation fact, returned by mutating engine operations
// for the caller to forward. Events are values; the engine never holds
// callbacks. Reference fields are filled as relevant to the Type and
// omitted otherwise.
type Event struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`
	At   time.Time `json:"at"`

	PatronID      string `json:"patron_id,omitempty"`
	BookISBN      string `json:"book_isbn,omitempty"`
	CheckoutID    string `json:"checkout_id,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`

	QueuePosition  int        `json:"queue_position,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	PickupDeadline *time.Time `json:"pickup_deadline,omitempty"`
	LateDays       int        `json:"late_days,omitempty"`
	Amount         Cents      `json:"amount,omitempty"`
}

// NewEvent stamps a fresh event of the given type; the caller fills in
// the reference fields it needs.
func NewEvent(t EventType, at time.Time) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: t,
		At:   at,
	}
}
