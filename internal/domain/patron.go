package domain

import "time"

// MembershipStatus represents a patron's standing with the library.
type MembershipStatus string

const (
	// MembershipActive patrons may borrow and reserve.
	MembershipActive MembershipStatus = "active"
	// MembershipSuspended patrons are blocked until a librarian reinstates them.
	MembershipSuspended MembershipStatus = "suspended"
	// MembershipExpired patrons must renew their membership.
	MembershipExpired MembershipStatus = "expired"
	// MembershipPending patrons have registered but not been approved.
	MembershipPending MembershipStatus = "pending"
)

// ValidMembershipStatuses enumerates the accepted status values.
var ValidMembershipStatuses = map[MembershipStatus]bool{
	MembershipActive:    true,
	MembershipSuspended: true,
	MembershipExpired:   true,
	MembershipPending:   true,
}

// Patron is a registered library member. Counter invariants:
// 0 <= CurrentCheckouts <= BorrowingLimit always; TotalCheckouts is a
// lifetime counter and never decreases; OutstandingFines >= 0.
type Patron struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`

	Status MembershipStatus `json:"status"`
	// MembershipExpiresAt is optional; a membership with no expiry never lapses.
	MembershipExpiresAt *time.Time `json:"membership_expires_at,omitempty"`

	BorrowingLimit   int   `json:"borrowing_limit"`
	CurrentCheckouts int   `json:"current_checkouts"`
	TotalCheckouts   int   `json:"total_checkouts"`
	OutstandingFines Cents `json:"outstanding_fines"`

	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewPatron creates an active patron with zeroed counters.
func NewPatron(id, name, email string, borrowingLimit int, now time.Time) *Patron {
	return &Patron{
		ID:             id,
		Name:           name,
		Email:          email,
		Status:         MembershipActive,
		BorrowingLimit: borrowingLimit,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsActive reports whether the membership status permits borrowing.
func (p *Patron) IsActive() bool {
	return p.Status == MembershipActive
}

// MembershipLapsed reports whether the membership expiry has passed.
// A membership is valid through its expiry date and lapses the day after.
func (p *Patron) MembershipLapsed(today time.Time) bool {
	return p.MembershipExpiresAt != nil && today.After(*p.MembershipExpiresAt)
}

// AtBorrowingLimit reports whether another checkout would exceed the limit.
func (p *Patron) AtBorrowingLimit() bool {
	return p.CurrentCheckouts >= p.BorrowingLimit
}

// FinesBlockCheckout reports whether accumulated fines have reached the
// blocking threshold. The threshold itself is policy, passed in.
func (p *Patron) FinesBlockCheckout(threshold Cents) bool {
	return p.OutstandingFines >= threshold
}

// CanCheckout is the composite eligibility predicate: active membership,
// not lapsed, under the borrowing limit, fines under the threshold.
// Recomputed on every call, never cached.
func (p *Patron) CanCheckout(today time.Time, fineThreshold Cents) bool {
	return p.IsActive() &&
		!p.MembershipLapsed(today) &&
		!p.AtBorrowingLimit() &&
		!p.FinesBlockCheckout(fineThreshold)
}

// RecordCheckout bumps the borrow counters and stamps activity.
func (p *Patron) RecordCheckout(now time.Time) {
	p.CurrentCheckouts++
	p.TotalCheckouts++
	p.Touch(now)
}

// RecordReturn decrements the live counter, accrues any fine, and
// stamps activity. The counter never drops below zero.
func (p *Patron) RecordReturn(fine Cents, now time.Time) {
	if p.CurrentCheckouts > 0 {
		p.CurrentCheckouts--
	}
	if fine > 0 {
		p.OutstandingFines += fine
	}
	p.Touch(now)
}

// PayFine reduces outstanding fines by amount, flooring at zero.
// Returns the amount actually applied.
func (p *Patron) PayFine(amount Cents, now time.Time) Cents {
	applied := amount
	if applied > p.OutstandingFines {
		applied = p.OutstandingFines
	}
	p.OutstandingFines -= applied
	p.Touch(now)
	return applied
}

// Touch stamps last activity and updated-at.
func (p *Patron) Touch(now time.Time) {
	t := now
	p.LastActivityAt = &t
	p.UpdatedAt = now
}
