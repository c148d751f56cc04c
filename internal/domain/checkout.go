package domain

import "time"

// CheckoutStatus represents the state of a loan.
type CheckoutStatus string

const (
	// CheckoutActive loans are out with the patron, not yet due for action.
	CheckoutActive CheckoutStatus = "active"
	// CheckoutCompleted loans have been returned.
	CheckoutCompleted CheckoutStatus = "completed"
	// CheckoutOverdue loans are out past their due date, flagged by the sweep.
	// An overdue loan is still on loan: it can be returned, and renewal
	// failures report the overdue rule rather than a status error.
	CheckoutOverdue CheckoutStatus = "overdue"
	// CheckoutCancelled loans were voided by staff before completion.
	CheckoutCancelled CheckoutStatus = "cancelled"
	// CheckoutLost loans were written off; the copy is not expected back.
	CheckoutLost CheckoutStatus = "lost"
)

// Checkout is one loan of one copy to one patron. Checkouts are never
// deleted; completed and written-off loans stay in the ledger.
type Checkout struct {
	ID       string `json:"id"`
	PatronID string `json:"patron_id"`
	BookISBN string `json:"book_isbn"`

	CheckedOutAt time.Time  `json:"checked_out_at"`
	DueDate      time.Time  `json:"due_date"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`

	Status       CheckoutStatus `json:"status"`
	RenewalCount int            `json:"renewal_count"`
	FineAmount   Cents          `json:"fine_amount"`
	FinePaid     bool           `json:"fine_paid"`

	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCheckout creates an active loan due at dueDate.
func NewCheckout(id, patronID, bookISBN string, now, dueDate time.Time) *Checkout {
	return &Checkout{
		ID:           id,
		PatronID:     patronID,
		BookISBN:     bookISBN,
		CheckedOutAt: now,
		DueDate:      dueDate,
		Status:       CheckoutActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsOnLoan reports whether the copy is still out with the patron.
// Both Active and Overdue count; Overdue is Active past its due date.
func (c *Checkout) IsOnLoan() bool {
	return c.Status == CheckoutActive || c.Status == CheckoutOverdue
}

// IsPastDue reports whether today is after the due date.
func (c *Checkout) IsPastDue(today time.Time) bool {
	return today.After(c.DueDate)
}

// LateDays returns how many whole days past due the loan is as of
// today, never negative.
func (c *Checkout) LateDays(today time.Time) int {
	days := int(today.Sub(c.DueDate) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}

// RenewalsExhausted reports whether the loan has used all its renewals.
func (c *Checkout) RenewalsExhausted(maxRenewals int) bool {
	return c.RenewalCount >= maxRenewals
}

// Renew extends the due date and bumps the renewal counter. Guards
// belong to the engine; this only applies the mutation.
func (c *Checkout) Renew(extensionDays int, now time.Time) {
	c.DueDate = c.DueDate.AddDate(0, 0, extensionDays)
	c.RenewalCount++
	c.UpdatedAt = now
}

// MarkReturned completes the loan with the fine computed at return time.
func (c *Checkout) MarkReturned(fine Cents, now time.Time) {
	t := now
	c.Status = CheckoutCompleted
	c.ReturnedAt = &t
	c.FineAmount = fine
	c.UpdatedAt = now
}

// MarkOverdue flags the loan as past due. Idempotent.
func (c *Checkout) MarkOverdue(now time.Time) {
	c.Status = CheckoutOverdue
	c.UpdatedAt = now
}

// Condition grades the physical state of a returned copy.
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionDamaged   Condition = "damaged"
	ConditionLost      Condition = "lost"
)

// DefaultCondition applies when a return does not state one.
const DefaultCondition = ConditionGood

// ValidConditions enumerates the accepted condition grades.
var ValidConditions = map[Condition]bool{
	ConditionExcellent: true,
	ConditionGood:      true,
	ConditionFair:      true,
	ConditionDamaged:   true,
	ConditionLost:      true,
}

// Return records the completion of a checkout. Immutable once created;
// exactly one exists per completed checkout. FinePaid tracks payments
// against this return's assessment and never exceeds FineAssessed.
type Return struct {
	ID         string `json:"id"`
	CheckoutID string `json:"checkout_id"`
	PatronID   string `json:"patron_id"`
	BookISBN   string `json:"book_isbn"`

	ReturnedAt time.Time `json:"returned_at"`
	Condition  Condition `json:"condition"`

	LateDays     int   `json:"late_days"`
	FineAssessed Cents `json:"fine_assessed"`
	FinePaid     Cents `json:"fine_paid"`

	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewReturn creates the immutable return record for a checkout.
func NewReturn(id string, c *Checkout, condition Condition, lateDays int, fine Cents, notes string, now time.Time) *Return {
	return &Return{
		ID:           id,
		CheckoutID:   c.ID,
		PatronID:     c.PatronID,
		BookISBN:     c.BookISBN,
		ReturnedAt:   now,
		Condition:    condition,
		LateDays:     lateDays,
		FineAssessed: fine,
		FinePaid:     0,
		Notes:        notes,
		CreatedAt:    now,
	}
}
