package circulation

import "github.com/openshelf/openshelf-server/internal/domain"

// Policy holds the lending rules the engine applies. Defaults are the
// library's standard terms; config may override any of them.
type Policy struct {
	// LoanPeriodDays is the default loan length and the default renewal
	// extension.
	LoanPeriodDays int

	// FinePerDay accrues for every whole day a return is late.
	FinePerDay domain.Cents

	// MaxRenewals caps how many times one checkout can be renewed.
	MaxRenewals int

	// PickupWindowDays is how long a promoted reservation stays
	// collectible before it lapses.
	PickupWindowDays int

	// ReservationLifeDays is the default life of a pending hold.
	ReservationLifeDays int

	// FineThreshold blocks new checkouts once a patron's outstanding
	// fines reach it.
	FineThreshold domain.Cents
}

// DefaultPolicy returns the standard lending terms: 14-day loans,
// $0.25/day fines, 3 renewals, 3-day pickup window, 90-day holds, and
// a $10.00 fine threshold.
func DefaultPolicy() Policy {
	return Policy{
		LoanPeriodDays:      14,
		FinePerDay:          25,
		MaxRenewals:         3,
		PickupWindowDays:    3,
		ReservationLifeDays: 90,
		FineThreshold:       1000,
	}
}
