package domain

// CirculationStats is the aggregate snapshot served by the reporting
// surface. Computed from committed state in one read; never cached.
type CirculationStats struct {
	TotalBooks      int `json:"total_books"`
	TotalCopies     int `json:"total_copies"`
	AvailableCopies int `json:"available_copies"`
	TotalPatrons    int `json:"total_patrons"`
	ActivePatrons   int `json:"active_patrons"`

	ActiveCheckouts  int `json:"active_checkouts"`
	OverdueCheckouts int `json:"overdue_checkouts"`
	TotalCheckouts   int `json:"total_checkouts"`
	TotalReturns     int `json:"total_returns"`

	OpenReservations int `json:"open_reservations"`

	OutstandingFines Cents `json:"outstanding_fines"`
	FinesAssessed    Cents `json:"fines_assessed"`
}
