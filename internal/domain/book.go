// Package domain contains the core business entities and domain logic for the OpenShelf circulation system.
package domain

import "time"

// Book is one catalog title. Books are identified by canonical ISBN;
// physical copies are tracked as counters rather than per-copy rows.
// AvailableCopies moves only through checkout (-1) and return (+1).
type Book struct {
	ISBN     string `json:"isbn"`
	Title    string `json:"title"`
	AuthorID string `json:"author_id"`
	// AuthorName is filled on reads via join; it is not stored on the book row.
	AuthorName string `json:"author,omitempty"`

	Genre           string `json:"genre"`
	PublicationYear int    `json:"publication_year"`

	TotalCopies     int `json:"total_copies"`
	AvailableCopies int `json:"available_copies"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAvailable reports whether at least one copy is on the shelf.
// Recomputed on every call, never cached.
func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// TakeCopy removes one copy from the available pool for a checkout.
// Returns false without mutating when no copy is available.
func (b *Book) TakeCopy() bool {
	if b.AvailableCopies <= 0 {
		return false
	}
	b.AvailableCopies--
	return true
}

// ReturnCopy puts one copy back on the shelf. Returns false without
// mutating when the pool is already full; that means the ledger and
// the counters disagree, not a normal condition.
func (b *Book) ReturnCopy() bool {
	if b.AvailableCopies >= b.TotalCopies {
		return false
	}
	b.AvailableCopies++
	return true
}

// Author is a catalog contributor. Books reference authors by ID;
// the catalog creates authors on first use of a name.
type Author struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
