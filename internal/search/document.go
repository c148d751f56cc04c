// Package search provides full-text catalog search using Bleve.
// Books are indexed by ISBN with fuzzy matching on title and author
// and exact filtering on genre.
package search

import (
	"github.com/openshelf/openshelf-server/internal/domain"
)

// BookDocument is the document structure for the Bleve index.
//
// Author and genre are denormalized onto the book document so a single
// query can match across all three text fields without join lookups.
type BookDocument struct {
	ISBN   string `json:"isbn"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Genre  string `json:"genre"`

	PublicationYear int `json:"publication_year,omitempty"`

	TotalCopies     int `json:"total_copies"`
	AvailableCopies int `json:"available_copies"`

	// Timestamps for sorting, Unix millis.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *BookDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"isbn":             d.ISBN,
		"title":            d.Title,
		"total_copies":     d.TotalCopies,
		"available_copies": d.AvailableCopies,
		"created_at":       d.CreatedAt,
		"updated_at":       d.UpdatedAt,
	}

	if d.Author != "" {
		m["author"] = d.Author
	}
	if d.Genre != "" {
		m["genre"] = d.Genre
	}
	if d.PublicationYear > 0 {
		m["publication_year"] = d.PublicationYear
	}

	return m
}

// BookToDocument converts a domain Book to a BookDocument.
// The book must carry its joined AuthorName; the search package
// does not reach into the store to resolve it.
func BookToDocument(book *domain.Book) *BookDocument {
	return &BookDocument{
		ISBN:            book.ISBN,
		Title:           book.Title,
		Author:          book.AuthorName,
		Genre:           book.Genre,
		PublicationYear: book.PublicationYear,
		TotalCopies:     book.TotalCopies,
		AvailableCopies: book.AvailableCopies,
		CreatedAt:       book.CreatedAt.UnixMilli(),
		UpdatedAt:       book.UpdatedAt.UnixMilli(),
	}
}
