// Package normalize provides utilities for normalizing and sanitizing
// catalog data before it reaches storage or the search index.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/openshelf/openshelf-server/internal/genre"
)

// ISBN converts the many shapes an ISBN arrives in to canonical form:
// digits only, no separators, trailing check 'X' uppercased.
//
//	"978-0-13-468599-1"     -> "9780134685991"
//	"ISBN 0-306-40615-2"    -> "0306406152"
//	"043942089x"            -> "043942089X"
//
// Returns empty string when the input cannot be an ISBN-10 or ISBN-13.
// Shape only: check digits are not verified anywhere, so catalog IDs
// merely have to look like ISBNs.
func ISBN(raw string) string {
	s := strings.TrimSpace(sanitizeString(raw))
	if s == "" {
		return ""
	}

	// Tolerate a leading "ISBN" label ("ISBN:", "ISBN-13:", "isbn 10 "...).
	if len(s) >= 4 && strings.EqualFold(s[:4], "isbn") {
		s = s[4:]
		if strings.HasPrefix(s, "-13") || strings.HasPrefix(s, "-10") {
			s = s[3:]
		}
		s = strings.TrimLeft(s, ": \t")
	}

	var b strings.Builder
	b.Grow(13)
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		case r == '-' || r == ' ' || r == '‑':
			// separator, drop
		default:
			return ""
		}
	}

	out := b.String()
	switch len(out) {
	case 10:
		// ISBN-10: nine digits plus a digit-or-X check character.
		if strings.ContainsRune(out[:9], 'X') {
			return ""
		}
		return out
	case 13:
		// ISBN-13 is all digits.
		if strings.ContainsRune(out, 'X') {
			return ""
		}
		return out
	default:
		return ""
	}
}

// SearchText folds a title or name for the full-text index and for
// case-insensitive comparison: decomposed unicode with diacritics
// dropped, lowercased, whitespace collapsed.
// "  Éducation   Sentimentale " -> "education sentimentale".
func SearchText(raw string) string {
	s := norm.NFKD.String(sanitizeString(raw))

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.Is(unicode.Mn, r) || r > unicode.MaxASCII:
			// combining marks and leftover non-ASCII fold away
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// sanitizeString removes null bytes from strings, which can cause
// issues in databases and JSON parsing. Imported catalog dumps
// occasionally carry null terminators in strings.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 { // null byte
			return -1 // drop it
		}
		return r
	}, s)
}

// GenreSlug normalizes a raw genre label to its canonical slug.
// Delegates to genre.Normalize for consistency.
func GenreSlug(raw string) string {
	return genre.Normalize(raw)
}
