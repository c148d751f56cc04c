// Package main provides a tool to seed the database with demo library data.
//
// It populates a catalog of books and patrons, then replays a plausible
// circulation history (checkouts, returns, renewals, reservations) through
// the engine itself so every invariant holds in the seeded data.
//
// Usage:
//
//	DATA_DIR=~/OpenShelf/data go run ./cmd/seed
//	go run ./cmd/seed --patrons 12 --days 60
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/openshelf/openshelf-server/internal/catalog"
	"github.com/openshelf/openshelf-server/internal/circulation"
	"github.com/openshelf/openshelf-server/internal/clock"
	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/logger"
	"github.com/openshelf/openshelf-server/internal/search"
	"github.com/openshelf/openshelf-server/internal/store/sqlite"
)

var (
	patronCount = flag.Int("patrons", 8, "Number of patrons to register")
	days        = flag.Int("days", 30, "Days of circulation history to replay")
	seed        = flag.Int64("seed", 0, "Random seed (0 = time-based)")
)

type seedBook struct {
	title  string
	author string
	genre  string
	year   int
	copies int
}

var seedBooks = []seedBook{
	{"The Hobbit", "J.R.R. Tolkien", "Fantasy", 1937, 3},
	{"The Fellowship of the Ring", "J.R.R. Tolkien", "Fantasy", 1954, 2},
	{"Dune", "Frank Herbert", "Science Fiction", 1965, 3},
	{"Foundation", "Isaac Asimov", "Science Fiction", 1951, 2},
	{"Pride and Prejudice", "Jane Austen", "Romance", 1813, 2},
	{"Emma", "Jane Austen", "Romance", 1815, 1},
	{"The Maltese Falcon", "Dashiell Hammett", "Mystery", 1930, 2},
	{"Murder on the Orient Express", "Agatha Christie", "Mystery", 1934, 2},
	{"A Brief History of Time", "Stephen Hawking", "Science", 1988, 2},
	{"The Selfish Gene", "Richard Dawkins", "Science", 1976, 1},
	{"The Guns of August", "Barbara Tuchman", "History", 1962, 1},
	{"1776", "David McCullough", "History", 2005, 2},
	{"Beloved", "Toni Morrison", "Literary Fiction", 1987, 2},
	{"The Remains of the Day", "Kazuo Ishiguro", "Literary Fiction", 1989, 1},
	{"Kitchen Confidential", "Anthony Bourdain", "Memoir", 2000, 1},
	{"Educated", "Tara Westover", "Memoir", 2018, 3},
}

var seedPatrons = []struct{ name, email string }{
	{"Ada Lovelace", "ada@example.com"},
	{"Grace Hopper", "grace@example.com"},
	{"Alan Turing", "alan@example.com"},
	{"Katherine Johnson", "katherine@example.com"},
	{"Edsger Dijkstra", "edsger@example.com"},
	{"Barbara Liskov", "barbara@example.com"},
	{"Donald Knuth", "donald@example.com"},
	{"Margaret Hamilton", "margaret@example.com"},
	{"Tony Hoare", "tony@example.com"},
	{"Frances Allen", "frances@example.com"},
	{"John Backus", "john@example.com"},
	{"Radia Perlman", "radia@example.com"},
}

// makeISBN builds a deterministic 13-digit ISBN for seed data.
func makeISBN(i int) string {
	return fmt.Sprintf("978%010d", 4000000+i)
}

type summary struct {
	books        int
	patrons      int
	checkouts    int
	returns      int
	renewals     int
	reservations int
	finesPaid    int
}

func main() {
	flag.Parse()

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = os.ExpandEnv("$HOME/OpenShelf/data")
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}

	fmt.Printf("Seeding database at: %s\n", dataDir)

	lg := logger.New(logger.Config{Level: logger.ParseLevel("warn")})

	st, err := sqlite.Open(filepath.Join(dataDir, "openshelf.db"), lg.Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	idx, err := search.NewIndex(search.Options{DataPath: dataDir, Logger: lg.Logger})
	if err != nil {
		log.Fatalf("Failed to open search index: %v", err)
	}
	defer idx.Close()

	seedVal := *seed
	if seedVal == 0 {
		seedVal = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seedVal))

	// History is replayed on a fake clock that starts in the past and
	// walks forward to today, so due dates and fines come out right.
	start := time.Now().UTC().AddDate(0, 0, -*days)
	clk := clock.NewFake(start)

	engine := circulation.NewEngine(st, clk, circulation.DefaultPolicy(), lg.Logger)
	cat := catalog.New(st, idx, clk, lg.Logger)

	ctx := context.Background()
	var sum summary

	// Catalog
	isbns := make([]string, 0, len(seedBooks))
	for i, b := range seedBooks {
		isbn := makeISBN(i)
		if _, err := cat.AddBook(ctx, catalog.AddBookRequest{
			ISBN:            isbn,
			Title:           b.title,
			Author:          b.author,
			Genre:           b.genre,
			PublicationYear: b.year,
			TotalCopies:     b.copies,
		}); err != nil {
			log.Fatalf("Failed to add %q: %v", b.title, err)
		}
		isbns = append(isbns, isbn)
		sum.books++
	}

	// Patrons
	n := *patronCount
	if n > len(seedPatrons) {
		n = len(seedPatrons)
	}
	patronIDs := make([]string, 0, n)
	for _, p := range seedPatrons[:n] {
		patron, err := cat.RegisterPatron(ctx, catalog.RegisterPatronRequest{
			Name:  p.name,
			Email: p.email,
		})
		if err != nil {
			log.Fatalf("Failed to register %s: %v", p.name, err)
		}
		patronIDs = append(patronIDs, patron.ID)
		sum.patrons++
	}

	// Circulation history, one day at a time.
	var open []string // open checkout IDs
	for day := 0; day < *days; day++ {
		// A few checkouts most days.
		for i := 0; i < 1+rng.Intn(3); i++ {
			patronID := patronIDs[rng.Intn(len(patronIDs))]
			isbn := isbns[rng.Intn(len(isbns))]
			checkout, _, err := engine.Checkout(ctx, circulation.CheckoutRequest{
				PatronID: patronID,
				BookISBN: isbn,
			})
			if err != nil {
				continue // no copy on shelf, patron at limit, etc.
			}
			open = append(open, checkout.ID)
			sum.checkouts++
		}

		// Some returns; a late return here and there leaves a fine.
		for len(open) > 0 && rng.Float32() < 0.6 {
			i := rng.Intn(len(open))
			checkoutID := open[i]
			open = append(open[:i], open[i+1:]...)
			if _, _, err := engine.Return(ctx, circulation.ReturnRequest{
				CheckoutID: checkoutID,
				Condition:  randomCondition(rng),
			}); err == nil {
				sum.returns++
			}
		}

		// Occasional renewal.
		if len(open) > 0 && rng.Float32() < 0.2 {
			if _, _, err := engine.Renew(ctx, open[rng.Intn(len(open))], 0); err == nil {
				sum.renewals++
			}
		}

		// Occasional hold on a popular title.
		if rng.Float32() < 0.3 {
			if _, _, err := engine.Reserve(ctx, circulation.ReserveRequest{
				PatronID: patronIDs[rng.Intn(len(patronIDs))],
				BookISBN: isbns[rng.Intn(4)],
			}); err == nil {
				sum.reservations++
			}
		}

		// Occasional fine payment.
		if rng.Float32() < 0.15 {
			if _, _, err := engine.PayFine(ctx, patronIDs[rng.Intn(len(patronIDs))], 25); err == nil {
				sum.finesPaid++
			}
		}

		clk.AdvanceDays(1)

		// Daily sweeps, same as production.
		if _, _, err := engine.Sweep(ctx); err != nil {
			log.Printf("Sweep failed on day %d: %v", day, err)
		}
	}

	stats, err := engine.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}

	fmt.Printf("\nSeeded %d books, %d patrons over %d days (seed %d):\n",
		sum.books, sum.patrons, *days, seedVal)
	fmt.Printf("  checkouts:    %d (%d still out, %d overdue)\n",
		sum.checkouts, stats.ActiveCheckouts, stats.OverdueCheckouts)
	fmt.Printf("  returns:      %d\n", sum.returns)
	fmt.Printf("  renewals:     %d\n", sum.renewals)
	fmt.Printf("  reservations: %d (%d open)\n", sum.reservations, stats.OpenReservations)
	fmt.Printf("  fine payments: %d (outstanding %s)\n", sum.finesPaid, stats.OutstandingFines)
}

func randomCondition(rng *rand.Rand) domain.Condition {
	switch rng.Intn(10) {
	case 0:
		return domain.ConditionFair
	case 1:
		return domain.ConditionDamaged
	default:
		return domain.ConditionGood
	}
}
