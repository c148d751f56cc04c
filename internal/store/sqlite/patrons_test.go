package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/store"
)

func TestCreateAndGetPatron(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expires := testEpoch.AddDate(1, 0, 0)
	patron := domain.NewPatron("pat-get", "Ada", "ada@example.com", 3, testEpoch)
	patron.MembershipExpiresAt = &expires
	patron.OutstandingFines = 250
	if err := s.CreatePatron(ctx, patron); err != nil {
		t.Fatalf("create patron: %v", err)
	}

	got, err := s.GetPatron(ctx, "pat-get")
	if err != nil {
		t.Fatalf("get patron: %v", err)
	}
	if got.Status != domain.MembershipActive {
		t.Errorf("status = %q, want active", got.Status)
	}
	if got.BorrowingLimit != 3 {
		t.Errorf("limit = %d, want 3", got.BorrowingLimit)
	}
	if got.OutstandingFines != 250 {
		t.Errorf("fines = %d, want 250", got.OutstandingFines)
	}
	if got.MembershipExpiresAt == nil || !got.MembershipExpiresAt.Equal(expires) {
		t.Errorf("expiry = %v, want %v", got.MembershipExpiresAt, expires)
	}
}

func TestGetPatronNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetPatron(context.Background(), "pat-none"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdatePatronCounters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	patron := seedPatron(t, s, "pat-upd", 2)
	patron.RecordCheckout(testEpoch)
	if err := s.UpdatePatron(ctx, patron); err != nil {
		t.Fatalf("update patron: %v", err)
	}

	got, err := s.GetPatron(ctx, "pat-upd")
	if err != nil {
		t.Fatalf("get patron: %v", err)
	}
	if got.CurrentCheckouts != 1 || got.TotalCheckouts != 1 {
		t.Errorf("counters = %d/%d, want 1/1", got.CurrentCheckouts, got.TotalCheckouts)
	}
	if got.LastActivityAt == nil {
		t.Error("last activity not stamped")
	}
}

func TestUpdatePatronCounterOverLimitIsConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	patron := seedPatron(t, s, "pat-over", 1)
	patron.CurrentCheckouts = 2
	if err := s.UpdatePatron(ctx, patron); !errors.Is(err, store.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestListPatrons(t *testing.T) {
	s := newTestStore(t)

	seedPatron(t, s, "pat-z", 2)
	seedPatron(t, s, "pat-a", 2)

	patrons, err := s.ListPatrons(context.Background())
	if err != nil {
		t.Fatalf("list patrons: %v", err)
	}
	if len(patrons) != 2 {
		t.Fatalf("got %d patrons, want 2", len(patrons))
	}
	if patrons[0].Name > patrons[1].Name {
		t.Errorf("patrons not ordered by name")
	}
}
