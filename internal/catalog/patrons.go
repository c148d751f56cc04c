package catalog

import (
	"context"
	"time"

	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/errors"
	"github.com/openshelf/openshelf-server/internal/id"
	"github.com/openshelf/openshelf-server/internal/store"
)

// defaultBorrowingLimit applies when a registration omits the limit.
const defaultBorrowingLimit = 5

// RegisterPatronRequest carries the fields for a new membership.
type RegisterPatronRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=200"`
	Email string `json:"email" validate:"required,email"`
	// BorrowingLimit of 0 means use the default.
	BorrowingLimit int `json:"borrowing_limit" validate:"gte=0,lte=50"`
	// MembershipExpiresAt is optional; nil memberships never lapse.
	MembershipExpiresAt *time.Time `json:"membership_expires_at,omitempty"`
}

// RegisterPatron creates an active member with zeroed counters.
func (s *Service) RegisterPatron(ctx context.Context, req RegisterPatronRequest) (*domain.Patron, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	limit := req.BorrowingLimit
	if limit == 0 {
		limit = defaultBorrowingLimit
	}

	patronID, err := id.Generate(id.PrefixPatron)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate patron id")
	}

	patron := domain.NewPatron(patronID, req.Name, req.Email, limit, s.clock.Now())
	patron.MembershipExpiresAt = req.MembershipExpiresAt

	if err := s.store.CreatePatron(ctx, patron); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, errors.Conflictf("patron %q already registered", patronID)
		}
		return nil, storageErr("create patron", err)
	}

	s.logger.Info("patron registered", "patron_id", patron.ID, "limit", patron.BorrowingLimit)
	return patron, nil
}

// GetPatron returns one membership record.
func (s *Service) GetPatron(ctx context.Context, patronID string) (*domain.Patron, error) {
	patron, err := s.store.GetPatron(ctx, patronID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("patron %q not found", patronID)
	}
	if err != nil {
		return nil, storageErr("get patron", err)
	}
	return patron, nil
}

// ListPatrons returns every membership ordered by name.
func (s *Service) ListPatrons(ctx context.Context) ([]*domain.Patron, error) {
	patrons, err := s.store.ListPatrons(ctx)
	if err != nil {
		return nil, storageErr("list patrons", err)
	}
	return patrons, nil
}

// SetPatronStatus moves a membership between active, suspended,
// expired, and pending. Counters and fines are untouched; a suspended
// patron still owes what they owe.
func (s *Service) SetPatronStatus(ctx context.Context, patronID string, status domain.MembershipStatus) (*domain.Patron, error) {
	if !domain.ValidMembershipStatuses[status] {
		return nil, errors.Validationf("invalid membership status %q", status)
	}

	var patron *domain.Patron
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		patron, err = tx.GetPatron(ctx, patronID)
		if errors.Is(err, store.ErrNotFound) {
			return errors.NotFoundf("patron %q not found", patronID)
		}
		if err != nil {
			return storageErr("get patron", err)
		}

		patron.Status = status
		patron.Touch(s.clock.Now())
		if err := tx.UpdatePatron(ctx, patron); err != nil {
			return storageErr("update patron", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("patron status changed", "patron_id", patron.ID, "status", patron.Status)
	return patron, nil
}
