// Package catalog manages the library's bibliographic records: books,
// authors, and patron registrations. It owns no circulation logic;
// loans and holds belong to the circulation engine. Catalog mutations
// validate input, mint IDs, persist, and keep the search index current.
package catalog

import (
	"log/slog"

	"github.com/openshelf/openshelf-server/internal/clock"
	"github.com/openshelf/openshelf-server/internal/errors"
	"github.com/openshelf/openshelf-server/internal/search"
	"github.com/openshelf/openshelf-server/internal/store"
	"github.com/openshelf/openshelf-server/internal/validation"
)

// Service exposes catalog operations over the store and search index.
type Service struct {
	store     store.Store
	index     *search.Index
	validator *validation.Validator
	clock     clock.Clock
	logger    *slog.Logger
}

// New wires a catalog service. The search index is optional; with a nil
// index books are still persisted, just not searchable.
func New(st store.Store, index *search.Index, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:     st,
		index:     index,
		validator: validation.New(),
		clock:     clk,
		logger:    logger,
	}
}

// storageErr wraps unexpected store failures the way the engine does,
// so callers see one error taxonomy regardless of which service failed.
func storageErr(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return errors.Wrap(err, errors.CodeConflict, op+": concurrent update, retry the operation")
	default:
		return errors.Wrap(err, errors.CodeStorage, op+": storage failure")
	}
}
