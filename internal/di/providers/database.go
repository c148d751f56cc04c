package providers

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/logger"
	"github.com/openshelf/openshelf-server/internal/store"
	"github.com/openshelf/openshelf-server/internal/store/postgres"
	"github.com/openshelf/openshelf-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the storage backend selected by config.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var (
		st  store.Store
		err error
	)
	switch cfg.DB.Driver {
	case "sqlite":
		if err := os.MkdirAll(cfg.Data.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		st, err = sqlite.Open(cfg.DatabasePath(), log.Logger)
	case "postgres":
		st, err = postgres.Open(cfg.DB.DSN, log.Logger)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Store opened", "driver", cfg.DB.Driver)

	return &StoreHandle{Store: st}, nil
}
