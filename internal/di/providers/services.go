package providers

import (
	"github.com/samber/do/v2"

	"github.com/openshelf/openshelf-server/internal/catalog"
	"github.com/openshelf/openshelf-server/internal/circulation"
	"github.com/openshelf/openshelf-server/internal/clock"
	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/logger"
	"github.com/openshelf/openshelf-server/internal/ratelimit"
)

// ProvideClock provides the wall clock the engine and catalog stamp
// records with.
func ProvideClock(i do.Injector) (clock.Clock, error) {
	return clock.System{}, nil
}

// ProvideEngine provides the circulation engine with policy from config.
func ProvideEngine(i do.Injector) (*circulation.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clk := do.MustInvoke[clock.Clock](i)

	policy := circulation.Policy{
		LoanPeriodDays:      cfg.Policy.LoanPeriodDays,
		FinePerDay:          domain.Cents(cfg.Policy.FinePerDayCents),
		MaxRenewals:         cfg.Policy.MaxRenewals,
		PickupWindowDays:    cfg.Policy.PickupWindowDays,
		ReservationLifeDays: cfg.Policy.ReservationLifeDays,
		FineThreshold:       domain.Cents(cfg.Policy.FineThresholdCents),
	}

	return circulation.NewEngine(storeHandle.Store, clk, policy, log.Logger), nil
}

// ProvideCatalog provides the catalog service.
func ProvideCatalog(i do.Injector) (*catalog.Service, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	clk := do.MustInvoke[clock.Clock](i)

	return catalog.New(storeHandle.Store, indexHandle.Index, clk, log.Logger), nil
}

// RateLimiterHandle wraps the limiter with shutdown capability.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRateLimiter provides the per-session tool call limiter.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return &RateLimiterHandle{
		KeyedRateLimiter: ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}, nil
}
