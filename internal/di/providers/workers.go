package providers

import (
	"github.com/samber/do/v2"

	"github.com/openshelf/openshelf-server/internal/circulation"
	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/jobs"
	"github.com/openshelf/openshelf-server/internal/logger"
)

// SchedulerHandle wraps the cron scheduler with shutdown capability.
type SchedulerHandle struct {
	*jobs.Scheduler
}

// Shutdown implements do.Shutdownable.
func (h *SchedulerHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideScheduler provides the sweep scheduler. Started by main once
// the container is bootstrapped.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	engine := do.MustInvoke[*circulation.Engine](i)

	return &SchedulerHandle{
		Scheduler: jobs.NewScheduler(engine, cfg.Jobs, log.Logger),
	}, nil
}
