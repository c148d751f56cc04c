// Package jobs runs the scheduled circulation sweeps. The scheduler
// only wires cron specs to engine sweep methods; the sweeps themselves
// live on the engine so the manual sweep tool shares the code path.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openshelf/openshelf-server/internal/circulation"
	"github.com/openshelf/openshelf-server/internal/config"
)

// Scheduler manages cron job scheduling for the circulation sweeps.
type Scheduler struct {
	cron   *cron.Cron
	engine *circulation.Engine
	logger *slog.Logger
}

// NewScheduler registers the overdue and expiry sweeps against the
// configured cron specs.
func NewScheduler(engine *circulation.Engine, cfg config.JobsConfig, logger *slog.Logger) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
	)

	s := &Scheduler{
		cron:   c,
		engine: engine,
		logger: logger,
	}

	s.registerJobs(cfg)
	return s
}

// registerJobs wires the sweep methods. A bad cron spec is logged and
// skipped rather than failing startup; the manual sweep tool remains
// available either way.
func (s *Scheduler) registerJobs(cfg config.JobsConfig) {
	_, err := s.cron.AddFunc(cfg.OverdueSchedule, s.runOverdueSweep)
	if err != nil {
		s.logger.Error("failed to register overdue sweep", "schedule", cfg.OverdueSchedule, "error", err)
	}

	_, err = s.cron.AddFunc(cfg.ExpirySchedule, s.runExpirySweep)
	if err != nil {
		s.logger.Error("failed to register reservation expiry sweep", "schedule", cfg.ExpirySchedule, "error", err)
	}

	s.logger.Info("circulation sweeps registered",
		"overdue_schedule", cfg.OverdueSchedule,
		"expiry_schedule", cfg.ExpirySchedule,
	)
}

func (s *Scheduler) runOverdueSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	marked, _, err := s.engine.MarkOverdueLoans(ctx)
	if err != nil {
		s.logger.Error("overdue sweep failed", "error", err)
		return
	}
	if marked > 0 {
		s.logger.Info("overdue sweep complete", "marked", marked)
	}
}

func (s *Scheduler) runExpirySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	expired, _, err := s.engine.ExpireReservations(ctx)
	if err != nil {
		s.logger.Error("reservation expiry sweep failed", "error", err)
		return
	}
	if expired > 0 {
		s.logger.Info("reservation expiry sweep complete", "expired", expired)
	}
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
