package jobs

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/openshelf/openshelf-server/internal/circulation"
	"github.com/openshelf/openshelf-server/internal/clock"
	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/store/sqlite"
)

func newTestEngine(t *testing.T) *circulation.Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	clk := clock.NewFake(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	return circulation.NewEngine(st, clk, circulation.DefaultPolicy(), logger)
}

func TestSchedulerRegistersBothSweeps(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewScheduler(newTestEngine(t), config.JobsConfig{
		OverdueSchedule: "@hourly",
		ExpirySchedule:  "@daily",
	}, logger)

	if got := s.Entries(); got != 2 {
		t.Errorf("registered jobs = %d, want 2", got)
	}
}

func TestSchedulerSkipsBadSpec(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewScheduler(newTestEngine(t), config.JobsConfig{
		OverdueSchedule: "not a cron spec",
		ExpirySchedule:  "@hourly",
	}, logger)

	// The bad spec is dropped, the good one survives.
	if got := s.Entries(); got != 1 {
		t.Errorf("registered jobs = %d, want 1", got)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewScheduler(newTestEngine(t), config.JobsConfig{
		OverdueSchedule: "@hourly",
		ExpirySchedule:  "@hourly",
	}, logger)

	s.Start()
	s.Stop()
}

func TestSweepRunsThroughEngine(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewScheduler(newTestEngine(t), config.JobsConfig{
		OverdueSchedule: "@hourly",
		ExpirySchedule:  "@hourly",
	}, logger)

	// Empty store: both sweeps are no-ops and must not error or panic.
	s.runOverdueSweep()
	s.runExpirySweep()
}
