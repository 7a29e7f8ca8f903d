// Package scheduler fires the daily digest run.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule = "0 9 * * *"
	DefaultTimezone = "Asia/Seoul"
)

// Job is the work fired on every tick.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron schedule in a fixed location.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	logger   *slog.Logger
	entryID  cron.EntryID
}

func New(schedule string, loc *time.Location, logger *slog.Logger) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: schedule,
		logger:   logger.With("component", "scheduler"),
	}
}

// Add registers job. Errors returned by job are logged, never propagated.
func (s *Scheduler) Add(ctx context.Context, job Job) error {
	id, err := s.cron.AddFunc(s.schedule, func() {
		s.logger.Info("cron triggered")
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled run failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entryID = id
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("cron job started", "schedule", s.schedule, "next", s.Next())
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// Next reports the next activation, zero before Start or Add.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}
