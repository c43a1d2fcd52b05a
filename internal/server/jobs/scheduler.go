// Package jobs runs periodic maintenance for the auth server.
package jobs

import (
	"context"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/logging"
	"github.com/robfig/cron/v3"
)

// ResetSweeper clears reset tokens whose stored expiry has passed.
type ResetSweeper interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler sweeps expired password-reset tokens on a cron schedule
// (six fields, seconds first). Expired tokens are already rejected at
// redemption; the sweep only keeps the table tidy.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	sweeper  ResetSweeper
	log      logging.Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewScheduler(schedule string, sweeper ResetSweeper, log logging.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		schedule: schedule,
		sweeper:  sweeper,
		log:      log,
		timeout:  30 * time.Second,
		now:      time.Now,
	}
}

// Start registers the sweep and starts the cron loop. An empty schedule
// disables the job.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running sweep or ctx, whichever
// comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.SweepOnce(ctx); err != nil {
		s.log.Error(ctx, "reset token sweep failed", "error", err)
	}
}

// SweepOnce clears expired reset tokens and returns how many were cleared.
func (s *Scheduler) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.sweeper.ClearExpiredResetTokens(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info(ctx, "expired reset tokens cleared", "count", n)
	}
	return n, nil
}
