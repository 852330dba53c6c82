package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

// AllRunner runs a scan over every configured source.
type AllRunner interface {
	RunAll(ctx context.Context, mode Mode)
}

// Scheduler triggers periodic full and incremental scans.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger interfaces.Logger
}

// cronLogger adapts interfaces.Logger to cron.Logger.
type cronLogger struct {
	logger interfaces.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, interfaces.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, interfaces.Error(err), interfaces.Any("details", keysAndValues))
}

// NewScheduler registers the full scan on fullSpec (standard five-field
// cron syntax) and the incremental scan every incremental. Either may be
// disabled with an empty spec or a zero interval. A run that is still in
// progress when its next tick arrives causes that tick to be skipped.
func NewScheduler(runner AllRunner, fullSpec string, incremental time.Duration, logger interfaces.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, ctx: ctx, cancel: cancel, logger: logger}

	if fullSpec != "" {
		if _, err := c.AddFunc(fullSpec, func() {
			s.logger.Info("Scheduled full scan starting")
			runner.RunAll(s.ctx, ModeFull)
		}); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid full scan schedule %q: %w", fullSpec, err)
		}
	}
	if incremental > 0 {
		c.Schedule(cron.Every(incremental), cron.FuncJob(func() {
			s.logger.Debug("Scheduled incremental scan starting")
			runner.RunAll(s.ctx, ModeIncremental)
		}))
	}
	return s, nil
}

// Entries returns the number of scheduled jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scan scheduler started", interfaces.Int("jobs", s.Entries()))
}

// Stop cancels running jobs and waits for them until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
