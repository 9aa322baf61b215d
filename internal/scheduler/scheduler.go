// Package scheduler triggers the daily batch crawl.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rankwatch/placerank/internal/rank"
)

// BatchRunner runs one full crawl over the active campaigns.
type BatchRunner interface {
	RunAll(ctx context.Context) (rank.BatchSummary, error)
}

// Config sets the daily trigger time in the given timezone.
type Config struct {
	Hour     int
	Minute   int
	Timezone string
}

// Scheduler invokes the batch orchestrator once per day. It holds no state
// of its own beyond the cron entry; batch outcomes are only logged since
// there is no caller to report to.
type Scheduler struct {
	cron    *cron.Cron
	entryID cron.EntryID
	runner  BatchRunner
	logger  *zap.Logger
}

// New builds a Scheduler firing daily at cfg.Hour:cfg.Minute local to
// cfg.Timezone.
func New(cfg Config, runner BatchRunner, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		runner: runner,
		logger: logger,
	}
	spec := fmt.Sprintf("%d %d * * *", cfg.Minute, cfg.Hour)
	entryID, err := s.cron.AddFunc(spec, s.runScheduled)
	if err != nil {
		return nil, fmt.Errorf("register cron entry %q: %w", spec, err)
	}
	s.entryID = entryID
	logger.Info("daily crawl scheduled",
		zap.Int("hour", cfg.Hour),
		zap.Int("minute", cfg.Minute),
		zap.String("timezone", cfg.Timezone),
	)
	return s, nil
}

// Start begins firing scheduled runs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next reports the next scheduled run time.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}

func (s *Scheduler) runScheduled() {
	s.logger.Info("scheduled crawl starting")
	summary, err := s.runner.RunAll(context.Background())
	if err != nil {
		s.logger.Error("scheduled crawl failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled crawl finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed),
	)
}
