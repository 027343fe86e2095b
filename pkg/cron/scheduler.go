// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/loan-affordability/internal/domain/rates"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron        *cron.Cron
	rates       *rates.Service
	refreshSpec string
	logger      *slog.Logger
}

// NewScheduler creates a new job scheduler running the reference-rate refresh
// on the given cron spec (standard 5-field format).
func NewScheduler(ratesService *rates.Service, refreshSpec string, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:        c,
		rates:       ratesService,
		refreshSpec: refreshSpec,
		logger:      logger,
	}
}

// Start begins scheduled jobs and runs the first rates refresh immediately so
// the cache is warm before the next scheduled tick.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.refreshSpec, s.refreshRates)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("rates_refresh", s.refreshSpec),
		slog.Int("jobs", len(s.cron.Entries())),
	)

	go s.refreshRates()
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the rates refresh (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.refreshRates()
}

func (s *Scheduler) refreshRates() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.rates.Refresh(ctx); err != nil {
		s.logger.Error("failed to refresh reference rates", slog.Any("error", err))
		return
	}

	s.logger.Info("reference rates refresh completed",
		slog.Int("tenors", len(s.rates.Rates())),
	)
}
