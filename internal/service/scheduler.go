package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rkoval/postwave/internal/config"
)

// Scheduler drives the publication pipeline on a fixed interval. A tick that
// would overlap a still-running pass (including one started by the manual
// trigger) is skipped, never run concurrently.
type Scheduler struct {
	config    *config.SchedulerConfig
	logger    *zap.Logger
	publisher *PublisherService
	ticker    *time.Ticker
	stopCh    chan struct{}
}

func NewScheduler(cfg *config.SchedulerConfig, logger *zap.Logger, publisher *PublisherService) *Scheduler {
	return &Scheduler{
		config:    cfg,
		logger:    logger,
		publisher: publisher,
		stopCh:    make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	interval, err := time.ParseDuration(s.config.Interval)
	if err != nil {
		s.logger.Error("Invalid scheduler interval", zap.String("interval", s.config.Interval), zap.Error(err))
		return err
	}

	s.logger.Info("Starting scheduler", zap.String("interval", s.config.Interval))

	s.ticker = time.NewTicker(interval)

	// Run first pass immediately
	go func() {
		s.logger.Info("Running initial scheduling pass")
		s.runPass(ctx)
	}()

	// Start periodic passes
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.runPass(ctx)
			case <-s.stopCh:
				s.logger.Info("Scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Scheduler context cancelled")
				return
			}
		}
	}()

	return nil
}

func (s *Scheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
	s.logger.Info("Scheduler shutdown completed")
}

func (s *Scheduler) runPass(ctx context.Context) {
	start := time.Now()
	err := s.publisher.ProcessDuePosts(ctx)
	duration := time.Since(start)

	if errors.Is(err, ErrPassRunning) {
		s.logger.Warn("Previous scheduling pass still running, skipping tick")
		return
	}
	if err != nil {
		s.logger.Error("Scheduling pass failed",
			zap.Error(err),
			zap.Duration("duration", duration))
		return
	}

	s.logger.Debug("Scheduling pass completed",
		zap.Duration("duration", duration))
}
