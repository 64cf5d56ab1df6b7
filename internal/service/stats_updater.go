package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// statsRetentionDays is how long error logs and daily stats are kept.
const statsRetentionDays = 90

// StatsUpdater handles periodic statistics updates and housekeeping.
type StatsUpdater struct {
	monitoringService *MonitoringService
	oauthStates       *OAuthStateStore
	logger            *zap.Logger
	ticker            *time.Ticker
	done              chan bool
}

// NewStatsUpdater creates a new stats updater
func NewStatsUpdater(monitoringService *MonitoringService, oauthStates *OAuthStateStore, logger *zap.Logger, interval time.Duration) *StatsUpdater {
	return &StatsUpdater{
		monitoringService: monitoringService,
		oauthStates:       oauthStates,
		logger:            logger,
		ticker:            time.NewTicker(interval),
		done:              make(chan bool),
	}
}

// Start begins the periodic stats update process
func (s *StatsUpdater) Start(ctx context.Context) {
	go func() {
		s.logger.Info("Starting stats updater")
		for {
			select {
			case <-s.done:
				s.logger.Info("Stats updater stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Stats updater stopped due to context cancellation")
				return
			case <-s.ticker.C:
				s.updateStats(ctx)
			}
		}
	}()
}

// Stop stops the stats updater
func (s *StatsUpdater) Stop() {
	s.ticker.Stop()
	close(s.done)
}

// updateStats performs the actual stats update
func (s *StatsUpdater) updateStats(ctx context.Context) {
	s.logger.Debug("Updating statistics")

	if err := s.monitoringService.UpdateSystemStats(); err != nil {
		s.logger.Error("Failed to update system stats", zap.Error(err))
	}

	if err := s.monitoringService.CleanupOldData(statsRetentionDays); err != nil {
		s.logger.Error("Failed to cleanup old data", zap.Error(err))
	}

	if purged, err := s.oauthStates.PurgeExpired(ctx); err != nil {
		s.logger.Error("Failed to purge expired OAuth states", zap.Error(err))
	} else if purged > 0 {
		s.logger.Debug("Purged expired OAuth states", zap.Int64("count", purged))
	}

	s.logger.Debug("Statistics updated successfully")
}
