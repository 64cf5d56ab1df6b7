package service

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rkoval/postwave/internal/models"
)

// ErrorRecorder is what the pipeline needs from monitoring.
type ErrorRecorder interface {
	RecordError(level, source, title, message string, options ...ErrorLogOption) error
}

type MonitoringService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewMonitoringService(db *gorm.DB, logger *zap.Logger) *MonitoringService {
	return &MonitoringService{
		db:     db,
		logger: logger,
	}
}

func (m *MonitoringService) RecordError(level, source, title, message string, options ...ErrorLogOption) error {
	errorLog := &models.ErrorLog{
		Level:   level,
		Source:  source,
		Title:   title,
		Message: message,
	}

	for _, option := range options {
		option(errorLog)
	}

	return m.db.Create(errorLog).Error
}

type ErrorLogOption func(*models.ErrorLog)

func WithPost(postID uint) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.PostID = &postID
	}
}

func WithAccount(accountID string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.AccountID = accountID
	}
}

func WithContext(context map[string]interface{}) ErrorLogOption {
	return func(e *models.ErrorLog) {
		if contextBytes, err := json.Marshal(context); err == nil {
			e.Context = string(contextBytes)
		}
	}
}

// UpdateSystemStats refreshes today's roll-up of post and account counts.
func (m *MonitoringService) UpdateSystemStats() error {
	today := time.Now().Truncate(24 * time.Hour)

	var stats models.SystemStats
	result := m.db.Where("date = ?", today).First(&stats)

	var totalPosts, scheduledPosts, postedPosts, failedPosts int64
	m.db.Model(&models.ScheduledPost{}).Count(&totalPosts)
	m.db.Model(&models.ScheduledPost{}).Where("status = ?", models.PostStatusScheduled).Count(&scheduledPosts)
	m.db.Model(&models.ScheduledPost{}).Where("status = ?", models.PostStatusPosted).Count(&postedPosts)
	m.db.Model(&models.ScheduledPost{}).Where("status = ?", models.PostStatusFailed).Count(&failedPosts)

	var totalAccounts, activeAccounts int64
	m.db.Model(&models.LinkedInAccount{}).Count(&totalAccounts)
	m.db.Model(&models.LinkedInAccount{}).Where("is_active = ?", true).Count(&activeAccounts)

	var unresolvedErrors int64
	m.db.Model(&models.ErrorLog{}).Where("resolved = ?", false).Count(&unresolvedErrors)

	if result.Error == gorm.ErrRecordNotFound {
		stats = models.SystemStats{
			Date:             today,
			TotalPosts:       int(totalPosts),
			ScheduledPosts:   int(scheduledPosts),
			PostedPosts:      int(postedPosts),
			FailedPosts:      int(failedPosts),
			TotalAccounts:    int(totalAccounts),
			ActiveAccounts:   int(activeAccounts),
			UnresolvedErrors: int(unresolvedErrors),
		}
		return m.db.Create(&stats).Error
	}

	return m.db.Model(&stats).Updates(map[string]interface{}{
		"total_posts":       totalPosts,
		"scheduled_posts":   scheduledPosts,
		"posted_posts":      postedPosts,
		"failed_posts":      failedPosts,
		"total_accounts":    totalAccounts,
		"active_accounts":   activeAccounts,
		"unresolved_errors": unresolvedErrors,
	}).Error
}

// CleanupOldData removes error logs and stats rows older than the retention
// window.
func (m *MonitoringService) CleanupOldData(retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	if err := m.db.Unscoped().
		Where("created_at < ? AND resolved = ?", cutoff, true).
		Delete(&models.ErrorLog{}).Error; err != nil {
		return err
	}

	return m.db.Unscoped().
		Where("date < ?", cutoff).
		Delete(&models.SystemStats{}).Error
}
