package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rkoval/postwave/internal/models"
)

// ErrStateNotFound covers unknown, already-consumed, and expired states; the
// handshake treats all three identically.
var ErrStateNotFound = errors.New("oauth state not found or expired")

// OAuthStateStore persists transient OAuth handshake state with a TTL, so the
// handshake survives a process restart and works across instances.
type OAuthStateStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewOAuthStateStore(db *gorm.DB, logger *zap.Logger) *OAuthStateStore {
	return &OAuthStateStore{
		db:     db,
		logger: logger,
	}
}

// Create stores a new state token for the user and returns it.
func (s *OAuthStateStore) Create(ctx context.Context, userID, codeVerifier string, ttl time.Duration) (string, error) {
	state := uuid.NewString()

	record := &models.OAuthState{
		State:        state,
		UserID:       userID,
		CodeVerifier: codeVerifier,
		ExpiresAt:    time.Now().Add(ttl),
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}

	return state, nil
}

// Consume looks up a state token and deletes it, so each state is usable at
// most once. Expired states are rejected even before the purge sweep removes
// them.
func (s *OAuthStateStore) Consume(ctx context.Context, state string) (*models.OAuthState, error) {
	var record models.OAuthState
	err := s.db.WithContext(ctx).Where("state = ?", state).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up oauth state: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to consume oauth state: %w", err)
	}

	if time.Now().After(record.ExpiresAt) {
		return nil, ErrStateNotFound
	}

	return &record, nil
}

// PurgeExpired removes states past their TTL and returns how many were swept.
func (s *OAuthStateStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.OAuthState{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge oauth states: %w", result.Error)
	}
	return result.RowsAffected, nil
}
