package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rkoval/postwave/internal/models"
	"github.com/rkoval/postwave/pkg/util"
)

// PostStore is the pipeline's view of scheduled post persistence. Status
// writes are narrow field updates so overlapping passes can never lose each
// other's changes through read-modify-write.
type PostStore interface {
	FindDue(ctx context.Context, now time.Time) ([]models.ScheduledPost, error)
	MarkPosted(ctx context.Context, postID uint, remotePostID string, results models.AccountResults) error
	MarkFailed(ctx context.Context, postID uint, message string, results models.AccountResults) error
	Requeue(ctx context.Context, postID uint, attempts int, message string) error
}

// AccountStore resolves and mutates publishing credential state, covering
// both normalized LinkedInAccount rows and the legacy fields on User.
type AccountStore interface {
	FindByID(ctx context.Context, accountID string) (*models.LinkedInAccount, error)
	FindActiveByIDs(ctx context.Context, accountIDs []string) ([]models.LinkedInAccount, error)
	FindDefault(ctx context.Context, userID string) (*models.LinkedInAccount, error)
	FindAnyActive(ctx context.Context, userID string) (*models.LinkedInAccount, error)
	FindAllActive(ctx context.Context, userID string) ([]models.LinkedInAccount, error)
	SetDefault(ctx context.Context, userID, accountID string) error
	Deactivate(ctx context.Context, accountID string) error
	SaveMemberURN(ctx context.Context, accountID, urn string) error
	ClearMemberURN(ctx context.Context, accountID string) error

	FindUser(ctx context.Context, userID string) (*models.User, error)
	DisconnectLegacy(ctx context.Context, userID string) error
	SaveLegacyMemberURN(ctx context.Context, userID, urn string) error
	ClearLegacyMemberURN(ctx context.Context, userID string) error
}

// FileStore reads image bytes for upload. The pipeline never streams; posts
// attach a single feed image small enough to buffer.
type FileStore interface {
	ReadImage(ref string) (data []byte, contentType string, err error)
}

type GormPostStore struct {
	db *gorm.DB
}

func NewGormPostStore(db *gorm.DB) *GormPostStore {
	return &GormPostStore{db: db}
}

func (s *GormPostStore) FindDue(ctx context.Context, now time.Time) ([]models.ScheduledPost, error) {
	var posts []models.ScheduledPost
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", models.PostStatusScheduled, now).
		Order("scheduled_at ASC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query due posts: %w", err)
	}
	return posts, nil
}

func (s *GormPostStore) MarkPosted(ctx context.Context, postID uint, remotePostID string, results models.AccountResults) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":            models.PostStatusPosted,
		"linked_in_post_id": remotePostID,
		"posted_at":         &now,
		"error_message":     "",
	}
	if results != nil {
		updates["posted_accounts"] = results
	}
	return s.update(ctx, postID, updates)
}

func (s *GormPostStore) MarkFailed(ctx context.Context, postID uint, message string, results models.AccountResults) error {
	updates := map[string]interface{}{
		"status":        models.PostStatusFailed,
		"error_message": message,
	}
	if results != nil {
		updates["posted_accounts"] = results
	}
	return s.update(ctx, postID, updates)
}

func (s *GormPostStore) Requeue(ctx context.Context, postID uint, attempts int, message string) error {
	return s.update(ctx, postID, map[string]interface{}{
		"attempts":      attempts,
		"error_message": message,
	})
}

func (s *GormPostStore) update(ctx context.Context, postID uint, updates map[string]interface{}) error {
	err := s.db.WithContext(ctx).
		Model(&models.ScheduledPost{}).
		Where("id = ?", postID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update post %d: %w", postID, err)
	}
	return nil
}

type GormAccountStore struct {
	db *gorm.DB
}

func NewGormAccountStore(db *gorm.DB) *GormAccountStore {
	return &GormAccountStore{db: db}
}

func (s *GormAccountStore) FindByID(ctx context.Context, accountID string) (*models.LinkedInAccount, error) {
	var account models.LinkedInAccount
	err := s.db.WithContext(ctx).Where("id = ?", accountID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}
	return &account, nil
}

func (s *GormAccountStore) FindActiveByIDs(ctx context.Context, accountIDs []string) ([]models.LinkedInAccount, error) {
	var accounts []models.LinkedInAccount
	err := s.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", accountIDs, true).
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts: %w", err)
	}
	return accounts, nil
}

func (s *GormAccountStore) FindDefault(ctx context.Context, userID string) (*models.LinkedInAccount, error) {
	var account models.LinkedInAccount
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_default = ? AND is_active = ?", userID, true, true).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find default account: %w", err)
	}
	return &account, nil
}

func (s *GormAccountStore) FindAnyActive(ctx context.Context, userID string) (*models.LinkedInAccount, error) {
	var account models.LinkedInAccount
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at ASC").
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active account: %w", err)
	}
	return &account, nil
}

func (s *GormAccountStore) FindAllActive(ctx context.Context, userID string) ([]models.LinkedInAccount, error) {
	var accounts []models.LinkedInAccount
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("is_default DESC, created_at DESC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts: %w", err)
	}
	return accounts, nil
}

// SetDefault unsets every default for the user before setting the new one,
// keeping at most one default per user.
func (s *GormAccountStore) SetDefault(ctx context.Context, userID, accountID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.LinkedInAccount{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Update("is_default", false).Error; err != nil {
			return fmt.Errorf("failed to clear defaults: %w", err)
		}

		result := tx.Model(&models.LinkedInAccount{}).
			Where("id = ? AND user_id = ? AND is_active = ?", accountID, userID, true).
			Update("is_default", true)
		if result.Error != nil {
			return fmt.Errorf("failed to set default: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Model(&models.User{}).
			Where("clerk_id = ?", userID).
			Update("default_account_id", accountID).Error
	})
}

// Deactivate soft-disconnects an account: it stops being resolvable, loses
// its cached member URN, and any default pointer at it is cleared.
func (s *GormAccountStore) Deactivate(ctx context.Context, accountID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.LinkedInAccount{}).
			Where("id = ?", accountID).
			Updates(map[string]interface{}{
				"is_active":  false,
				"is_default": false,
				"member_urn": "",
			}).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).
			Where("default_account_id = ?", accountID).
			Update("default_account_id", "").Error
	})
	if err != nil {
		return fmt.Errorf("failed to deactivate account %s: %w", accountID, err)
	}
	return nil
}

func (s *GormAccountStore) SaveMemberURN(ctx context.Context, accountID, urn string) error {
	return s.updateAccount(ctx, accountID, "member_urn", urn)
}

func (s *GormAccountStore) ClearMemberURN(ctx context.Context, accountID string) error {
	return s.updateAccount(ctx, accountID, "member_urn", "")
}

func (s *GormAccountStore) updateAccount(ctx context.Context, accountID, column string, value interface{}) error {
	err := s.db.WithContext(ctx).Model(&models.LinkedInAccount{}).
		Where("id = ?", accountID).
		Update(column, value).Error
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", accountID, err)
	}
	return nil
}

func (s *GormAccountStore) FindUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("clerk_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user %s: %w", userID, err)
	}
	return &user, nil
}

func (s *GormAccountStore) DisconnectLegacy(ctx context.Context, userID string) error {
	return s.updateUser(ctx, userID, map[string]interface{}{
		"is_linked_in_connected": false,
		"linked_in_member_urn":   "",
	})
}

func (s *GormAccountStore) SaveLegacyMemberURN(ctx context.Context, userID, urn string) error {
	return s.updateUser(ctx, userID, map[string]interface{}{"linked_in_member_urn": urn})
}

func (s *GormAccountStore) ClearLegacyMemberURN(ctx context.Context, userID string) error {
	return s.updateUser(ctx, userID, map[string]interface{}{"linked_in_member_urn": ""})
}

func (s *GormAccountStore) updateUser(ctx context.Context, userID string, updates map[string]interface{}) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("clerk_id = ?", userID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", userID, err)
	}
	return nil
}

// LocalFileStore serves image references like "/uploads/name.png" from a
// directory on disk.
type LocalFileStore struct {
	baseDir string
}

func NewLocalFileStore(baseDir string) *LocalFileStore {
	return &LocalFileStore{baseDir: baseDir}
}

func (s *LocalFileStore) ReadImage(ref string) ([]byte, string, error) {
	name := strings.TrimPrefix(ref, "/uploads/")
	name = strings.TrimPrefix(name, "uploads/")
	path := filepath.Join(s.baseDir, filepath.Clean("/"+name))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image %s: %w", ref, err)
	}

	return data, util.ImageContentType(path), nil
}
