package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rkoval/postwave/internal/config"
	"github.com/rkoval/postwave/internal/models"
	"github.com/rkoval/postwave/internal/service/linkedin"
	"github.com/rkoval/postwave/pkg/util"
)

// PlatformClient is the slice of the LinkedIn API the pipeline uses.
// *linkedin.Client implements it.
type PlatformClient interface {
	MemberURN(ctx context.Context, accessToken string) (string, error)
	UploadImage(ctx context.Context, accessToken, ownerURN string, data []byte, contentType string) (string, error)
	CreatePost(ctx context.Context, accessToken, authorURN, text, assetURN string) (string, error)
}

// ErrPassRunning is returned when a scheduling pass is requested while a
// previous one has not finished. Both the ticker and the manual trigger go
// through the same guard, so passes never overlap.
var ErrPassRunning = errors.New("a scheduling pass is already running")

// PublisherService runs the publication pass: it selects due posts, resolves
// credentials, uploads assets, submits publish calls, and reconciles post and
// account state with the outcome.
type PublisherService struct {
	logger     *zap.Logger
	config     *config.SchedulerConfig
	posts      PostStore
	accounts   AccountStore
	files      FileStore
	client     PlatformClient
	resolver   *CredentialResolver
	monitoring ErrorRecorder
	running    atomic.Bool
}

func NewPublisherService(cfg *config.SchedulerConfig, logger *zap.Logger, posts PostStore, accounts AccountStore, files FileStore, client PlatformClient, monitoring ErrorRecorder) *PublisherService {
	return &PublisherService{
		logger:     logger,
		config:     cfg,
		posts:      posts,
		accounts:   accounts,
		files:      files,
		client:     client,
		resolver:   NewCredentialResolver(accounts, logger),
		monitoring: monitoring,
	}
}

// ProcessDuePosts runs one scheduling pass. Posts are processed sequentially;
// a failure in one never aborts the rest. Only store-level errors on the due
// query itself bubble up. A call overlapping a still-running pass returns
// ErrPassRunning without touching any post.
func (s *PublisherService) ProcessDuePosts(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrPassRunning
	}
	defer s.running.Store(false)

	now := time.Now()

	posts, err := s.posts.FindDue(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to select due posts: %w", err)
	}

	if len(posts) == 0 {
		return nil
	}

	s.logger.Info("Processing due posts", zap.Int("count", len(posts)))

	for i := range posts {
		s.processPost(ctx, &posts[i])
	}

	return nil
}

func (s *PublisherService) processPost(ctx context.Context, post *models.ScheduledPost) {
	logger := s.logger.With(
		zap.Uint("post_id", post.ID),
		zap.String("user_id", post.UserID))

	logger.Info("Processing scheduled post",
		zap.Time("scheduled_at", post.ScheduledAt),
		zap.Bool("has_image", post.HasImage),
		zap.Bool("multi_account", post.IsMultiAccount),
		zap.String("content", util.Truncate(post.Content, 80)))

	accounts, err := s.resolver.Resolve(ctx, post)
	if err != nil {
		if errors.Is(err, ErrNoAccount) {
			s.failPost(ctx, post, err.Error(), nil)
			return
		}
		// Storage error; the post stays scheduled and the next tick retries.
		logger.Error("Credential resolution failed", zap.Error(err))
		return
	}

	if post.IsMultiAccount {
		s.publishFanOut(ctx, post, accounts)
		return
	}

	account := accounts[0]
	remotePostID, err := s.publishToAccount(ctx, post, &account)
	if err != nil {
		s.applyAccountSideEffects(ctx, &account, err)
		s.handlePublishError(ctx, post, err)
		return
	}

	if err := s.posts.MarkPosted(ctx, post.ID, remotePostID, nil); err != nil {
		logger.Error("Failed to record posted status", zap.Error(err))
		return
	}

	logger.Info("Post published",
		zap.String("linkedin_post_id", remotePostID),
		zap.String("account", account.Name))
}

// publishFanOut publishes one multi-account post to every resolved account
// sequentially. One account's failure never aborts another's attempt, and
// every attempted account gets exactly one result entry. The aggregate is
// posted as soon as a single account succeeds.
func (s *PublisherService) publishFanOut(ctx context.Context, post *models.ScheduledPost, accounts []ResolvedAccount) {
	results := make(models.AccountResults, 0, len(accounts))
	successes := 0
	firstRemoteID := ""

	for i := range accounts {
		account := &accounts[i]

		remotePostID, err := s.publishToAccount(ctx, post, account)
		if err != nil {
			message := failureMessage(err)
			s.applyAccountSideEffects(ctx, account, err)
			s.recordError(post.ID, account.AccountID, "Failed to publish to account", message)
			s.logger.Error("Fan-out publish failed for account",
				zap.Uint("post_id", post.ID),
				zap.String("account_id", account.AccountID),
				zap.Error(err))

			results = append(results, models.AccountResult{
				AccountID: account.AccountID,
				Status:    models.AccountResultFailed,
				Error:     message,
			})
			continue
		}

		now := time.Now()
		results = append(results, models.AccountResult{
			AccountID: account.AccountID,
			Status:    models.AccountResultPosted,
			PostID:    remotePostID,
			PostedAt:  &now,
		})
		successes++
		if firstRemoteID == "" {
			firstRemoteID = remotePostID
		}
	}

	if successes > 0 {
		if err := s.posts.MarkPosted(ctx, post.ID, firstRemoteID, results); err != nil {
			s.logger.Error("Failed to record posted status",
				zap.Uint("post_id", post.ID), zap.Error(err))
			return
		}
		s.logger.Info("Multi-account post published",
			zap.Uint("post_id", post.ID),
			zap.Int("succeeded", successes),
			zap.Int("failed", len(results)-successes))
		return
	}

	message := fmt.Sprintf("all %d targeted accounts failed", len(results))
	if err := s.posts.MarkFailed(ctx, post.ID, message, results); err != nil {
		s.logger.Error("Failed to record failed status",
			zap.Uint("post_id", post.ID), zap.Error(err))
	}
}

// publishToAccount performs the full publish for one post under one account:
// lazy member-URN resolution, optional two-phase asset upload, then the UGC
// post call. An upload failure returns before any publish attempt.
func (s *PublisherService) publishToAccount(ctx context.Context, post *models.ScheduledPost, account *ResolvedAccount) (string, error) {
	if account.MemberURN == "" {
		urn, err := s.client.MemberURN(ctx, account.AccessToken)
		if err != nil {
			return "", fmt.Errorf("failed to resolve member URN: %w", err)
		}
		s.saveMemberURN(ctx, account, urn)
		account.MemberURN = urn
	}

	assetURN := ""
	if post.HasImage && post.ImageURL != "" {
		data, contentType, err := s.files.ReadImage(post.ImageURL)
		if err != nil {
			return "", &linkedin.UploadError{Phase: "read", Err: err}
		}

		assetURN, err = s.client.UploadImage(ctx, account.AccessToken, account.MemberURN, data, contentType)
		if err != nil {
			return "", err
		}

		s.logger.Debug("Image uploaded",
			zap.Uint("post_id", post.ID),
			zap.String("asset", assetURN))
	}

	return s.client.CreatePost(ctx, account.AccessToken, account.MemberURN, post.Content, assetURN)
}

// handlePublishError decides between a bounded requeue and a terminal failure
// for a single-account post. Credential revocations and upload failures are
// terminal on first occurrence; stale author references and generic remote
// errors retry until the attempt budget runs out.
func (s *PublisherService) handlePublishError(ctx context.Context, post *models.ScheduledPost, err error) {
	message := failureMessage(err)

	if retryable(err) && post.Attempts+1 < s.config.MaxAttempts {
		attempts := post.Attempts + 1
		if reqErr := s.posts.Requeue(ctx, post.ID, attempts, message); reqErr != nil {
			s.logger.Error("Failed to requeue post",
				zap.Uint("post_id", post.ID), zap.Error(reqErr))
			return
		}
		s.logger.Warn("Publish failed, will retry",
			zap.Uint("post_id", post.ID),
			zap.Int("attempts", attempts),
			zap.Int("max_attempts", s.config.MaxAttempts),
			zap.Error(err))
		return
	}

	s.failPost(ctx, post, message, err)
}

func (s *PublisherService) failPost(ctx context.Context, post *models.ScheduledPost, message string, cause error) {
	if err := s.posts.MarkFailed(ctx, post.ID, message, nil); err != nil {
		s.logger.Error("Failed to record failed status",
			zap.Uint("post_id", post.ID), zap.Error(err))
		return
	}

	s.recordError(post.ID, "", "Scheduled post failed", message)
	s.logger.Error("Post failed",
		zap.Uint("post_id", post.ID),
		zap.String("reason", message),
		zap.Error(cause))
}

// applyAccountSideEffects reconciles account state with the error class:
// revoked credentials disconnect the account, a rejected author reference
// clears the cached member URN so the next attempt re-resolves it.
func (s *PublisherService) applyAccountSideEffects(ctx context.Context, account *ResolvedAccount, err error) {
	switch {
	case errors.Is(err, linkedin.ErrUnauthorized), errors.Is(err, linkedin.ErrForbidden):
		var sideErr error
		if account.Legacy {
			sideErr = s.accounts.DisconnectLegacy(ctx, account.UserID)
		} else {
			sideErr = s.accounts.Deactivate(ctx, account.AccountID)
		}
		if sideErr != nil {
			s.logger.Error("Failed to disconnect account",
				zap.String("account_id", account.AccountID), zap.Error(sideErr))
		} else {
			s.logger.Warn("Account disconnected after credential rejection",
				zap.String("account_id", account.AccountID),
				zap.String("user_id", account.UserID))
		}

	case errors.Is(err, linkedin.ErrUnprocessable):
		var sideErr error
		if account.Legacy {
			sideErr = s.accounts.ClearLegacyMemberURN(ctx, account.UserID)
		} else {
			sideErr = s.accounts.ClearMemberURN(ctx, account.AccountID)
		}
		if sideErr != nil {
			s.logger.Error("Failed to clear member URN",
				zap.String("account_id", account.AccountID), zap.Error(sideErr))
		}
	}
}

func (s *PublisherService) saveMemberURN(ctx context.Context, account *ResolvedAccount, urn string) {
	var err error
	if account.Legacy {
		err = s.accounts.SaveLegacyMemberURN(ctx, account.UserID, urn)
	} else {
		err = s.accounts.SaveMemberURN(ctx, account.AccountID, urn)
	}
	if err != nil {
		s.logger.Error("Failed to persist member URN",
			zap.String("account_id", account.AccountID), zap.Error(err))
	}
}

func (s *PublisherService) recordError(postID uint, accountID, title, message string) {
	if s.monitoring == nil {
		return
	}

	options := []ErrorLogOption{WithPost(postID)}
	if accountID != "" {
		options = append(options, WithAccount(accountID))
	}

	if err := s.monitoring.RecordError("ERROR", "publisher", title, message, options...); err != nil {
		s.logger.Error("Failed to record error log", zap.Error(err))
	}
}

// retryable reports whether the next tick should attempt the post again.
// Credential revocations and asset upload failures are permanent until a
// human intervenes, so they fail terminally.
func retryable(err error) bool {
	var uploadErr *linkedin.UploadError
	if errors.As(err, &uploadErr) {
		return false
	}
	if errors.Is(err, linkedin.ErrUnauthorized) || errors.Is(err, linkedin.ErrForbidden) {
		return false
	}
	return true
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, linkedin.ErrUnauthorized):
		return "LinkedIn token expired. Please reconnect your LinkedIn account."
	case errors.Is(err, linkedin.ErrForbidden):
		return "LinkedIn access denied. Please reconnect your LinkedIn account."
	case errors.Is(err, linkedin.ErrUnprocessable):
		return "LinkedIn rejected the author reference. It will be refreshed on the next attempt."
	default:
		return err.Error()
	}
}
