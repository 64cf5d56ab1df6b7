package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rkoval/postwave/internal/models"
)

// ErrNoAccount means credential resolution exhausted every path without
// finding a usable LinkedIn account. Posts failing on it are terminal.
var ErrNoAccount = errors.New("no usable LinkedIn account found")

// ResolvedAccount is the credential context one publish attempt runs under,
// regardless of whether it came from a LinkedInAccount row or the legacy
// fields on User. The publisher never sees the storage shape behind it.
type ResolvedAccount struct {
	AccountID   string // empty for legacy credentials
	UserID      string
	Name        string
	AccessToken string
	MemberURN   string
	Legacy      bool
}

// CredentialResolver picks the account(s) a scheduled post publishes under.
type CredentialResolver struct {
	accounts AccountStore
	logger   *zap.Logger
}

func NewCredentialResolver(accounts AccountStore, logger *zap.Logger) *CredentialResolver {
	return &CredentialResolver{
		accounts: accounts,
		logger:   logger,
	}
}

// Resolve returns the target accounts for a post, in precedence order:
// explicit multi-account set, explicit single account, owner default, any
// active account, then the legacy credentials stored on the user record.
// Inactive accounts are never returned except through the legacy path, which
// predates the active flag.
func (r *CredentialResolver) Resolve(ctx context.Context, post *models.ScheduledPost) ([]ResolvedAccount, error) {
	if post.IsMultiAccount && len(post.AccountIDs) > 0 {
		accounts, err := r.accounts.FindActiveByIDs(ctx, post.AccountIDs)
		if err != nil {
			return nil, err
		}
		if len(accounts) == 0 {
			return nil, fmt.Errorf("none of the targeted accounts are connected: %w", ErrNoAccount)
		}

		resolved := make([]ResolvedAccount, 0, len(accounts))
		for i := range accounts {
			resolved = append(resolved, fromAccount(&accounts[i]))
		}
		return resolved, nil
	}

	if post.AccountID != "" {
		account, err := r.accounts.FindByID(ctx, post.AccountID)
		if err != nil {
			return nil, err
		}
		if account != nil && account.IsActive {
			return []ResolvedAccount{fromAccount(account)}, nil
		}
		// Targeted account was disconnected since scheduling; fall back to
		// the owner's remaining accounts.
		r.logger.Warn("Targeted account unavailable, falling back",
			zap.Uint("post_id", post.ID),
			zap.String("account_id", post.AccountID))
	}

	account, err := r.accounts.FindDefault(ctx, post.UserID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account, err = r.accounts.FindAnyActive(ctx, post.UserID)
		if err != nil {
			return nil, err
		}
	}
	if account != nil {
		return []ResolvedAccount{fromAccount(account)}, nil
	}

	// Legacy single-account credentials stored directly on the user.
	user, err := r.accounts.FindUser(ctx, post.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found: %w", post.UserID, ErrNoAccount)
	}
	if user.LinkedInAccessToken == "" {
		return nil, fmt.Errorf("LinkedIn not connected: %w", ErrNoAccount)
	}

	return []ResolvedAccount{{
		UserID:      user.ClerkID,
		Name:        user.LinkedInName,
		AccessToken: user.LinkedInAccessToken,
		MemberURN:   user.LinkedInMemberURN,
		Legacy:      true,
	}}, nil
}

func fromAccount(account *models.LinkedInAccount) ResolvedAccount {
	return ResolvedAccount{
		AccountID:   account.ID,
		UserID:      account.UserID,
		Name:        account.Name,
		AccessToken: account.AccessToken,
		MemberURN:   account.MemberURN,
	}
}
