package models

import (
	"time"

	"gorm.io/gorm"
)

// LinkedInAccount is one connected publishing identity. Disconnecting is a
// soft delete (IsActive=false); at most one account per user carries
// IsDefault=true, enforced by AccountStore.SetDefault.
type LinkedInAccount struct {
	ID           string         `gorm:"primaryKey;size:64" json:"id"`
	UserID       string         `gorm:"not null;index:idx_accounts_user_default" json:"user_id"`
	LinkedInID   string         `gorm:"not null;size:255" json:"linkedin_id"`
	Name         string         `gorm:"size:255" json:"name"`
	AccessToken  string         `gorm:"type:text" json:"-"`
	RefreshToken string         `gorm:"type:text" json:"-"`
	MemberURN    string         `gorm:"size:255" json:"member_urn"`
	AccountType  string         `gorm:"size:50;default:'personal'" json:"account_type"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	IsDefault    bool           `gorm:"default:false;index:idx_accounts_user_default" json:"is_default"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
