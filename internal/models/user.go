package models

import (
	"time"
)

// User holds the owner identity plus the legacy single-account LinkedIn
// credentials that predate the LinkedInAccount table. The legacy fields stay
// readable so posts created before multi-account support still publish.
type User struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	ClerkID              string    `gorm:"uniqueIndex;not null;size:255" json:"clerk_id"`
	Email                string    `gorm:"not null;size:255" json:"email"`
	LinkedInID           string    `gorm:"size:255" json:"linkedin_id"`
	LinkedInName         string    `gorm:"size:255" json:"linkedin_name"`
	LinkedInAccessToken  string    `gorm:"type:text" json:"-"`
	LinkedInRefreshToken string    `gorm:"type:text" json:"-"`
	LinkedInMemberURN    string    `gorm:"size:255" json:"linkedin_member_urn"`
	IsLinkedInConnected  bool      `gorm:"default:false" json:"is_linkedin_connected"`
	DefaultAccountID     string    `gorm:"size:64" json:"default_account_id"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
