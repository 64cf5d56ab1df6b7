package models

import (
	"time"
)

// OAuthState is the transient state handed to LinkedIn during the OAuth
// handshake. Rows are one-shot: consumed on callback, and expired rows are
// swept periodically, so state survives process restarts.
type OAuthState struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	State        string    `gorm:"uniqueIndex;not null;size:64" json:"state"`
	UserID       string    `gorm:"not null;size:255" json:"user_id"`
	CodeVerifier string    `gorm:"size:255" json:"-"`
	ExpiresAt    time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
