package models

import (
	"time"
)

// ErrorLog captures pipeline and API failures for the history/dashboard views.
type ErrorLog struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Level      string     `gorm:"size:20;not null;index" json:"level"`
	Source     string     `gorm:"size:100;not null;index" json:"source"`
	PostID     *uint      `gorm:"index" json:"post_id"`
	AccountID  string     `gorm:"size:64;index" json:"account_id"`
	Title      string     `gorm:"size:500;not null" json:"title"`
	Message    string     `gorm:"type:text;not null" json:"message"`
	Context    string     `gorm:"type:jsonb" json:"context"`
	Resolved   bool       `gorm:"default:false;index" json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Post *ScheduledPost `gorm:"foreignKey:PostID" json:"post,omitempty"`
}

// SystemStats is one daily roll-up of post and account counts.
type SystemStats struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Date             time.Time `gorm:"uniqueIndex;not null" json:"date"`
	TotalPosts       int       `gorm:"default:0" json:"total_posts"`
	ScheduledPosts   int       `gorm:"default:0" json:"scheduled_posts"`
	PostedPosts      int       `gorm:"default:0" json:"posted_posts"`
	FailedPosts      int       `gorm:"default:0" json:"failed_posts"`
	TotalAccounts    int       `gorm:"default:0" json:"total_accounts"`
	ActiveAccounts   int       `gorm:"default:0" json:"active_accounts"`
	UnresolvedErrors int       `gorm:"default:0" json:"unresolved_errors"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
