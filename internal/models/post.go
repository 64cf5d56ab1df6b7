package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Post status values. A post leaves "scheduled" exactly once; "posted" and
// "failed" are terminal for the pipeline.
const (
	PostStatusScheduled = "scheduled"
	PostStatusPosted    = "posted"
	PostStatusFailed    = "failed"
)

// Per-account outcome values for multi-account posts.
const (
	AccountResultPosted = "posted"
	AccountResultFailed = "failed"
)

// StringArray represents a PostgreSQL text[] type
type StringArray []string

// Scan implements the sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		// Handle PostgreSQL array format: {value1,value2,value3}
		if v == "{}" || v == "" {
			*s = StringArray{}
			return nil
		}

		trimmed := strings.Trim(v, "{}")
		if trimmed == "" {
			*s = StringArray{}
			return nil
		}

		parts := strings.Split(trimmed, ",")
		result := make([]string, len(parts))
		for i, part := range parts {
			result[i] = strings.Trim(strings.TrimSpace(part), "\"")
		}
		*s = result
		return nil
	case []byte:
		// Try to parse as JSON first
		var arr []string
		if err := json.Unmarshal(v, &arr); err == nil {
			*s = arr
			return nil
		}
		return s.Scan(string(v))
	default:
		return errors.New(fmt.Sprintf("cannot scan %T into StringArray", value))
	}
}

// Value implements the driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}

	quoted := make([]string, len(s))
	for i, v := range s {
		escaped := strings.ReplaceAll(v, "\"", "\\\"")
		quoted[i] = fmt.Sprintf("\"%s\"", escaped)
	}

	return fmt.Sprintf("{%s}", strings.Join(quoted, ",")), nil
}

// AccountResult records the outcome of one publish attempt against one
// account of a multi-account post.
type AccountResult struct {
	AccountID string     `json:"account_id"`
	Status    string     `json:"status"`
	PostID    string     `json:"post_id,omitempty"`
	Error     string     `json:"error,omitempty"`
	PostedAt  *time.Time `json:"posted_at,omitempty"`
}

// AccountResults is stored as a jsonb column.
type AccountResults []AccountResult

// Scan implements the sql.Scanner interface
func (r *AccountResults) Scan(value interface{}) error {
	if value == nil {
		*r = AccountResults{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("cannot scan %T into AccountResults", value)
	}
}

// Value implements the driver.Valuer interface
func (r AccountResults) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "[]", nil
	}
	return json.Marshal(r)
}

// ScheduledPost is a LinkedIn post waiting for (or finished with) publication.
// Only the pipeline-owned fields (Status, Attempts, PostedAccounts,
// LinkedInPostID, PostedAt, ErrorMessage) change after creation; content and
// schedule are edited through the API while the post is still scheduled.
type ScheduledPost struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         string         `gorm:"not null;index" json:"user_id"`
	Content        string         `gorm:"type:text;not null;size:3000" json:"content"`
	ScheduledAt    time.Time      `gorm:"not null;index" json:"scheduled_at"`
	Status         string         `gorm:"size:50;default:'scheduled';index" json:"status"`
	ImageURL       string         `gorm:"size:1000" json:"image_url"`
	HasImage       bool           `gorm:"default:false" json:"has_image"`
	AccountID      string         `gorm:"size:64" json:"account_id"`
	AccountIDs     StringArray    `gorm:"type:text[]" json:"account_ids"`
	IsMultiAccount bool           `gorm:"default:false" json:"is_multi_account"`
	PostedAccounts AccountResults `gorm:"type:jsonb" json:"posted_accounts"`
	LinkedInPostID string         `gorm:"size:255" json:"linkedin_post_id"`
	ErrorMessage   string         `gorm:"type:text" json:"error_message"`
	Attempts       int            `gorm:"default:0" json:"attempts"`
	PostedAt       *time.Time     `json:"posted_at"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
