package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rkoval/postwave/internal/models"
	"github.com/rkoval/postwave/internal/service"
)

type schedulePostRequest struct {
	UserID        string    `json:"userId" binding:"required"`
	Content       string    `json:"content" binding:"required,max=3000"`
	ScheduledTime time.Time `json:"scheduledTime" binding:"required"`
	ImageURL      string    `json:"imageUrl"`
	HasImage      bool      `json:"hasImage"`
	AccountID     string    `json:"accountId"`
	AccountIDs    []string  `json:"accountIds"`
}

type updatePostRequest struct {
	Content       string    `json:"content" binding:"required,max=3000"`
	ScheduledTime time.Time `json:"scheduledTime" binding:"required"`
}

func (s *Server) handleSchedulePost(c *gin.Context) {
	var req schedulePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post := models.ScheduledPost{
		UserID:         req.UserID,
		Content:        req.Content,
		ScheduledAt:    req.ScheduledTime,
		Status:         models.PostStatusScheduled,
		ImageURL:       req.ImageURL,
		HasImage:       req.HasImage,
		AccountID:      req.AccountID,
		AccountIDs:     req.AccountIDs,
		IsMultiAccount: len(req.AccountIDs) > 0,
	}

	if err := s.DB.Create(&post).Error; err != nil {
		s.Logger.Error("Failed to schedule post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule post"})
		return
	}

	c.JSON(http.StatusCreated, post)
}

func (s *Server) handleGetScheduledPosts(c *gin.Context) {
	var posts []models.ScheduledPost
	err := s.DB.
		Where("user_id = ? AND status IN ?", c.Param("userId"),
			[]string{models.PostStatusScheduled, models.PostStatusFailed}).
		Order("scheduled_at ASC").
		Find(&posts).Error
	if err != nil {
		s.Logger.Error("Failed to get scheduled posts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (s *Server) handleGetPostHistory(c *gin.Context) {
	var posts []models.ScheduledPost
	err := s.DB.
		Where("user_id = ? AND status IN ?", c.Param("userId"),
			[]string{models.PostStatusPosted, models.PostStatusFailed}).
		Order("updated_at DESC").
		Find(&posts).Error
	if err != nil {
		s.Logger.Error("Failed to get post history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// handleUpdatePost edits content and schedule of a post that has not been
// published yet. Terminal posts are immutable through this route.
func (s *Server) handleUpdatePost(c *gin.Context) {
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var post models.ScheduledPost
	if err := s.DB.Where("id = ?", c.Param("postId")).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		s.Logger.Error("Failed to load post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
		return
	}

	if post.Status != models.PostStatusScheduled {
		c.JSON(http.StatusConflict, gin.H{"error": "Only scheduled posts can be edited"})
		return
	}

	err := s.DB.Model(&post).Updates(map[string]interface{}{
		"content":      req.Content,
		"scheduled_at": req.ScheduledTime,
	}).Error
	if err != nil {
		s.Logger.Error("Failed to update post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
		return
	}

	c.JSON(http.StatusOK, post)
}

func (s *Server) handleDeletePost(c *gin.Context) {
	result := s.DB.Where("id = ?", c.Param("postId")).Delete(&models.ScheduledPost{})
	if result.Error != nil {
		s.Logger.Error("Failed to delete post", zap.Error(result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// handleTriggerScheduler runs one scheduling pass outside the timer. The pass
// shares the overlap guard with the ticker, so a trigger landing during a
// running pass is rejected instead of publishing concurrently.
func (s *Server) handleTriggerScheduler(c *gin.Context) {
	if err := s.Publisher.ProcessDuePosts(c.Request.Context()); err != nil {
		if errors.Is(err, service.ErrPassRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": "A scheduling pass is already running"})
			return
		}
		s.Logger.Error("Manual scheduling pass failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run scheduling pass"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Scheduling pass completed"})
}
