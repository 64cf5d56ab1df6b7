package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Server) handleGetAccounts(c *gin.Context) {
	accounts, err := s.Accounts.FindAllActive(c.Request.Context(), c.Param("userId"))
	if err != nil {
		s.Logger.Error("Failed to get accounts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch accounts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (s *Server) handleSetDefaultAccount(c *gin.Context) {
	err := s.Accounts.SetDefault(c.Request.Context(), c.Param("userId"), c.Param("accountId"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		s.Logger.Error("Failed to set default account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set default account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Default account updated"})
}

func (s *Server) handleDisconnectAccount(c *gin.Context) {
	ctx := c.Request.Context()

	account, err := s.Accounts.FindByID(ctx, c.Param("accountId"))
	if err != nil {
		s.Logger.Error("Failed to load account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to disconnect account"})
		return
	}
	if account == nil || account.UserID != c.Param("userId") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}

	if err := s.Accounts.Deactivate(ctx, account.ID); err != nil {
		s.Logger.Error("Failed to disconnect account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to disconnect account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "LinkedIn account disconnected"})
}
