package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rkoval/postwave/internal/config"
	"github.com/rkoval/postwave/internal/service"
	"github.com/rkoval/postwave/internal/service/linkedin"
)

// statsInterval drives the periodic stats refresh and TTL sweeps.
const statsInterval = 10 * time.Minute

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Publisher    *service.PublisherService
	Scheduler    *service.Scheduler
	StatsUpdater *service.StatsUpdater
	Accounts     service.AccountStore
	OAuthStates  *service.OAuthStateStore
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	posts := service.NewGormPostStore(db)
	accounts := service.NewGormAccountStore(db)
	files := service.NewLocalFileStore(cfg.Storage.UploadsDir)
	client := linkedin.NewClient(logger)
	monitoring := service.NewMonitoringService(db, logger)
	oauthStates := service.NewOAuthStateStore(db, logger)

	publisher := service.NewPublisherService(&cfg.Scheduler, logger, posts, accounts, files, client, monitoring)
	scheduler := service.NewScheduler(&cfg.Scheduler, logger, publisher)
	statsUpdater := service.NewStatsUpdater(monitoring, oauthStates, logger, statsInterval)

	// Create router
	router := gin.New()

	// Create server
	srv := &Server{
		Config:       cfg,
		DB:           db,
		Router:       router,
		Logger:       logger,
		Publisher:    publisher,
		Scheduler:    scheduler,
		StatsUpdater: statsUpdater,
		Accounts:     accounts,
		OAuthStates:  oauthStates,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		posts := api.Group("/posts")
		{
			posts.POST("/schedule", s.handleSchedulePost)
			posts.GET("/scheduled/:userId", s.handleGetScheduledPosts)
			posts.GET("/history/:userId", s.handleGetPostHistory)
			posts.PUT("/:postId", s.handleUpdatePost)
			posts.DELETE("/:postId", s.handleDeletePost)
			posts.POST("/trigger-scheduler", s.handleTriggerScheduler)
		}

		accounts := api.Group("/accounts")
		{
			accounts.GET("/:userId", s.handleGetAccounts)
			accounts.PUT("/default/:userId/:accountId", s.handleSetDefaultAccount)
			accounts.DELETE("/:userId/:accountId", s.handleDisconnectAccount)
		}
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Start scheduler
	if err := s.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Start periodic stats refresh
	s.StatsUpdater.Start(ctx)

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop background work first
	s.Scheduler.Stop()
	s.StatsUpdater.Stop()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
