package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/rkoval/postwave/internal/config"
	"github.com/rkoval/postwave/internal/models"
	"github.com/rkoval/postwave/internal/service"
)

// triggerPostStore optionally parks FindDue until released, to hold a
// scheduling pass open across requests.
type triggerPostStore struct {
	entered chan struct{}
	release chan struct{}
}

func (s *triggerPostStore) FindDue(ctx context.Context, now time.Time) ([]models.ScheduledPost, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	return nil, nil
}

func (s *triggerPostStore) MarkPosted(ctx context.Context, postID uint, remotePostID string, results models.AccountResults) error {
	return nil
}

func (s *triggerPostStore) MarkFailed(ctx context.Context, postID uint, message string, results models.AccountResults) error {
	return nil
}

func (s *triggerPostStore) Requeue(ctx context.Context, postID uint, attempts int, message string) error {
	return nil
}

func newTriggerTestServer(store service.PostStore) *Server {
	gin.SetMode(gin.TestMode)

	cfg := &config.SchedulerConfig{Interval: "1m", Enabled: true, MaxAttempts: 3}
	publisher := service.NewPublisherService(cfg, zap.NewNop(), store, nil, nil, nil, nil)

	s := &Server{
		Router:    gin.New(),
		Logger:    zap.NewNop(),
		Publisher: publisher,
	}
	s.setupRoutes()
	return s
}

func triggerScheduler(s *Server) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/posts/trigger-scheduler", nil)
	s.Router.ServeHTTP(w, req)
	return w
}

func TestTriggerSchedulerRunsPass(t *testing.T) {
	s := newTriggerTestServer(&triggerPostStore{})

	w := triggerScheduler(s)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTriggerSchedulerRejectedDuringRunningPass(t *testing.T) {
	store := &triggerPostStore{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	s := newTriggerTestServer(store)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- triggerScheduler(s) }()

	// The second trigger lands while the first request's pass is mid-flight.
	<-store.entered
	assert.Equal(t, http.StatusConflict, triggerScheduler(s).Code)

	close(store.release)
	assert.Equal(t, http.StatusOK, (<-first).Code)
}
