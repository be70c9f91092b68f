// Package server exposes the analysis service over a REST API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/akhil1parekh/github-pr-review-agent/internal/metrics"
	"github.com/akhil1parekh/github-pr-review-agent/internal/service"
	"github.com/akhil1parekh/github-pr-review-agent/internal/taskstore"
)

// analyzeRequest is the body of POST /api/v1/analyze-pr. The repository is
// accepted either as a full GitHub URL or as "owner/name".
type analyzeRequest struct {
	RepoURL  string `json:"repo_url" binding:"required"`
	PRNumber int    `json:"pr_number" binding:"required"`
}

// Server serves the analysis REST API.
type Server struct {
	engine     *gin.Engine
	store      taskstore.Store
	orch       *service.Orchestrator
	dispatcher *service.Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Collector
	version    string
}

// New wires the API routes. The metrics collector is optional; when absent
// the stats endpoint reports no data.
func New(store taskstore.Store, orch *service.Orchestrator, dispatcher *service.Dispatcher, logger *slog.Logger, collector *metrics.Collector, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(Recovery(logger))
	engine.Use(RequestLogger(logger))
	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	s := &Server{
		engine:     engine,
		store:      store,
		orch:       orch,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    collector,
		version:    version,
	}

	engine.GET("/healthz", s.health)

	v1 := engine.Group("/api/v1")
	v1.POST("/analyze-pr", s.analyzePR)
	v1.GET("/status/:task_id", s.taskStatus)
	v1.GET("/results/:task_id", s.taskResults)
	v1.GET("/stats", s.stats)

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "addr", addr, "version", s.version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down API server")
	return srv.Shutdown(shutdownCtx)
}

// normalizeRepo accepts "owner/name" or a github.com URL and returns
// "owner/name".
func normalizeRepo(repoURL string) (string, error) {
	repo := strings.TrimSuffix(strings.TrimSpace(repoURL), "/")
	repo = strings.TrimSuffix(repo, ".git")
	for _, prefix := range []string{"https://github.com/", "http://github.com/", "github.com/"} {
		if strings.HasPrefix(repo, prefix) {
			repo = strings.TrimPrefix(repo, prefix)
			break
		}
	}
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("repository must be a GitHub URL or owner/name, got %q", repoURL)
	}
	return repo, nil
}

// analyzePR accepts a new analysis job and returns 202 with its task id.
// The job itself runs on the dispatcher's worker pool.
func (s *Server) analyzePR(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	repo, err := normalizeRepo(req.RepoURL)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	taskID, err := s.orch.Submit(c.Request.Context(), repo, req.PRNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	if err := s.dispatcher.Enqueue(taskID, repo, req.PRNumber); err != nil {
		// The queued record exists but nothing will run it; mark it failed
		// so pollers are not left waiting forever.
		s.logger.Error("could not dispatch task", "task_id", taskID, "error", err)
		_ = s.store.UpsertStatus(c.Request.Context(), taskID, taskstore.StatusFailed,
			fmt.Sprintf("PR analysis failed: %v", err), nil)
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": err.Error()})
		return
	}

	record, err := s.store.GetStatus(c.Request.Context(), taskID)
	if err != nil || record == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "task was queued but its status is unavailable"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id":    record.TaskID,
		"status":     record.Status,
		"message":    record.Message,
		"created_at": record.CreatedAt,
	})
}

// taskStatus reports the current status record for a task.
func (s *Server) taskStatus(c *gin.Context) {
	taskID := c.Param("task_id")

	record, err := s.store.GetStatus(c.Request.Context(), taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Task with ID %s not found", taskID)})
		return
	}

	c.JSON(http.StatusOK, record)
}

// taskResults returns the final analysis for a completed task. Requesting
// results before completion is a client error, not a missing resource.
func (s *Server) taskResults(c *gin.Context) {
	taskID := c.Param("task_id")
	ctx := c.Request.Context()

	record, err := s.store.GetStatus(ctx, taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Task with ID %s not found", taskID)})
		return
	}
	if record.Status != taskstore.StatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": fmt.Sprintf("Task %s is not completed yet. Current status: %s", taskID, record.Status),
		})
		return
	}

	result, err := s.store.GetResult(ctx, taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Results for task %s not found", taskID)})
		return
	}

	c.JSON(http.StatusOK, result)
}

// stats exposes operation counters and latencies.
func (s *Server) stats(c *gin.Context) {
	if s.metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}
