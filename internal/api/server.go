// Package api exposes the read-only reporting surface: run history and match
// audit lookups over HTTP. Links are never created or modified through this
// surface; that is the engine's job.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charterdesk/recon-engine/internal/api/handler"
	"github.com/charterdesk/recon-engine/internal/config"
	"github.com/charterdesk/recon-engine/internal/domain/audit"
	"github.com/charterdesk/recon-engine/internal/domain/run"
)

// Server handles HTTP requests and manages the reporting API's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures the reporting HTTP server
func NewServer(log *slog.Logger, cfg *config.Config, runRepo run.Repository, auditRepo audit.Repository) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	runHandler := handler.NewRunHandler(log, runRepo, auditRepo)
	auditHandler := handler.NewAuditHandler(log, auditRepo)

	setupRouter(log, httpRouter, runHandler, auditHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
