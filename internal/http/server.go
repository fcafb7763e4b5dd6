// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cacheHTTP "github.com/msiav/vehicle-cache/internal/cache/http"
	syncHTTP "github.com/msiav/vehicle-cache/internal/sync/http"
)

// Server represents the main HTTP server.
type Server struct {
	addr   string
	db     *sql.DB
	logger *slog.Logger
	router *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP server. The database handle is used by the
// readiness endpoint and may be nil in tests.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		addr:   fmt.Sprintf("%s:%d", host, port),
		db:     db,
		logger: logger,
	}
}

// RouterConfig carries the handlers and middleware settings for SetupRouter.
type RouterConfig struct {
	SyncHandler      *syncHTTP.SyncHandler
	VehicleHandler   *cacheHTTP.VehicleHandler
	CORSEnabled      bool
	CORSAllowOrigins string
}

// SetupRouter builds the Gin router with middleware and all API routes.
func (s *Server) SetupRouter(cfg RouterConfig) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/healthz", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	{
		if cfg.SyncHandler != nil {
			v1.GET("/sync/status", cfg.SyncHandler.StatusHandler)
			v1.POST("/sync/run", cfg.SyncHandler.RunHandler)
			v1.POST("/enrichment/run", cfg.SyncHandler.EnrichHandler)
			v1.GET("/upstream/token", cfg.SyncHandler.TokenStatusHandler)
		}

		if cfg.VehicleHandler != nil {
			v1.GET("/vehicles/:id/query-result", cfg.VehicleHandler.QueryResultHandler)
			v1.POST("/vehicles/:id/apprehension", cfg.VehicleHandler.ScheduleHandler)
		}
	}

	s.router = router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic, checking
// database connectivity.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{"database": "ok"}
	status := http.StatusOK
	overall := "ready"

	if s.db == nil {
		components["database"] = "error"
		status = http.StatusServiceUnavailable
		overall = "not_ready"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("readiness database ping failed", slog.Any("error", err))
			components["database"] = "error"
			status = http.StatusServiceUnavailable
			overall = "not_ready"
		}
	}

	c.JSON(status, gin.H{"status": overall, "components": components})
}

// Start starts the HTTP server. SetupRouter must be called first.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router is not configured")
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting http server", slog.String("addr", s.addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
