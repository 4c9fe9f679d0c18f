// Package server exposes the content workflows over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/at-ishikawa/genius/internal/config"
	"github.com/at-ishikawa/genius/internal/content"
	"github.com/at-ishikawa/genius/internal/metrics"
	"github.com/at-ishikawa/genius/internal/profile"
	"github.com/at-ishikawa/genius/internal/session"
)

// ContentReader is the read side of the content persister
type ContentReader interface {
	Load(ctx context.Context, id, ownerID string) (*content.Record, error)
	List(ctx context.Context, ownerID string, filter content.Filter) ([]content.Record, error)
}

type Server struct {
	cfg       config.ServerConfig
	jwtSecret []byte
	services  *session.Services
	profiles  profile.Repository
	contents  ContentReader
	sessions  *registry
}

func New(cfg config.ServerConfig, jwtSecret string, services *session.Services, profiles profile.Repository, contents ContentReader) (*Server, error) {
	if jwtSecret == "" {
		return nil, errors.New("auth.jwt_secret is required to serve the API")
	}
	return &Server{
		cfg:       cfg,
		jwtSecret: []byte(jwtSecret),
		services:  services,
		profiles:  profiles,
		contents:  contents,
		sessions:  newRegistry(sessionIdleTimeout),
	}, nil
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), requestMetrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = s.cfg.CORS.AllowedOrigins
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.MaxAge = time.Hour
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	api.Use(s.authenticate())
	{
		api.GET("/credits", s.getCredits)
		api.GET("/profiles", s.listProfiles)

		api.POST("/stories", s.createStory)
		api.GET("/stories/:id", s.getStory)
		api.POST("/stories/:id/advance", s.advanceStory)

		api.POST("/plans", s.createPlan)
		api.GET("/plans/:id", s.getPlan)
		api.POST("/plans/:id/steps", s.advancePlan)
		api.POST("/plans/:id/worksheet", s.generateWorksheet)
		api.POST("/topics", s.suggestTopics)

		api.POST("/workbooks", s.createWorkbook)
		api.POST("/workbooks/:id/check", s.checkAnswers)

		api.GET("/content", s.listContent)
		api.GET("/content/:id", s.getContent)
	}
	return router
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Default().Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("srv.ListenAndServe > %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("srv.Shutdown > %w", err)
	}
	slog.Default().Info("server stopped")
	return nil
}

const (
	shutdownTimeout    = 30 * time.Second
	sessionIdleTimeout = 2 * time.Hour
)

// appFor builds the application context for one of the owner's children
func (s *Server) appFor(ctx context.Context, ownerID, profileID string) (*session.Context, error) {
	if profileID == "" {
		return nil, session.ErrNoActiveProfile
	}
	child, err := s.profiles.FindByID(ctx, ownerID, profileID)
	if err != nil {
		return nil, err
	}
	return session.New(ownerID, child, s.services)
}
