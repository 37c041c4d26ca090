// Package server provides the HTTP API for Startup Hub.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cyberxz2077/Startup-Hub/internal/ai"
	"github.com/cyberxz2077/Startup-Hub/internal/matching"
	"github.com/cyberxz2077/Startup-Hub/internal/metrics"
	"github.com/cyberxz2077/Startup-Hub/internal/session"
	"github.com/cyberxz2077/Startup-Hub/internal/store"
)

// MatchRunner runs batch compatibility checks.
type MatchRunner interface {
	Run(ctx context.Context, callerID string, pivot matching.PivotType, pivotID string) (*matching.Result, error)
}

// Inbox mediates direct-message threads.
type Inbox interface {
	List(ctx context.Context, userID string) ([]*store.ChatSession, error)
	Send(ctx context.Context, userID, targetID, targetType, content string) (*store.ChatMessage, error)
}

// Directory is the entity persistence the handlers need.
type Directory interface {
	EnsureUser(ctx context.Context, u *store.User) error
	GetProfileByUserID(ctx context.Context, userID string) (*store.Profile, error)
	SaveProfile(ctx context.Context, p *store.Profile) error
	CreateProject(ctx context.Context, p *store.Project) (string, error)
}

// Sessions resolves bearer tokens to identities.
type Sessions interface {
	Get(ctx context.Context, token string) (*session.Identity, error)
}

// Config holds the listen settings.
type Config struct {
	Host string
	Port int
}

// Server is the HTTP server for the Startup Hub API.
type Server struct {
	matcher   MatchRunner
	assistant ai.Assistant
	inbox     Inbox
	directory Directory
	sessions  Sessions
	config    *Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	matcher MatchRunner,
	assistant ai.Assistant,
	ib Inbox,
	directory Directory,
	sessions Sessions,
	cfg *Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		matcher:   matcher,
		assistant: assistant,
		inbox:     ib,
		directory: directory,
		sessions:  sessions,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(s.withIdentity)

	r.Post("/api/match", s.handleMatch)
	r.Post("/api/ai/chat", s.handleChat)
	r.Post("/api/ai/revise", s.handleRevise)
	r.Get("/api/profiles", s.handleGetProfile)
	r.Post("/api/profiles", s.handleSaveProfile)
	r.Post("/api/projects", s.handleCreateProject)
	r.Get("/api/inbox", s.handleInboxList)
	r.Post("/api/inbox", s.handleInboxSend)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
