// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "start the server")
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/handler"
	"github.com/sakif/microblog/internal/middleware"
	sqliteRepo "github.com/sakif/microblog/internal/repository/sqlite"
	"github.com/sakif/microblog/internal/service"
)

// Config holds server configuration.
// Using a struct for config (instead of individual parameters) makes it easy to:
// - Add new config options without changing function signatures
// - Pass config around as a single value
// - Load config from files/env vars in one place
type Config struct {
	Port      int
	DBPath    string // path to the SQLite database file
	JWTSecret string // HMAC secret for signing tokens; must be set
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns a database connection (db). When the server shuts down,
// we must close this connection to flush any pending writes and release the
// file lock. This is handled in Start() during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
// This is where the entire dependency chain is assembled:
//  1. Create the database connection (sqlite.New)
//  2. Create the token/password services with the configured secret
//  3. Create the service layer with the repository interfaces
//  4. Create the handlers with the services, wire them to routes
//
// Each layer only receives what it needs:
// - Services get repository interfaces (not the concrete sqlite.DB)
// - Handlers get services (not the repository or DB)
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package. Import aliases are common in Go when
// package names would otherwise collide or be unclear.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /api/users                        → Register (rate limited)
//	POST   /api/auth                         → Login (rate limited)
//	GET    /api/users/me                     → Own profile            [auth]
//	PATCH  /api/users/me                     → Update one field       [auth]
//	GET    /api/users/me/checkLiked/{id}     → Has caller liked it    [auth]
//	GET    /api/users/me/checkFollowing/{id} → Does caller follow id  [auth]
//	GET    /api/users/{id}/following         → Who a user follows     [paginated]
//	GET    /api/users/{id}/followers         → Who follows a user     [paginated]
//	GET    /api/users/{id}                   → Public profile
//	GET    /api/posts                        → Feed                   [paginated]
//	GET    /api/posts/{id}                   → Single post
//	POST   /api/posts                        → Create post            [auth]
//	PATCH  /api/posts/{id}                   → Like/unlike post       [auth]
//	DELETE /api/posts/{id}                   → Delete own post        [auth]
//	GET    /api/comments                     → Comments on a post     [paginated]
//	POST   /api/comments                     → Create comment         [auth]
//	PATCH  /api/comments/{id}                → Like/unlike comment    [auth]
//	DELETE /api/comments/{id}                → Delete own comment     [auth]
//
// ROUTE ORDER: chi matches literal segments before wildcards, so
// /api/users/me coexists with /api/users/{id} without ambiguity — chi
// sorts them, but keeping the literal routes visually first makes intent
// obvious.
//
// These paths are load-bearing: the deployed clients hard-code them
// (including PATCH /posts/{id} doubling as the like toggle), so they must
// not be "cleaned up".
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Logger — logs each request with timing info
// 4. Recoverer — catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes() error {
	// === Global Middleware ===
	// These run on EVERY request, in order

	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500

	// Our custom logging middleware
	s.router.Use(middleware.Logger(s.logger))

	// === Auth Plumbing ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	requireAuth := auth.RequireAuth(tokens)

	// === Services & Handlers ===
	// DEPENDENCY CHAIN:
	//   s.db (sqlite.DB) → implements all the repository interfaces
	//   Services receive the interfaces; handlers receive the services.
	//
	// Notice: the handlers never touch the database directly.
	// The services never touch HTTP. Clean separation!
	authSvc := service.NewAuthService(s.db, tokens, passwords, s.logger)
	userSvc := service.NewUserService(s.db, s.db, s.db, tokens, passwords, s.logger)
	postSvc := service.NewPostService(s.db, s.db, s.db, s.db, s.logger)
	commentSvc := service.NewCommentService(s.db, s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(authSvc, s.logger)
	userHandler := handler.NewUserHandler(userSvc, s.logger)
	postHandler := handler.NewPostHandler(postSvc, s.logger)
	commentHandler := handler.NewCommentHandler(commentSvc, s.logger)

	// Registration and login get a per-IP rate limit: both endpoints do a
	// bcrypt hash per request, which is deliberately expensive, and both
	// are the ones an attacker hammers.
	credentialLimit := httprate.LimitByIP(10, time.Minute)

	s.router.Route("/api", func(r chi.Router) {
		r.With(credentialLimit).Post("/users", authHandler.HandleRegister)
		r.With(credentialLimit).Post("/auth", authHandler.HandleLogin)

		r.Route("/users", func(r chi.Router) {
			r.With(requireAuth).Get("/me", userHandler.HandleMe)
			r.With(requireAuth).Patch("/me", userHandler.HandleUpdateMe)
			r.With(requireAuth).Get("/me/checkLiked/{id}", userHandler.HandleCheckLiked)
			r.With(requireAuth).Get("/me/checkFollowing/{id}", userHandler.HandleCheckFollowing)
			r.With(middleware.Pagination).Get("/{id}/following", userHandler.HandleFollowing)
			r.With(middleware.Pagination).Get("/{id}/followers", userHandler.HandleFollowers)
			r.Get("/{id}", userHandler.HandleGetUser)
		})

		r.Route("/posts", func(r chi.Router) {
			r.With(middleware.Pagination).Get("/", postHandler.HandleFeed)
			r.Get("/{id}", postHandler.HandleGet)
			r.With(requireAuth).Post("/", postHandler.HandleCreate)
			r.With(requireAuth).Patch("/{id}", postHandler.HandleLike)
			r.With(requireAuth).Delete("/{id}", postHandler.HandleDelete)
		})

		r.Route("/comments", func(r chi.Router) {
			r.With(middleware.Pagination).Get("/", commentHandler.HandleList)
			r.With(requireAuth).Post("/", commentHandler.HandleCreate)
			r.With(requireAuth).Patch("/{id}", commentHandler.HandleLike)
			r.With(requireAuth).Delete("/{id}", commentHandler.HandleDelete)
		})
	})

	return nil
}

// Handler exposes the configured router, mainly so tests can drive the full
// stack through httptest without opening a socket.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the server's resources without going through Start's
// shutdown path. Tests use this; production goes through Start.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
//
// If we skip step 3, the database file might be left in an inconsistent state.
// The `defer s.db.Close()` ensures this happens even if something panics.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine (so it doesn't block)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
