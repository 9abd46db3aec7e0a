// Package server is the composition root: it opens the database, builds the
// services and handlers, wires routes and middleware, and runs the HTTP
// server with graceful shutdown.
//
// Everything is assembled here and nowhere else. Each layer receives only
// what it needs — services get repository interfaces, handlers get services,
// nothing below this package touches chi or net/http setup.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/shiori/internal/auth"
	"github.com/sakif/shiori/internal/config"
	"github.com/sakif/shiori/internal/handler"
	"github.com/sakif/shiori/internal/middleware"
	sqliteRepo "github.com/sakif/shiori/internal/repository/sqlite"
	"github.com/sakif/shiori/internal/service"
)

// Server owns the router, the database connection and the background
// context shared by long-running middleware (the rate limiter's cleanup
// goroutine). The database is closed during Start's shutdown path.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB

	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// New builds a fully wired Server from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())

	s := &Server{
		router:     chi.NewRouter(),
		config:     cfg,
		logger:     logger,
		db:         db,
		baseCtx:    baseCtx,
		cancelBase: cancelBase,
	}

	if err := s.setupRoutes(); err != nil {
		cancelBase()
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes wires middleware, handlers and routes.
//
// Route map:
//
//	GET  /                              API info
//	GET  /static/*                      single-page client
//	POST /api/auth/register             create an account        (rate limited)
//	POST /api/auth/login                log in                   (rate limited)
//	POST /api/auth/validate             check a token            (rate limited)
//	POST /api/auth/check-username       username availability    (rate limited)
//	POST /api/auth/check-email          email availability       (rate limited)
//	GET  /api/auth/me                   current user             (auth)
//	POST /api/auth/logout               log out                  (auth)
//	GET  /api/days                      list days                (auth)
//	GET  /api/days/{date}               one day's entries        (auth)
//	GET  /api/today                     today's day              (auth)
//	POST /api/today/entries             append an entry to today (auth)
//	GET  /api/statistics                diary statistics         (auth)
//	GET  /api/export                    full JSON export         (auth)
//
// Middleware order: RequestID and RealIP first so the logger and rate
// limiter see them, then logging, then Recoverer so panics still get a
// logged 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenLifetime)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(s.config.BcryptCost)

	userService := service.NewUserService(s.db, passwords, s.logger)
	diaryService := service.NewDiaryService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(userService, tokens, s.logger)
	diaryHandler := handler.NewDiaryHandler(diaryService, s.logger)

	authMw := auth.NewMiddleware(tokens, s.db, s.logger)
	limiter := middleware.NewAuthRateLimiter(s.baseCtx)

	s.router.Get("/", handler.HandleAPIInfo)

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Public endpoints sit behind the per-IP rate limiter: login
			// and registration are the credential-stuffing targets.
			r.Group(func(r chi.Router) {
				r.Use(limiter.Limit)
				r.Post("/register", authHandler.HandleRegister)
				r.Post("/login", authHandler.HandleLogin)
				r.Post("/validate", authHandler.HandleValidate)
				r.Post("/check-username", authHandler.HandleCheckUsername)
				r.Post("/check-email", authHandler.HandleCheckEmail)
			})

			r.Group(func(r chi.Router) {
				r.Use(authMw.RequireAuth)
				r.Get("/me", authHandler.HandleMe)
				r.Post("/logout", authHandler.HandleLogout)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authMw.RequireAuth)
			r.Get("/days", diaryHandler.HandleListDays)
			r.Get("/days/{date}", diaryHandler.HandleGetDay)
			r.Get("/today", diaryHandler.HandleGetToday)
			r.Post("/today/entries", diaryHandler.HandleCreateEntry)
			r.Get("/statistics", diaryHandler.HandleStatistics)
			r.Get("/export", diaryHandler.HandleExport)
		})
	})

	// Unknown routes get the same JSON error shape as everything else.
	s.router.NotFound(handler.HandleNotFound)

	return nil
}

// Handler exposes the composed router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds, stop background goroutines, close the database.
func (s *Server) Start() error {
	defer s.db.Close()
	defer s.cancelBase()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
