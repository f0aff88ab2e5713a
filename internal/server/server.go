// Package server wires handlers, middleware, and routes, and owns the HTTP
// lifecycle. It is the composition root: every service and handler is
// assembled here and nowhere else.
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

	"github.com/sakif/chatkeeper/internal/auth"
	"github.com/sakif/chatkeeper/internal/handler"
	"github.com/sakif/chatkeeper/internal/middleware"
	sqliteRepo "github.com/sakif/chatkeeper/internal/repository/sqlite"
	"github.com/sakif/chatkeeper/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown so the WAL is flushed before exit.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

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
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	// The sqlite.DB implements every repository interface, so s.db feeds
	// each service directly.
	identities := service.NewIdentityService(s.db, s.db, s.logger)
	quotes := service.NewQuoteService(s.db, s.db, s.logger)
	obits := service.NewObitService(s.db, s.db, s.logger)
	counters := service.NewCounterService(s.db, s.db, s.logger)
	phrases := service.NewPhraseService(s.db, s.db, s.logger)
	corpus := service.NewCorpusService(s.db, s.db, s.db, s.logger)
	auths := service.NewAuthService(s.db, tokens, passwords, s.logger)

	identityHandler := handler.NewIdentityHandler(identities)
	quoteHandler := handler.NewQuoteHandler(quotes)
	obitHandler := handler.NewObitHandler(obits)
	counterHandler := handler.NewCounterHandler(counters)
	phraseHandler := handler.NewPhraseHandler(phrases)
	corpusHandler := handler.NewCorpusHandler(corpus)
	authHandler := handler.NewAuthHandler(auths)
	adminHandler := handler.NewAdminHandler(s.db)

	s.router.Route("/api", func(r chi.Router) {
		// Bot-facing routes. These carry the chat traffic, so no operator
		// token is required.
		r.Post("/observe", identityHandler.Observe)
		r.Post("/participants/resolve", identityHandler.ResolveParticipant)
		r.Get("/participants", identityHandler.GetParticipantByName)
		r.Get("/participants/{id}", identityHandler.GetParticipant)
		r.Get("/participants/{id}/names", identityHandler.Names)
		r.Get("/users", identityHandler.GetUserByName)
		r.Get("/users/{id}", identityHandler.GetUser)
		r.Get("/users/{id}/aliases", identityHandler.Aliases)
		r.Get("/protocols", identityHandler.Protocols)
		r.Get("/sources/{id}", identityHandler.GetSource)

		r.Post("/quotes", quoteHandler.Submit)
		r.Get("/quotes", quoteHandler.List)
		r.Get("/quotes/random", quoteHandler.Random)
		r.Get("/quotes/search", quoteHandler.Search)
		r.Get("/quotes/leaderboard", quoteHandler.Leaderboard)
		r.Get("/quotes/stats", quoteHandler.GlobalStats)
		r.Get("/quotes/stats/user", quoteHandler.UserStats)
		r.Get("/quotes/stats/yearly", quoteHandler.YearlyCounts)
		r.Get("/quotes/{id}", quoteHandler.Get)

		r.Post("/obits/kill", obitHandler.Kill)
		r.Get("/obits/record", obitHandler.Record)
		r.Get("/obits/board", obitHandler.Board)
		r.Get("/obits/rankings", obitHandler.Rankings)
		r.Post("/obits/strings", obitHandler.AddString)

		r.Get("/counters", counterHandler.List)
		r.Get("/counters/{name}", counterHandler.Get)
		r.Post("/counters/{name}/bump", counterHandler.Bump)

		r.Post("/phrases/8ball/ask", phraseHandler.Ask)
		r.Post("/phrases/{table}", phraseHandler.Add)
		r.Get("/phrases/{table}", phraseHandler.List)
		r.Get("/phrases/{table}/random", phraseHandler.Draw)

		r.Post("/corpus", corpusHandler.Ingest)
		r.Get("/corpus", corpusHandler.Lines)
		r.Get("/corpus/count", corpusHandler.Count)

		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Operator routes: renames, deletions, links, and maintenance.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireOperator(tokens))

			r.Get("/auth/me", authHandler.Me)

			r.Put("/participants/{id}/name", identityHandler.RenameParticipant)
			r.Delete("/participants/{id}", identityHandler.DeleteParticipant)
			r.Delete("/participants/{id}/user", identityHandler.UnlinkParticipant)

			r.Post("/users", identityHandler.RegisterUser)
			r.Put("/users/{id}/name", identityHandler.RenameUser)
			r.Delete("/users/{id}", identityHandler.DeleteUser)
			r.Post("/users/{id}/participants", identityHandler.LinkParticipant)
			r.Post("/users/{id}/aliases", identityHandler.AddAlias)
			r.Delete("/users/{id}/aliases/{name}", identityHandler.RemoveAlias)

			r.Post("/protocols", identityHandler.RegisterProtocol)

			r.Put("/quotes/{id}/hidden", quoteHandler.SetHidden)
			r.Delete("/quotes/{id}", quoteHandler.Delete)

			r.Delete("/obits/strings", obitHandler.RemoveString)

			r.Delete("/phrases/{table}", phraseHandler.Remove)
			r.Post("/phrases/8ball", phraseHandler.AddEightBall)
			r.Delete("/phrases/8ball", phraseHandler.RemoveEightBall)

			r.Post("/admin/backup", adminHandler.Backup)
		})
	})

	return nil
}

// Start runs the server until SIGINT or SIGTERM, then drains in-flight
// requests and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

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
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped")
	}

	return nil
}
