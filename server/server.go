package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kulmaganbetov/overbot123/app/build"
	"github.com/kulmaganbetov/overbot123/app/catalog"
	"github.com/kulmaganbetov/overbot123/app/categories"
	"github.com/kulmaganbetov/overbot123/app/chat"
	"github.com/kulmaganbetov/overbot123/app/search"
	"github.com/kulmaganbetov/overbot123/session"
)

// Config holds server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	// RequestTimeout of zero leaves requests unbounded.
	RequestTimeout time.Duration
}

// Handlers are the feature handlers mounted by the router.
type Handlers struct {
	Catalog    *catalog.CatalogHandler
	Categories *categories.CategoryHandler
	Search     *search.SearchHandler
	Build      *build.BuildHandler
	Chat       *chat.ChatHandler
}

type Server struct {
	cfg        Config
	handlers   Handlers
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

func New(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, handlers: handlers, logger: logger}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if h := s.handlers.Catalog; h != nil {
		r.Get("/catalog", h.HandleGet)
		r.Get("/catalog/{sku}", h.HandleGetProduct)
	}
	if h := s.handlers.Categories; h != nil {
		r.Get("/categories", h.HandleGetAll)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(session.Middleware)

		if h := s.handlers.Search; h != nil {
			r.Post("/search", h.HandleSearch)
		}
		if h := s.handlers.Build; h != nil {
			r.Post("/build", h.HandleAssemble)
			r.Get("/build", h.HandleCurrent)
			r.Get("/order", h.HandleOrder)
		}
		if h := s.handlers.Chat; h != nil {
			r.Post("/chat", h.HandleChat)
			r.Get("/chat/history", h.HandleHistory)
		}
	})

	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured port until Shutdown is called.
// Shutting down before Start makes Start return at once.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
