package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MikeSquared-Agency/pagekeeper/internal/inbox"
	"github.com/MikeSquared-Agency/pagekeeper/internal/tools"
)

// MessageSource is satisfied by *inbox.Retriever.
type MessageSource interface {
	MessagesSince(ctx context.Context, cutoff time.Time) ([]inbox.NormalizedMessage, error)
}

type Options struct {
	Port           int
	PageID         string
	APIToken       string
	AllowedOrigins []string
}

type Server struct {
	router   *chi.Mux
	port     int
	pageID   string
	registry *tools.Registry
	inbox    MessageSource
	srv      *http.Server
}

func NewServer(opts Options, registry *tools.Registry, source MessageSource) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	s := &Server{
		router:   router,
		port:     opts.Port,
		pageID:   opts.PageID,
		registry: registry,
		inbox:    source,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/pagekeeper/status", s.status)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(opts.APIToken))
		r.Get("/tools", s.listTools)
		r.Post("/tools/{name}", s.invokeTool)
		r.Get("/inbox/messages", s.inboxMessages)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("API server starting", "addr", addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":   "pagekeeper",
		"page_id": s.pageID,
		"tools":   len(s.registry.List()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
