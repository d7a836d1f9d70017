// Package server is the HTTP edge: a chi router over the chat service,
// the persona architect and the store. Handlers decode JSON, call one
// service method and map the error taxonomy onto status codes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"github.com/serenique/serenique-server/pkg/chat"
	"github.com/serenique/serenique-server/pkg/db"
	"github.com/serenique/serenique-server/pkg/persona"
)

type Server struct {
	logger    *log.Logger
	chat      *chat.Service
	architect *persona.Architect
	store     chat.Storage

	historyLimit int
	insightLimit int

	httpServer *http.Server
}

func New(logger *log.Logger, chatService *chat.Service, architect *persona.Architect, store chat.Storage, port string, historyLimit, insightLimit int) *Server {
	s := &Server{
		logger:       logger,
		chat:         chatService,
		architect:    architect,
		store:        store,
		historyLimit: historyLimit,
		insightLimit: insightLimit,
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           s.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRouter() *chi.Mux {
	router := chi.NewRouter()

	router.Use(cors.New(cors.Options{
		AllowCredentials: true,
		AllowedOrigins:   []string{"*"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		Debug:            false,
	}).Handler)

	router.Get("/health", s.healthHandler)
	router.Get("/", s.healthHandler)

	router.Post("/api/persona/generate", s.generatePersonaHandler)
	router.Get("/api/persona/{userID}", s.getPersonaHandler)
	router.Post("/api/persona/{userID}/state", s.updateStateHandler)

	router.Post("/api/chat", s.chatHandler)
	router.Get("/api/chat/{userID}/history", s.historyHandler)
	router.Delete("/api/chat/{userID}/history", s.clearHistoryHandler)

	router.Get("/api/insights/{userID}", s.insightsHandler)
	router.Get("/api/insights/{userID}/stats", s.insightStatsHandler)
	router.Delete("/api/insights/{userID}/{insightID}", s.deleteInsightHandler)

	router.Get("/api/cache/stats", s.cacheStatsHandler)

	return router
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// writeError maps the service error taxonomy onto HTTP status codes. A
// missing persona gets an actionable hint; model failures are 502 so
// clients can retry; anything else on these paths is almost always the
// store, hence 503.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrNoPersona):
		s.writeJSON(w, http.StatusNotFound, errorResponse{
			Error: "no persona found for user",
			Hint:  "complete the onboarding quiz via POST /api/persona/generate first",
		})
	case errors.Is(err, db.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, chat.ErrEmptyCompletion), errors.Is(err, chat.ErrGenerationFailed):
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "temporarily unavailable"})
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
