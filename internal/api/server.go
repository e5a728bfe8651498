package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"openhours/internal/database"
	"openhours/internal/hours"
)

// StatusService is the read and refresh surface of the schedule owner.
type StatusService interface {
	Name() string
	Ready() bool
	Evaluate() (hours.Evaluation, error)
	Resolve(date time.Time) (hours.DayResolution, error)
	LocalNow() time.Time
	Refresh(ctx context.Context) error
}

// HistoryStore lists recorded status transitions.
type HistoryStore interface {
	ListStatusChanges(ctx context.Context, source string, limit int) ([]database.StatusChange, error)
}

// HTTPServer exposes the status as JSON.
type HTTPServer struct {
	svc     StatusService
	history HistoryStore
	apiKey  string
	logger  *zerolog.Logger
	server  *http.Server
}

// NewHTTPServer wires handlers. history may be nil; apiKey guards
// POST /api/refresh when set.
func NewHTTPServer(port int, svc StatusService, history HistoryStore, apiKey string, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		svc:     svc,
		history: history,
		apiKey:  apiKey,
		logger:  logger,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/hours", s.handleHours)
	mux.HandleFunc("/api/status/history", s.handleHistory)
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	return mux
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) authorized(r *http.Request) bool {
	if s.apiKey == "" {
		return true
	}
	got := r.Header.Get("X-Api-Key")
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
