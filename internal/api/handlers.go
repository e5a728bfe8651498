package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"openhours/internal/display"
	"openhours/internal/hours"
	"openhours/internal/metrics"
	"openhours/internal/refresh"
)

// MaxHistoryLimit caps GET /api/status/history.
const MaxHistoryLimit = 500

// StatusResponse is the response for GET /api/status.
type StatusResponse struct {
	Source   string              `json:"source"`
	LocalNow string              `json:"local_now"`
	Offset   int                 `json:"utc_offset_minutes"`
	Status   hours.Status        `json:"status"`
	Today    hours.DayResolution `json:"today"`
	Tomorrow hours.DayResolution `json:"tomorrow"`
	Text     display.Text        `json:"text"`
}

// handleStatus returns the live status with today's and tomorrow's hours.
// GET /api/status
func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("status")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	eval, err := s.svc.Evaluate()
	if errors.Is(err, refresh.ErrNotLoaded) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "schedule not loaded",
			"text":  display.Text{Headline: display.Unavailable},
		})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Evaluation failed")
		writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Source:   s.svc.Name(),
		LocalNow: eval.LocalNow.Format(time.RFC3339),
		Offset:   eval.OffsetMinutes,
		Status:   eval.Status,
		Today:    eval.Today,
		Tomorrow: eval.Tomorrow,
		Text:     display.Render(eval),
	})
}

// handleHours resolves the open intervals for one calendar date. The date
// defaults to today in the schedule's zone.
// GET /api/hours?date=YYYY-MM-DD
func (s *HTTPServer) handleHours(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("hours")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	date := s.svc.LocalNow()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(hours.DateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	res, err := s.svc.Resolve(date)
	if errors.Is(err, refresh.ErrNotLoaded) {
		writeError(w, http.StatusServiceUnavailable, "schedule not loaded")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "resolve failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"source":    s.svc.Name(),
		"date":      res.Date,
		"weekday":   res.Weekday,
		"intervals": res.Intervals,
		"is_closed": res.IsClosed,
		"display":   display.FormatIntervals(res.Intervals),
	})
}

// handleHistory lists recorded status transitions, newest first.
// GET /api/status/history?limit=N
func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("status_history")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history not enabled")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxHistoryLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	changes, err := s.history.ListStatusChanges(r.Context(), s.svc.Name(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list status changes")
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": changes})
}

// handleRefresh re-fetches the schedule document.
// POST /api/refresh
func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("refresh")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	if err := s.svc.Refresh(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("Manual refresh failed")
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.svc.Ready() {
		http.Error(w, "schedule not loaded", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
