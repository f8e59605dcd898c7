package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/revlens/revlens/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

// handleReport serves GET /v1/report?today=YYYY-MM-DD&baseline=YYYY-MM-DD.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	today, baseline, err := parseDates(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	payload, err := s.provider.Report(r.Context(), today, baseline)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ReportBuilds.WithLabelValues("error").Inc()
		s.metrics.BuildDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		log.Error().Err(err).Msg("report build failed")
		writeError(w, http.StatusInternalServerError, "report build failed")
		return
	}
	s.metrics.ReportBuilds.WithLabelValues("ok").Inc()
	s.metrics.BuildDuration.WithLabelValues("ok").Observe(elapsed.Seconds())

	writeJSON(w, http.StatusOK, payload)
}

func parseDates(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	today, err := domain.ParseDay(q.Get("today"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	baselineRaw := q.Get("baseline")
	if baselineRaw == "" {
		// Default comparison is the preceding day.
		return today, today.AddDate(0, 0, -1), nil
	}
	baseline, err := domain.ParseDay(baselineRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return today, baseline, nil
}
