package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/revlens/revlens/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API is local-only; dashboards connect from the same host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamRequest is one date-pair request on a report stream.
type streamRequest struct {
	Today    string `json:"today"`
	Baseline string `json:"baseline"`
}

type streamError struct {
	Error string `json:"error"`
}

// handleReportStream upgrades to a websocket on which a dashboard sends
// (today, baseline) pairs and receives a payload per pair. One connection
// serves many date selections without re-handshaking.
func (s *Server) handleReportStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.metrics.ActiveStreams.Inc()
	defer s.metrics.ActiveStreams.Dec()

	for {
		var req streamRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("report stream closed unexpectedly")
			}
			return
		}

		today, err := domain.ParseDay(req.Today)
		if err != nil {
			if err := conn.WriteJSON(streamError{Error: err.Error()}); err != nil {
				return
			}
			continue
		}
		baseline, err := domain.ParseDay(req.Baseline)
		if err != nil {
			if err := conn.WriteJSON(streamError{Error: err.Error()}); err != nil {
				return
			}
			continue
		}

		payload, err := s.provider.Report(r.Context(), today, baseline)
		if err != nil {
			s.metrics.ReportBuilds.WithLabelValues("error").Inc()
			if err := conn.WriteJSON(streamError{Error: "report build failed"}); err != nil {
				return
			}
			continue
		}
		s.metrics.ReportBuilds.WithLabelValues("ok").Inc()

		if err := conn.WriteJSON(payload); err != nil {
			return
		}
	}
}
