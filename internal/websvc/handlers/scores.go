package handlers

import (
	"errors"
	"net/http"

	"github.com/avvvet/kidzone-services/internal/websvc/service"
	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
)

// The score endpoints are embedded by games and keep a flat JSON shape
// instead of the Response envelope.

type saveScoreRequest struct {
	Slug  string   `json:"slug"`
	Name  string   `json:"name"`
	Score *float64 `json:"score"`
}

type scoreError struct {
	Error string `json:"error"`
}

func (h *Handler) SaveScore(w http.ResponseWriter, r *http.Request) {
	var req saveScoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, scoreError{Error: err.Error()})
		return
	}

	saved, err := h.svc.Scores.Save(r.Context(), req.Slug, req.Name, req.Score)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, scoreError{Error: err.Error()})
			return
		}
		h.countLeaderboard("error")
		log.Errorf("[Handler.SaveScore] %s", err)
		writeJSON(w, http.StatusInternalServerError, scoreError{Error: "internal server error"})
		return
	}

	if saved {
		h.countLeaderboard("stored")
	} else {
		h.countLeaderboard("skipped")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) TopScores(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		slug = r.URL.Query().Get("slug")
	}

	top, err := h.svc.Scores.Top(r.Context(), slug)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, scoreError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"top": top})
}

func (h *Handler) countLeaderboard(outcome string) {
	if h.metrics != nil {
		h.metrics.LeaderboardWrites.WithLabelValues(outcome).Inc()
	}
}
