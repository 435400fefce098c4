package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/avvvet/kidzone-services/internal/analyticsvc/models"
	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
)

const maxStatsDays = 90

type EventCounter interface {
	CountSince(ctx context.Context, since time.Time) ([]models.EventCount, error)
}

type Handler struct {
	counter EventCounter
	now     func() time.Time
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func NewHandler(counter EventCounter) *Handler {
	return &Handler{counter: counter, now: time.Now}
}

func (h *Handler) SetRoutes(r chi.Router) {
	r.Get("/healthz", h.HealthHandler)
	r.Get("/v1/stats", h.Stats)
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{Message: "analytics service is running", Code: http.StatusOK})
}

// Stats returns event counts by name for the last ?days= days (default 7).
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxStatsDays {
			h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "days must be between 1 and 90"})
			return
		}
		days = n
	}

	since := h.now().Add(-time.Duration(days) * 24 * time.Hour)
	counts, err := h.counter.CountSince(r.Context(), since)
	if err != nil {
		log.Errorf("[Handler.Stats] %s", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "internal server error"})
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: counts})
}
