package handlers

import (
	"net/http"
)

type trackRequest struct {
	Event string                 `json:"event"`
	Props map[string]interface{} `json:"props"`
}

func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, err, "[Handler.Track]")
		return
	}

	var userID *int64
	if p := principal(r); p != nil {
		userID = &p.UserID
	}
	if err := h.svc.Analytics.Track(req.Event, req.Props, userID); err != nil {
		h.respondError(w, err, "[Handler.Track]")
		return
	}
	h.ok(w, http.StatusOK, "tracked", nil)
}

func (h *Handler) AnalyticsSnapshot(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, "", h.svc.Analytics.Snapshot())
}
