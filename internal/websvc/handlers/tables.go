package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
)

type createSessionRequest struct {
	Mode   string `json:"mode"`
	Tables []int  `json:"tables"`
	Count  int    `json:"count"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.respondError(w, err, "[Handler.CreateSession]")
			return
		}
	}

	sess, err := h.svc.Tables.CreateSessionWithTargets(r.Context(), principal(r).UserID, req.Mode, req.Tables, req.Count)
	if err != nil {
		h.respondError(w, err, "[Handler.CreateSession]")
		return
	}
	if h.metrics != nil {
		h.metrics.SessionsStarted.WithLabelValues(sess.Mode).Inc()
	}
	h.ok(w, http.StatusCreated, "session started", sess)
}

type attemptRequest struct {
	A         int `json:"a"`
	B         int `json:"b"`
	Answer    int `json:"answer"`
	ElapsedMs int `json:"elapsed_ms"`
}

func (h *Handler) RecordAttempt(w http.ResponseWriter, r *http.Request) {
	var req attemptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, err, "[Handler.RecordAttempt]")
		return
	}

	res, err := h.svc.Tables.RecordAttempt(r.Context(), principal(r).UserID, chi.URLParam(r, "id"),
		req.A, req.B, req.Answer, req.ElapsedMs)
	if err != nil {
		h.respondError(w, err, "[Handler.RecordAttempt]")
		return
	}
	if h.metrics != nil && res.Coins > 0 {
		h.metrics.CoinsAwarded.WithLabelValues(string(res.Reward)).Add(float64(res.Coins))
	}
	h.ok(w, http.StatusOK, "", res)
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	res, err := h.svc.Tables.EndSession(r.Context(), p.UserID, p.Name, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err, "[Handler.EndSession]")
		return
	}
	h.ok(w, http.StatusOK, "session ended", res)
}

func (h *Handler) TablesProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.svc.Tables.Progress(r.Context(), principal(r).UserID)
	if err != nil {
		h.respondError(w, err, "[Handler.TablesProgress]")
		return
	}
	h.ok(w, http.StatusOK, "", progress)
}

func (h *Handler) Hint(w http.ResponseWriter, r *http.Request) {
	a, err := queryInt(r, "a")
	if err != nil {
		h.respondError(w, err, "[Handler.Hint]")
		return
	}
	b, err := queryInt(r, "b")
	if err != nil {
		h.respondError(w, err, "[Handler.Hint]")
		return
	}

	hint, err := h.svc.Hints.Hint(r.Context(), a, b)
	if err != nil {
		h.respondError(w, err, "[Handler.Hint]")
		return
	}
	h.ok(w, http.StatusOK, "", map[string]string{"hint": hint})
}

func (h *Handler) Problem(w http.ResponseWriter, r *http.Request) {
	table, err := queryInt(r, "table")
	if err != nil {
		h.respondError(w, err, "[Handler.Problem]")
		return
	}

	p, err := h.svc.Hints.Problem(r.Context(), table)
	if err != nil {
		h.respondError(w, err, "[Handler.Problem]")
		return
	}
	h.ok(w, http.StatusOK, "", p)
}
