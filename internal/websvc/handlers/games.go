package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
)

func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, "", h.svc.Catalog.List(r.Context(), r.URL.Query().Get("category")))
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.svc.Catalog.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, err, "[Handler.GetGame]")
		return
	}
	h.ok(w, http.StatusOK, "", game)
}

// GameDemo serves the HTML of an approved community game. The page runs
// sandboxed so it can't reach the platform origin.
func (h *Handler) GameDemo(w http.ResponseWriter, r *http.Request) {
	html, err := h.svc.Submissions.Demo(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		code, msg := statusFor(err)
		if code == http.StatusInternalServerError {
			h.respondError(w, err, "[Handler.GameDemo]")
			return
		}
		http.Error(w, msg, code)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "sandbox allow-scripts allow-pointer-lock")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

type submissionRequest struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Code  string `json:"code"`
}

func (h *Handler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, err, "[Handler.CreateSubmission]")
		return
	}

	sub, err := h.svc.Submissions.Create(r.Context(), principal(r).UserID, req.Slug, req.Title, req.Code)
	if err != nil {
		h.respondError(w, err, "[Handler.CreateSubmission]")
		return
	}
	sub.GeneratedCode = ""
	h.ok(w, http.StatusCreated, "submission queued for review", sub)
}

func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.Submissions.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.respondError(w, err, "[Handler.ListSubmissions]")
		return
	}
	h.ok(w, http.StatusOK, "", subs)
}

type reviewRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) ApproveSubmission(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, true)
}

func (h *Handler) RejectSubmission(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, false)
}

func (h *Handler) moderate(w http.ResponseWriter, r *http.Request, approve bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(w, http.StatusBadRequest, "invalid submission id")
		return
	}

	// notes are optional, an empty body is fine
	var req reviewRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.respondError(w, err, "[Handler.moderate]")
			return
		}
	}

	reviewer := principal(r).Name
	if approve {
		sub, err := h.svc.Submissions.Approve(r.Context(), id, reviewer, req.Notes)
		if err != nil {
			h.respondError(w, err, "[Handler.ApproveSubmission]")
			return
		}
		sub.GeneratedCode = ""
		h.ok(w, http.StatusOK, "submission approved", sub)
		return
	}

	sub, err := h.svc.Submissions.Reject(r.Context(), id, reviewer, req.Notes)
	if err != nil {
		h.respondError(w, err, "[Handler.RejectSubmission]")
		return
	}
	sub.GeneratedCode = ""
	h.ok(w, http.StatusOK, "submission rejected", sub)
}
