package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/avvvet/kidzone-services/internal/websvc/service"
	"github.com/go-chi/jwtauth"
)

const cookieName = "jwt"

type ctxKey int

const principalKey ctxKey = iota

// Principal is the signed-in user as carried by the JWT.
type Principal struct {
	UserID int64
	Name   string
	Admin  bool
}

func principalFromToken(r *http.Request) (*Principal, bool) {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return nil, false
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	name, _ := claims["name"].(string)
	admin, _ := claims["admin"].(bool)
	return &Principal{UserID: id, Name: name, Admin: admin}, true
}

// principal returns the caller set by RequireUser or, on public routes, a
// valid token if one was sent.
func principal(r *http.Request) *Principal {
	if p, ok := r.Context().Value(principalKey).(*Principal); ok {
		return p
	}
	if p, ok := principalFromToken(r); ok {
		return p
	}
	return nil
}

// RequireUser rejects requests without a valid token with a JSON 401.
func (h *Handler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFromToken(r)
		if !ok {
			h.fail(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

// AdminOnly must run after RequireUser.
func (h *Handler) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := principal(r)
		if p == nil {
			h.fail(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !p.Admin {
			h.fail(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

type credentials struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, err, "[Handler.Signup]")
		return
	}

	user, token, err := h.svc.Users.Signup(r.Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		h.respondError(w, err, "[Handler.Signup]")
		return
	}

	h.setSessionCookie(w, token, int(service.TokenTTL.Seconds()))
	h.ok(w, http.StatusCreated, "signed up", authResponse{User: user, Token: token})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, err, "[Handler.Login]")
		return
	}

	user, token, err := h.svc.Users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(w, err, "[Handler.Login]")
		return
	}

	h.setSessionCookie(w, token, int(service.TokenTTL.Seconds()))
	h.ok(w, http.StatusOK, "logged in", authResponse{User: user, Token: token})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "", -1)
	h.ok(w, http.StatusOK, "logged out", nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Users.Me(r.Context(), principal(r).UserID)
	if err != nil {
		h.respondError(w, err, "[Handler.Me]")
		return
	}
	h.ok(w, http.StatusOK, "", user)
}

func (h *Handler) Wallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.svc.Coins.GetWallet(r.Context(), principal(r).UserID)
	if err != nil {
		h.respondError(w, err, "[Handler.Wallet]")
		return
	}
	h.ok(w, http.StatusOK, "", wallet)
}
