package handlers

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Get("/healthz", h.HealthHandler)
	r.Get("/games/{slug}/demo", h.GameDemo)

	r.Route("/v1", func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.tokenAuth))

		r.Post("/auth/signup", h.Signup)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)

		r.Get("/games", h.ListGames)
		r.Get("/games/{slug}", h.GetGame)

		r.Post("/scores", h.SaveScore)
		r.Get("/scores", h.TopScores)
		r.Get("/scores/{slug}", h.TopScores)

		r.Post("/analytics/track", h.Track)

		r.Get("/friends", h.ListFriends)
		r.Post("/friends/{id}/chat", h.ChatWithFriend)
		r.Get("/friends/ws", h.FriendSocket)

		// Signed-in routes
		r.Group(func(r chi.Router) {
			r.Use(h.RequireUser)

			r.Get("/auth/me", h.Me)
			r.Get("/me/coins", h.Wallet)
			r.Post("/submissions", h.CreateSubmission)

			r.Route("/tables", func(r chi.Router) {
				r.Post("/sessions", h.CreateSession)
				r.Post("/sessions/{id}/attempts", h.RecordAttempt)
				r.Post("/sessions/{id}/end", h.EndSession)
				r.Get("/progress", h.TablesProgress)
				r.Get("/hint", h.Hint)
				r.Get("/problem", h.Problem)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(h.AdminOnly)

				r.Get("/submissions", h.ListSubmissions)
				r.Post("/submissions/{id}/approve", h.ApproveSubmission)
				r.Post("/submissions/{id}/reject", h.RejectSubmission)
				r.Get("/analytics", h.AnalyticsSnapshot)
			})
		})
	})
}
