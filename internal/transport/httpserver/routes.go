package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"quest-scheduler-go/internal/config"
	"quest-scheduler-go/internal/metrics"
	"quest-scheduler-go/internal/transport/httpserver/handler"
	authmw "quest-scheduler-go/internal/transport/httpserver/middleware"
	"quest-scheduler-go/pkg/logger"
)

func NewRouter(cfg config.Config, handlers *handler.Handlers, limiter *authmw.RateLimiter, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(metrics.InstrumentHandler)
	r.Use(chimw.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}
	r.Use(authmw.NewCORS(cfg.CORSOrigins))

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	auth := authmw.NewJWTAuth(cfg.Auth, log)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		// Routes readable anonymously. A valid token still identifies the viewer.
		r.Group(func(r chi.Router) {
			r.Use(auth.Optional)
			if limiter != nil {
				r.Use(limiter.Handler)
			}

			r.Get("/campaigns/search", handlers.SearchCampaigns)
			r.Get("/campaigns/{id}", handlers.GetCampaign)
			r.Get("/campaigns/{id}/members", handlers.ListCampaignMembers)
			r.Get("/campaigns/{id}/sessions", handlers.ListCampaignSessions)

			r.Get("/sessions/search", handlers.SearchSessions)
			r.Get("/sessions/calendar", handlers.GetCalendar)
			r.Get("/sessions/calendar/stats", handlers.GetCalendarStats)
			r.Get("/sessions/calendar/day", handlers.GetSessionsByDay)
			r.Get("/sessions/{id}", handlers.GetSession)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)
			if limiter != nil {
				r.Use(limiter.Handler)
			}

			r.Get("/auth/me", handlers.AuthMe)

			r.Post("/campaigns", handlers.CreateCampaign)
			r.Get("/campaigns", handlers.ListMyCampaigns)
			r.Post("/campaigns/join", handlers.JoinCampaignByCode)
			r.Patch("/campaigns/{id}", handlers.UpdateCampaign)
			r.Delete("/campaigns/{id}", handlers.DeleteCampaign)
			r.Post("/campaigns/{id}/members", handlers.AddCampaignMember)
			r.Patch("/campaigns/{id}/members/{user_id}", handlers.UpdateCampaignMemberRole)
			r.Delete("/campaigns/{id}/members/{user_id}", handlers.RemoveCampaignMember)
			r.Post("/campaigns/{id}/leave", handlers.LeaveCampaign)
			r.Post("/campaigns/{id}/invite-code", handlers.RegenerateInviteCode)
			r.Get("/campaigns/{id}/join-requests", handlers.ListJoinRequests)
			r.Post("/campaigns/{id}/join-requests", handlers.SubmitJoinRequest)
			r.Post("/join-requests/{id}/approve", handlers.ApproveJoinRequest)
			r.Post("/join-requests/{id}/reject", handlers.RejectJoinRequest)

			r.Post("/sessions", handlers.CreateSession)
			r.Get("/sessions", handlers.ListMySessions)
			r.Patch("/sessions/{id}", handlers.UpdateSession)
			r.Delete("/sessions/{id}", handlers.DeleteSession)
			r.Post("/sessions/{id}/cancel", handlers.CancelSession)
			r.Post("/sessions/{id}/join", handlers.JoinSession)
			r.Post("/sessions/{id}/leave", handlers.LeaveSession)
			r.Get("/sessions/{id}/participants", handlers.ListParticipants)
			r.Patch("/sessions/{id}/participants/{user_id}", handlers.UpdateParticipantStatus)
			r.Delete("/sessions/{id}/participants/{user_id}", handlers.RemoveParticipant)
		})
	})

	return r
}
