package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/satranslator/translator/internal/http/handlers"
	"github.com/satranslator/translator/internal/middleware"
)

// Routes bundles what the router serves
type Routes struct {
	Auth          *handlers.AuthHandler
	Account       *handlers.AccountHandler
	Chat          *handlers.ChatHandler
	Health        http.Handler
	Authenticator middleware.Authenticator
	// AuthLimiter caps /auth requests per client address; nil disables it
	AuthLimiter *middleware.RateLimiter
	CORSOrigins []string
	Logger      *logrus.Logger
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(rt Routes) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(rt.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Device-Name", "X-Device-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if rt.Health != nil {
		r.Method(http.MethodGet, "/health", rt.Health)
	}

	requireAuth := middleware.RequireAuth(rt.Authenticator, false, rt.Logger)
	allowReset := middleware.RequireAuth(rt.Authenticator, true, rt.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if rt.AuthLimiter != nil {
				r.Use(middleware.RateLimitMiddleware(rt.AuthLimiter, middleware.GetIPKey))
			}
			r.Post("/register", rt.Auth.HandleRegister)
			r.Post("/login", rt.Auth.HandleLogin)
			r.Post("/verify-token", rt.Auth.HandleVerifyToken)
			r.Post("/resend-token", rt.Auth.HandleResendToken)
			r.Post("/forgot-password", rt.Auth.HandleForgotPassword)
		})

		r.With(allowReset).Post("/profile/change-password", rt.Account.HandleChangePassword)

		// Protected routes (require an access token bound to a live session)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/profile", rt.Account.HandleMe)
			r.Patch("/profile/update", rt.Account.HandleUpdateProfile)
			r.Get("/sessions", rt.Account.HandleListSessions)
			r.Delete("/sessions/{id}/revoke", rt.Account.HandleRevokeSession)

			r.Post("/chat", rt.Chat.HandleSend)
			r.Get("/chat", rt.Chat.HandleList)
			r.Delete("/chat/{id}", rt.Chat.HandleDelete)
		})
	})

	return r
}
