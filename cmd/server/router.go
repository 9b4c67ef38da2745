package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ayush/videotube/backend/internal/auth"
	"github.com/ayush/videotube/backend/internal/httpx"
	"github.com/ayush/videotube/backend/internal/middleware"
	"github.com/ayush/videotube/backend/internal/profile"
)

type routerDeps struct {
	logger         *slog.Logger
	corsOrigins    []string
	maxUploadBytes int64
	authenticator  middleware.Authenticator
	sessions       *auth.Handler
	profiles       *profile.Handler
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.LimitBody(d.maxUploadBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", d.sessions.Register)
		r.Post("/login", d.sessions.Login)
		r.Post("/refresh-token", d.sessions.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(middleware.VerifyJWT(d.authenticator))
			r.Post("/logout", d.sessions.Logout)
			r.Post("/change-password", d.sessions.ChangePassword)
			r.Get("/current-user", d.profiles.CurrentUser)
			r.Patch("/update-account", d.profiles.UpdateAccount)
			r.Patch("/avatar", d.profiles.UpdateAvatar)
			r.Patch("/cover-image", d.profiles.UpdateCoverImage)
			r.Get("/channel/{username}", d.profiles.Channel)
			r.Get("/history", d.profiles.History)
		})
	})

	return r
}
