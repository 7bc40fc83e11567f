package api

import (
	"log/slog"
	"net/http"

	"github.com/dom/account-auth/internal/api/handlers"
	"github.com/dom/account-auth/internal/api/middleware"
	"github.com/dom/account-auth/internal/config"
	"github.com/dom/account-auth/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(services *service.Services, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handlers.NewAuthHandler(services.Auth, handlers.AuthHandlerConfig{
		ClientURL:     cfg.ClientURL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		SecureCookies: !cfg.IsDevelopment(),
	}, logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/registration", authHandler.Registration)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/activate/{link}", authHandler.Activate)
			r.Get("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth, logger))
				r.Get("/me", authHandler.Me)
			})
		})
	})

	return r
}
