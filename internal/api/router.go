/**
 * @description
 * This file sets up the HTTP router for the tip-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies
 * middleware for logging, panic recovery, CORS, and authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for browser clients.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// TipRoutes creates and returns the router for the tip service.
func TipRoutes(h *TipHandlers, jwtSecret string, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Public endpoints: the tip page, the gateway webhook, and the overlay.
	// The SSE stream carries no timeout middleware; overlay connections are
	// long lived.
	r.Get("/api/overlay/{username}/stream", h.OverlayStreamHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/api/create-order/{username}", h.CreateOrderHandler)
		r.Get("/api/overlay/{username}", h.OverlayProfileHandler)
		r.Post("/api/webhook", h.GatewayWebhookHandler)

		// Group routes that require streamer authentication.
		r.Group(func(r chi.Router) {
			r.Use(StreamerAuthMiddleware(jwtSecret))

			r.Get("/api/me", h.ProfileHandler)
			r.Get("/api/analytics", h.AnalyticsHandler)
			r.Put("/api/overlay-settings", h.UpdateOverlaySettingsHandler)
			r.Post("/api/alert-token", h.SetAlertTokenHandler)
		})
	})

	return r
}
