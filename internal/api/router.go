/**
 * @description
 * This file sets up the HTTP router using the go-chi/chi router. It defines
 * the three endpoint groups, applies logging, recovery, timeout, and CORS
 * middleware, and optionally gates the client-facing endpoints behind
 * Supabase JWT verification.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the Chi router and registers all routes. An empty
// jwtSecret disables authentication on the client-facing endpoints; the
// webhook endpoint is always authenticated by its Stripe signature instead.
func NewRouter(h *Handler, webhookHandler *WebhookHandler, completionHandler *CompletionHandler, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Billing service is healthy"))
	})

	// Stripe authenticates the webhook by signature, not by bearer token.
	r.Method(http.MethodPost, "/api/webhooks/stripe", webhookHandler)

	r.Group(func(r chi.Router) {
		if jwtSecret != "" {
			r.Use(SupabaseAuthMiddleware(jwtSecret))
		}

		r.Post("/api/subscriptions", h.handleSubscriptionAction)
		r.Method(http.MethodPost, "/api/chat", completionHandler)
	})

	return r
}
