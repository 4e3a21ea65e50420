/**
 * @description
 * This file contains the HTTP handler for the Stripe webhook endpoint.
 * Signature verification is the authentication mechanism here: a request
 * whose signature fails verification performs zero row mutations and is
 * rejected with a client error. Processing failures return 500 so Stripe
 * redelivers; the reconciler is idempotent, so replays are safe.
 */
package api

import (
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/ejacques1/ErinGPT-Builder/internal/app"
)

const webhookBodyLimit = 1024 * 1024 // 1 MiB

// WebhookHandler verifies and applies incoming Stripe events.
type WebhookHandler struct {
	secret     string
	reconciler *app.Reconciler
}

// NewWebhookHandler creates a Stripe webhook HTTP handler.
func NewWebhookHandler(secret string, reconciler *app.Reconciler) *WebhookHandler {
	return &WebhookHandler{secret: secret, reconciler: reconciler}
}

// ServeHTTP implements the http.Handler interface.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if strings.TrimSpace(h.secret) == "" {
		respondWithError(w, http.StatusServiceUnavailable, "webhook secret not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		respondWithError(w, http.StatusBadRequest, "missing Stripe signature")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid Stripe signature")
		return
	}

	if err := h.reconciler.ProcessEvent(r.Context(), string(event.Type), event.Data.Raw); err != nil {
		log.Printf("Webhook event %s (%s) processing failed: %v", event.ID, event.Type, err)
		respondWithError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
}
