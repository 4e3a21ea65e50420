/**
 * @description
 * This file contains the HTTP handler for the completion proxy endpoint.
 * It parses the chat payload, applies the optional per-user rate limit, and
 * forwards to the completion service.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ejacques1/ErinGPT-Builder/internal/app"
	"github.com/ejacques1/ErinGPT-Builder/pkg/openaiclient"
)

// RateLimiter applies a fixed-window request limit per subject.
type RateLimiter interface {
	Consume(ctx context.Context, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// CompletionHandler proxies chat requests to the completion API.
type CompletionHandler struct {
	service       app.CompletionService
	apiConfigured bool

	limiter    RateLimiter
	rateLimit  int
	rateWindow time.Duration
}

// NewCompletionHandler creates the chat endpoint handler. apiConfigured is
// false when no completion API key is present; requests then fail with a
// configuration error before any upstream call. limiter may be nil.
func NewCompletionHandler(service app.CompletionService, apiConfigured bool, limiter RateLimiter, rateLimit int, rateWindow time.Duration) *CompletionHandler {
	return &CompletionHandler{
		service:       service,
		apiConfigured: apiConfigured,
		limiter:       limiter,
		rateLimit:     rateLimit,
		rateWindow:    rateWindow,
	}
}

type completionRequest struct {
	Messages     []openaiclient.Message `json:"messages"`
	Instructions string                 `json:"instructions"`
	Context      string                 `json:"context"`
	Model        string                 `json:"model"`
}

type completionResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Model   string             `json:"model"`
	Usage   openaiclient.Usage `json:"usage"`
}

type completionError struct {
	Error     string `json:"error"`
	Details   string `json:"details"`
	Timestamp string `json:"timestamp"`
}

// ServeHTTP implements the http.Handler interface.
func (h *CompletionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.apiConfigured {
		h.respondFailure(w, http.StatusInternalServerError, "configuration error", "completion API key is not configured")
		return
	}

	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		respondWithError(w, http.StatusBadRequest, "messages are required")
		return
	}

	if ok := h.allow(w, r); !ok {
		return
	}

	result, err := h.service.Complete(r.Context(), app.CompletionInput{
		Messages:     req.Messages,
		Instructions: req.Instructions,
		Context:      req.Context,
		Model:        req.Model,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidArgument) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Completion request failed: %v", err)
		h.respondFailure(w, http.StatusInternalServerError, "completion failed", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, completionResponse{
		Success: true,
		Message: result.Message,
		Model:   result.Model,
		Usage:   result.Usage,
	})
}

// allow applies the rate limit and writes the 429 response when exceeded.
// Limiter failures are logged and fail open.
func (h *CompletionHandler) allow(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil || h.rateLimit <= 0 {
		return true
	}

	subject, ok := AuthUserIDFromContext(r.Context())
	if !ok {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			subject = host
		} else {
			subject = r.RemoteAddr
		}
	}

	count, retryAfter, err := h.limiter.Consume(r.Context(), subject, h.rateLimit, h.rateWindow)
	if err != nil {
		log.Printf("WARN: chat rate limiter unavailable: %v", err)
		return true
	}
	if count > h.rateLimit {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return false
	}
	return true
}

// respondFailure writes the {error, details, timestamp} body the chat
// endpoint uses for server-side failures.
func (h *CompletionHandler) respondFailure(w http.ResponseWriter, code int, message, details string) {
	respondWithJSON(w, code, completionError{
		Error:     message,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
