/**
 * @description
 * This file contains the HTTP handler for the subscription action endpoint.
 * The endpoint accepts a JSON body of the form {action, ...payload} and
 * routes to exactly one of the five dispatcher operations. Handlers parse
 * the request, call the service layer, and map error kinds onto HTTP status
 * codes.
 */
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ejacques1/ErinGPT-Builder/internal/app"
)

// Handler holds the application services the HTTP handlers call into.
type Handler struct {
	service app.Service
}

// NewHandler creates a new Handler with the given dispatcher service.
func NewHandler(service app.Service) *Handler {
	return &Handler{service: service}
}

// actionEnvelope is the outer shape of every dispatcher request.
type actionEnvelope struct {
	Action string `json:"action"`

	UserID       string  `json:"userId"`
	Email        string  `json:"email"`
	GPTID        string  `json:"gptId"`
	CreatorID    string  `json:"creatorId"`
	MonthlyPrice float64 `json:"monthlyPrice"`

	SubscriptionID  string `json:"subscriptionId"`
	StripeAccountID string `json:"stripeAccountId"`
}

// handleSubscriptionAction dispatches one of the five billing actions.
func (h *Handler) handleSubscriptionAction(w http.ResponseWriter, r *http.Request) {
	var req actionEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	var (
		payload any
		err     error
	)

	switch req.Action {
	case "create_creator_subscription":
		payload, err = h.service.CreateCreatorSubscription(ctx, req.UserID, req.Email)
	case "create_connect_account":
		payload, err = h.service.CreateConnectAccount(ctx, req.UserID, req.Email)
	case "create_customer_subscription":
		payload, err = h.service.CreateCustomerSubscription(ctx, app.CustomerSubscriptionInput{
			UserID:       req.UserID,
			Email:        req.Email,
			GPTID:        req.GPTID,
			CreatorID:    req.CreatorID,
			MonthlyPrice: req.MonthlyPrice,
		})
	case "verify_subscription":
		payload, err = h.service.VerifySubscription(ctx, req.SubscriptionID, req.StripeAccountID)
	case "get_connect_status":
		payload, err = h.service.GetConnectStatus(ctx, req.UserID)
	default:
		respondWithError(w, http.StatusBadRequest, "unknown action")
		return
	}

	if err != nil {
		log.Printf("Action %s failed: %v", req.Action, err)
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, payload)
}

// statusForError maps application error kinds onto HTTP status codes.
// Anything unrecognized is an internal error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, app.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, app.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError writes the {error} body every failure path uses.
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
