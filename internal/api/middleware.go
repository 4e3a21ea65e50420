/**
 * @description
 * Authentication middleware for the client-facing endpoints. Supabase signs
 * its access tokens with a shared HS256 secret, so verification is a local
 * parse; no key fetch is involved. The webhook endpoint is not behind this
 * middleware because the Stripe signature is its authentication.
 */
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const authUserIDContextKey contextKey = "authUserID"

// SupabaseAuthMiddleware validates Supabase HS256 bearer tokens and injects
// the token subject into the request context.
func SupabaseAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(30*time.Second))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "authorization required")
				return
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
				return secret, nil
			})
			if err != nil || !token.Valid {
				respondWithError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			sub, err := claims.GetSubject()
			if err != nil || strings.TrimSpace(sub) == "" {
				respondWithError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), authUserIDContextKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthUserIDFromContext returns the authenticated user id, when the auth
// middleware is enabled and ran for this request.
func AuthUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(authUserIDContextKey).(string)
	return userID, ok
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}
