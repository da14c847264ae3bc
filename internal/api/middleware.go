/**
 * @description
 * This file contains the JWT authentication middleware for the streamer
 * dashboard endpoints. Tokens are HS256-signed bearer tokens whose subject is
 * the streamer's UUID; the middleware validates the token and places the
 * streamer id on the request context for downstream handlers.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: For JWT parsing and validation.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const streamerIDKey contextKey = "streamerID"

// StreamerAuthMiddleware validates the Authorization bearer token and injects
// the authenticated streamer's id into the request context.
func StreamerAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "Missing or malformed Authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			subject, err := token.Claims.GetSubject()
			if err != nil || subject == "" {
				http.Error(w, "Token missing subject claim", http.StatusUnauthorized)
				return
			}
			streamerID, err := uuid.Parse(subject)
			if err != nil {
				http.Error(w, "Token subject is not a valid streamer id", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), streamerIDKey, streamerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetStreamerID retrieves the authenticated streamer's id from the context.
func GetStreamerID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(streamerIDKey).(uuid.UUID)
	return id, ok
}
