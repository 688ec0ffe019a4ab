package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/erntsn/todo-app/utils"
)

type contextKey string

const userIDKey contextKey = "user_id"

// SessionValidator resolves a bearer token to a user id. Rejected tokens
// yield an error wrapping utils.ErrInvalidToken.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (string, error)
}

func AuthMiddleware(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseWithError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			userID, err := sessions.ValidateSession(r.Context(), tokenString)
			if errors.Is(err, utils.ErrInvalidToken) {
				utils.ResponseWithError(w, http.StatusUnauthorized, "Invalid Token")
				return
			} else if err != nil {
				log.Printf("validate session: %v", err)
				utils.ResponseWithError(w, http.StatusInternalServerError, "Database Error")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user id, or "" outside AuthMiddleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
