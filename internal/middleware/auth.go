package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"entrepreneur-connect-backend/internal/apperrors"
	"entrepreneur-connect-backend/internal/models"
	"entrepreneur-connect-backend/internal/services"

	"github.com/rs/zerolog/log"
)

type contextKey string

const sessionKey contextKey = "session"

// Authenticator verifies a bearer token and provides the profile of its user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Session, error)
	CurrentProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// AuthMiddleware creates a middleware for bearer token authentication
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", "", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondError(w, "Invalid authorization header format", "", http.StatusUnauthorized)
				return
			}

			session, err := auth.Authenticate(r.Context(), parts[1])
			if err != nil {
				RespondAuthError(w, err)
				return
			}

			// Everything a user writes references their profile
			if _, err := auth.CurrentProfile(r.Context(), session.UserID); err != nil {
				log.Error().Err(err).Str("user_id", session.UserID).Msg("Failed to load profile of authenticated user")
				respondError(w, apperrors.ErrUnavailable.Error(), "", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RespondAuthError answers 401, flagging expired tokens so clients can sign in again
func RespondAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, apperrors.ErrTokenExpired) {
		respondError(w, "token expired", "token_expired", http.StatusUnauthorized)
		return
	}
	log.Debug().Err(err).Msg("Rejected token")
	respondError(w, "Invalid token", "", http.StatusUnauthorized)
}

// WithSession stores the session in the context
func WithSession(ctx context.Context, session *services.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// GetSession extracts the session from context
func GetSession(ctx context.Context) *services.Session {
	session, _ := ctx.Value(sessionKey).(*services.Session)
	return session
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	if session := GetSession(ctx); session != nil {
		return session.UserID
	}
	return ""
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message, code string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorBody{Error: message, Code: code})
}
