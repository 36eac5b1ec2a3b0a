package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"entrepreneur-connect-backend/internal/apperrors"
	"entrepreneur-connect-backend/internal/config"
	"entrepreneur-connect-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Session identifies the user acting in a request
type Session struct {
	UserID string
}

type profileLoader interface {
	EnsureExists(ctx context.Context, userID string) (*models.Profile, error)
}

// SessionService verifies identity provider tokens
type SessionService struct {
	secret   []byte
	issuer   string
	audience string
	profiles profileLoader
}

// NewSessionService creates a new session service
func NewSessionService(cfg config.AuthConfig, profiles profileLoader) *SessionService {
	return &SessionService{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		profiles: profiles,
	}
}

// Authenticate validates a bearer token and returns the session it carries
func (s *SessionService) Authenticate(ctx context.Context, tokenString string) (*Session, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, apperrors.ErrUnauthorized
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrUnauthorized
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		userID, _ = claims["user_id"].(string)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id not found in token", apperrors.ErrUnauthorized)
	}

	return &Session{UserID: userID}, nil
}

// CurrentProfile returns the profile of the session user, creating it on first use
func (s *SessionService) CurrentProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.profiles.EnsureExists(ctx, userID)
}

// IssueToken signs a token the way the identity provider does; used by
// tooling and tests
func (s *SessionService) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}
	if s.audience != "" {
		claims["aud"] = s.audience
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}
