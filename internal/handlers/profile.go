package handlers

import (
	"context"
	"net/http"
	"strings"

	"entrepreneur-connect-backend/internal/middleware"
	"entrepreneur-connect-backend/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ProfileService is the profile behaviour the handlers need
type ProfileService interface {
	EnsureExists(ctx context.Context, userID string) (*models.Profile, error)
	Update(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.Profile, error)
	View(ctx context.Context, viewerID, profileUserID string) (*models.ProfileView, error)
	SetPushToken(ctx context.Context, userID, token string) error
}

// BadgeService returns the counters shown on the navigation bar
type BadgeService interface {
	Badges(ctx context.Context, userID string) (*models.Badges, error)
}

// DashboardService assembles the landing page
type DashboardService interface {
	Dashboard(ctx context.Context, userID string) (*models.Dashboard, error)
}

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	profiles  ProfileService
	badges    BadgeService
	dashboard DashboardService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles ProfileService, badges BadgeService, dashboard DashboardService) *ProfileHandler {
	return &ProfileHandler{
		profiles:  profiles,
		badges:    badges,
		dashboard: dashboard,
	}
}

// GetMe handles GET /api/v1/me
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	profile, err := h.profiles.EnsureExists(ctx, userID)
	if err != nil {
		respondServiceError(w, err, "Failed to load profile", withUser(userID))
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// UpdateMe handles PATCH /api/v1/me
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req models.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.profiles.Update(ctx, userID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to update profile", withUser(userID))
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// PushTokenRequest represents the request body for registering a device
type PushTokenRequest struct {
	Token string `json:"token"`
}

// SetPushToken handles PUT /api/v1/me/push-token
func (h *ProfileHandler) SetPushToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req PushTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.profiles.SetPushToken(ctx, userID, req.Token); err != nil {
		respondServiceError(w, err, "Failed to set push token", withUser(userID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetBadges handles GET /api/v1/me/badges
func (h *ProfileHandler) GetBadges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	badges, err := h.badges.Badges(ctx, userID)
	if err != nil {
		respondServiceError(w, err, "Failed to count badges", withUser(userID))
		return
	}

	respondJSON(w, http.StatusOK, badges)
}

// GetDashboard handles GET /api/v1/me/dashboard
func (h *ProfileHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	dashboard, err := h.dashboard.Dashboard(ctx, userID)
	if err != nil {
		respondServiceError(w, err, "Failed to build dashboard", withUser(userID))
		return
	}

	respondJSON(w, http.StatusOK, dashboard)
}

// GetProfile handles GET /api/v1/profiles/{id}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	profileID := strings.TrimSpace(chi.URLParam(r, "id"))

	view, err := h.profiles.View(ctx, userID, profileID)
	if err != nil {
		respondServiceError(w, err, "Failed to load profile", func(e *zerolog.Event) {
			e.Str("user_id", userID).Str("profile_id", profileID)
		})
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func withUser(userID string) func(e *zerolog.Event) {
	return func(e *zerolog.Event) {
		e.Str("user_id", userID)
	}
}
