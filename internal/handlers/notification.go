package handlers

import (
	"context"
	"net/http"

	"entrepreneur-connect-backend/internal/middleware"
	"entrepreneur-connect-backend/internal/models"
)

// NotificationService pages and acknowledges notifications
type NotificationService interface {
	List(ctx context.Context, userID string, page, pageSize int) (*models.NotificationPage, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int64, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	notifications NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// MarkReadRequest represents the request body for acknowledging notifications
type MarkReadRequest struct {
	IDs []string `json:"ids"`
}

// ListNotifications handles GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	page, err := h.notifications.List(ctx, userID, queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		respondServiceError(w, err, "Failed to list notifications", withUser(userID))
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// MarkRead handles POST /api/v1/notifications/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req MarkReadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.notifications.MarkRead(ctx, userID, req.IDs)
	if err != nil {
		respondServiceError(w, err, "Failed to mark notifications read", withUser(userID))
		return
	}

	respondJSON(w, http.StatusOK, MarkedResponse{Updated: n})
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	n, err := h.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		respondServiceError(w, err, "Failed to mark notifications read", withUser(userID))
		return
	}

	respondJSON(w, http.StatusOK, MarkedResponse{Updated: n})
}
