package handlers

import (
	"context"
	"net/http"

	"entrepreneur-connect-backend/internal/middleware"
	"entrepreneur-connect-backend/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RelationshipService drives the connection request lifecycle
type RelationshipService interface {
	SendRequest(ctx context.Context, requesterID, recipientID string) (*models.Connection, error)
	AcceptRequest(ctx context.Context, actorID, connectionID string) (*models.Connection, error)
	DeclineRequest(ctx context.Context, actorID, connectionID string) (*models.Connection, error)
	Lists(ctx context.Context, viewerID, search string) (*models.ConnectionLists, error)
}

// ConnectionHandler handles connection-related HTTP requests
type ConnectionHandler struct {
	relationships RelationshipService
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(relationships RelationshipService) *ConnectionHandler {
	return &ConnectionHandler{relationships: relationships}
}

// SendRequestBody represents the request body for a connection request
type SendRequestBody struct {
	RecipientID string `json:"recipient_id"`
}

// ListConnections handles GET /api/v1/connections
func (h *ConnectionHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	lists, err := h.relationships.Lists(ctx, userID, r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, err, "Failed to list connections", withUser(userID))
		return
	}

	respondJSON(w, http.StatusOK, lists)
}

// SendRequest handles POST /api/v1/connections
func (h *ConnectionHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req SendRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}

	conn, err := h.relationships.SendRequest(ctx, userID, req.RecipientID)
	if err != nil {
		respondServiceError(w, err, "Failed to send connection request", func(e *zerolog.Event) {
			e.Str("user_id", userID).Str("recipient_id", req.RecipientID)
		})
		return
	}

	respondJSON(w, http.StatusCreated, conn)
}

// AcceptRequest handles POST /api/v1/connections/{id}/accept
func (h *ConnectionHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	h.answer(w, r, "accepted", h.relationships.AcceptRequest)
}

// DeclineRequest handles POST /api/v1/connections/{id}/decline
func (h *ConnectionHandler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	h.answer(w, r, "declined", h.relationships.DeclineRequest)
}

func (h *ConnectionHandler) answer(
	w http.ResponseWriter,
	r *http.Request,
	outcome string,
	apply func(ctx context.Context, actorID, connectionID string) (*models.Connection, error),
) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	connID := chi.URLParam(r, "id")

	conn, err := apply(ctx, userID, connID)
	if err != nil {
		respondServiceError(w, err, "Failed to answer connection request", func(e *zerolog.Event) {
			e.Str("user_id", userID).Str("connection_id", connID).Str("outcome", outcome)
		})
		return
	}

	respondJSON(w, http.StatusOK, conn)
}
