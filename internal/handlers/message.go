package handlers

import (
	"context"
	"net/http"

	"entrepreneur-connect-backend/internal/middleware"
	"entrepreneur-connect-backend/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MessagingService stores and groups direct messages
type MessagingService interface {
	Send(ctx context.Context, senderID, receiverID, content string) (*models.Message, error)
	Conversations(ctx context.Context, viewerID, search string) ([]models.Conversation, error)
	Conversation(ctx context.Context, viewerID, otherID string) (*models.Conversation, error)
	StartConversation(ctx context.Context, viewerID, otherID string) (*models.Conversation, error)
	MarkConversationRead(ctx context.Context, viewerID, otherID string) (int64, error)
}

// MessageHandler handles messaging HTTP requests
type MessageHandler struct {
	messages MessagingService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messages MessagingService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// MarkedResponse reports how many rows an update touched
type MarkedResponse struct {
	Updated int64 `json:"updated"`
}

// ListConversations handles GET /api/v1/conversations
func (h *MessageHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	convs, err := h.messages.Conversations(ctx, userID, r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, err, "Failed to list conversations", withUser(userID))
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}

	respondJSON(w, http.StatusOK, convs)
}

// GetConversation handles GET /api/v1/conversations/{user_id}
func (h *MessageHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	otherID := chi.URLParam(r, "user_id")

	conv, err := h.messages.Conversation(ctx, userID, otherID)
	if err != nil {
		respondServiceError(w, err, "Failed to load conversation", withPair(userID, otherID))
		return
	}

	respondJSON(w, http.StatusOK, conv)
}

// StartConversation handles POST /api/v1/conversations/{user_id}/start
func (h *MessageHandler) StartConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	otherID := chi.URLParam(r, "user_id")

	conv, err := h.messages.StartConversation(ctx, userID, otherID)
	if err != nil {
		respondServiceError(w, err, "Failed to start conversation", withPair(userID, otherID))
		return
	}

	respondJSON(w, http.StatusOK, conv)
}

// MarkConversationRead handles POST /api/v1/conversations/{user_id}/read
func (h *MessageHandler) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	otherID := chi.URLParam(r, "user_id")

	n, err := h.messages.MarkConversationRead(ctx, userID, otherID)
	if err != nil {
		respondServiceError(w, err, "Failed to mark conversation read", withPair(userID, otherID))
		return
	}

	respondJSON(w, http.StatusOK, MarkedResponse{Updated: n})
}

// SendMessage handles POST /api/v1/messages
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.messages.Send(ctx, userID, req.ReceiverID, req.Content)
	if err != nil {
		respondServiceError(w, err, "Failed to send message", withPair(userID, req.ReceiverID))
		return
	}

	log.Debug().
		Str("user_id", userID).
		Str("receiver_id", req.ReceiverID).
		Str("message_id", msg.ID).
		Msg("Message sent")

	respondJSON(w, http.StatusCreated, msg)
}

func withPair(userID, otherID string) func(e *zerolog.Event) {
	return func(e *zerolog.Event) {
		e.Str("user_id", userID).Str("other_user_id", otherID)
	}
}
