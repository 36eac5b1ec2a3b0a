package handlers

import (
	"encoding/json"
	"net/http"

	"entrepreneur-connect-backend/internal/middleware"
	"entrepreneur-connect-backend/internal/realtime"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Inbound and control message types of the socket
const (
	wsTypeReady = "ready"
	wsTypePing  = "ping"
	wsTypePong  = "pong"
	wsTypeError = "error"
)

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub      *realtime.Hub
	auth     middleware.Authenticator
	badges   BadgeService
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *realtime.Hub, auth middleware.Authenticator, badges BadgeService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		auth:   auth,
		badges: badges,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// inboundMessage is what clients may send over the socket
type inboundMessage struct {
	Type string `json:"type"`
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	session, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		middleware.RespondAuthError(w, err)
		return
	}
	userID := session.UserID

	// Upgrade connection
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := h.hub.Register(userID, conn)
	defer h.hub.Unregister(client)

	// Initial counters so the client can render without polling
	var data interface{}
	if badges, err := h.badges.Badges(r.Context(), userID); err == nil {
		data = badges
	} else {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load badges for WebSocket client")
	}
	h.reply(client, realtime.NewEvent(wsTypeReady, data))

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Debug().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.reply(client, realtime.NewEvent(wsTypeError, "Invalid message format"))
			continue
		}

		switch msg.Type {
		case wsTypePing:
			h.reply(client, realtime.NewEvent(wsTypePong, nil))
		default:
			h.reply(client, realtime.NewEvent(wsTypeError, "Unknown message type"))
		}
	}
}

func (h *WebSocketHandler) reply(client *realtime.Client, event realtime.Event) {
	if err := client.Send(event); err != nil {
		log.Error().Err(err).Str("user_id", client.UserID).Str("type", event.Type).Msg("Failed to send WebSocket message")
	}
}

// originChecker accepts the configured origins; "*" or an empty list accepts all
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
