package handlers

import (
	"context"
	"net/http"
	"time"

	"entrepreneur-connect-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig holds everything the router wires together
type RouterConfig struct {
	Auth           middleware.Authenticator
	AllowedOrigins []string
	Database       Pinger

	Profiles      *ProfileHandler
	Discovery     *DiscoveryHandler
	Connections   *ConnectionHandler
	Messages      *MessageHandler
	Events        *EventHandler
	Notifications *NotificationHandler
	Uploads       *UploadHandler
	WebSocket     *WebSocketHandler
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// NewRouter builds the HTTP router
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", health(cfg.Database))
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket route authenticates with the token query parameter
	if cfg.WebSocket != nil {
		r.Get("/ws", cfg.WebSocket.HandleWebSocket)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.Auth))

		r.Route("/me", func(r chi.Router) {
			r.Get("/", cfg.Profiles.GetMe)
			r.Patch("/", cfg.Profiles.UpdateMe)
			r.Put("/push-token", cfg.Profiles.SetPushToken)
			r.Get("/badges", cfg.Profiles.GetBadges)
			r.Get("/dashboard", cfg.Profiles.GetDashboard)
		})
		r.Get("/profiles/{id}", cfg.Profiles.GetProfile)

		r.Get("/discover", cfg.Discovery.Discover)
		r.Get("/cities", cfg.Discovery.Cities)

		r.Route("/connections", func(r chi.Router) {
			r.Get("/", cfg.Connections.ListConnections)
			r.Post("/", cfg.Connections.SendRequest)
			r.Post("/{id}/accept", cfg.Connections.AcceptRequest)
			r.Post("/{id}/decline", cfg.Connections.DeclineRequest)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", cfg.Messages.ListConversations)
			r.Get("/{user_id}", cfg.Messages.GetConversation)
			r.Post("/{user_id}/start", cfg.Messages.StartConversation)
			r.Post("/{user_id}/read", cfg.Messages.MarkConversationRead)
		})
		r.Post("/messages", cfg.Messages.SendMessage)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", cfg.Events.ListEvents)
			r.Post("/", cfg.Events.CreateEvent)
			r.Get("/categories", cfg.Events.Categories)
			r.Get("/s/{slug}", cfg.Events.GetEventBySlug)
			r.Get("/{id}", cfg.Events.GetEvent)
			r.Delete("/{id}", cfg.Events.DeleteEvent)
			r.Get("/{id}/participants", cfg.Events.Participants)
			r.Post("/{id}/register", cfg.Events.Register)
			r.Delete("/{id}/register", cfg.Events.Unregister)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.Notifications.ListNotifications)
			r.Post("/read", cfg.Notifications.MarkRead)
			r.Post("/read-all", cfg.Notifications.MarkAllRead)
		})

		r.Post("/uploads", cfg.Uploads.PresignUpload)
		r.Post("/uploads/confirm", cfg.Uploads.ConfirmUpload)
	})

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Database: "ok"}
		status := http.StatusOK

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				resp = HealthResponse{Status: "degraded", Database: "unreachable"}
				status = http.StatusServiceUnavailable
			}
		}

		respondJSON(w, status, resp)
	}
}
