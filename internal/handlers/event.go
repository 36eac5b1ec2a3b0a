package handlers

import (
	"context"
	"net/http"

	"entrepreneur-connect-backend/internal/middleware"
	"entrepreneur-connect-backend/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// EventService manages events and their participants
type EventService interface {
	CreateEvent(ctx context.Context, organizerID string, in models.EventInput) (*models.EventItem, error)
	RegisterForEvent(ctx context.Context, eventID, userID string) (*models.EventParticipant, error)
	UnregisterFromEvent(ctx context.Context, eventID, userID string) error
	ListEvents(ctx context.Context, viewerID string, filter models.EventFilter) ([]models.EventItem, error)
	GetEvent(ctx context.Context, viewerID, eventID string) (*models.EventItem, error)
	GetEventBySlug(ctx context.Context, viewerID, eventSlug string) (*models.EventItem, error)
	Participants(ctx context.Context, eventID string) ([]models.EventParticipant, error)
	Categories(ctx context.Context) ([]string, error)
	DeleteEvent(ctx context.Context, actorID, eventID string) error
}

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	events EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(events EventService) *EventHandler {
	return &EventHandler{events: events}
}

// ListEvents handles GET /api/v1/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	q := r.URL.Query()

	items, err := h.events.ListEvents(ctx, userID, models.EventFilter{
		Category: q.Get("category"),
		Date:     q.Get("date"),
		Query:    q.Get("q"),
	})
	if err != nil {
		respondServiceError(w, err, "Failed to list events", withUser(userID))
		return
	}
	if items == nil {
		items = []models.EventItem{}
	}

	respondJSON(w, http.StatusOK, items)
}

// CreateEvent handles POST /api/v1/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req models.EventInput
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.events.CreateEvent(ctx, userID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to create event", withUser(userID))
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

// Categories handles GET /api/v1/events/categories
func (h *EventHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	categories, err := h.events.Categories(ctx)
	if err != nil {
		respondServiceError(w, err, "Failed to list event categories", nil)
		return
	}

	respondJSON(w, http.StatusOK, categories)
}

// GetEventBySlug handles GET /api/v1/events/s/{slug}
func (h *EventHandler) GetEventBySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventSlug := chi.URLParam(r, "slug")

	item, err := h.events.GetEventBySlug(ctx, userID, eventSlug)
	if err != nil {
		respondServiceError(w, err, "Failed to load event", func(e *zerolog.Event) {
			e.Str("user_id", userID).Str("slug", eventSlug)
		})
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// GetEvent handles GET /api/v1/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "id")

	item, err := h.events.GetEvent(ctx, userID, eventID)
	if err != nil {
		respondServiceError(w, err, "Failed to load event", withEvent(userID, eventID))
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// DeleteEvent handles DELETE /api/v1/events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "id")

	if err := h.events.DeleteEvent(ctx, userID, eventID); err != nil {
		respondServiceError(w, err, "Failed to delete event", withEvent(userID, eventID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Participants handles GET /api/v1/events/{id}/participants
func (h *EventHandler) Participants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "id")

	participants, err := h.events.Participants(ctx, eventID)
	if err != nil {
		respondServiceError(w, err, "Failed to list participants", withEvent(userID, eventID))
		return
	}
	if participants == nil {
		participants = []models.EventParticipant{}
	}

	respondJSON(w, http.StatusOK, participants)
}

// Register handles POST /api/v1/events/{id}/register
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "id")

	participant, err := h.events.RegisterForEvent(ctx, eventID, userID)
	if err != nil {
		respondServiceError(w, err, "Failed to register for event", withEvent(userID, eventID))
		return
	}

	respondJSON(w, http.StatusCreated, participant)
}

// Unregister handles DELETE /api/v1/events/{id}/register
func (h *EventHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "id")

	if err := h.events.UnregisterFromEvent(ctx, eventID, userID); err != nil {
		respondServiceError(w, err, "Failed to unregister from event", withEvent(userID, eventID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func withEvent(userID, eventID string) func(e *zerolog.Event) {
	return func(e *zerolog.Event) {
		e.Str("user_id", userID).Str("event_id", eventID)
	}
}
