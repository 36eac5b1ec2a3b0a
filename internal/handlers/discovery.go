package handlers

import (
	"context"
	"net/http"

	"entrepreneur-connect-backend/internal/middleware"
	"entrepreneur-connect-backend/internal/models"
)

// DiscoveryService ranks other entrepreneurs for a viewer
type DiscoveryService interface {
	Discover(ctx context.Context, viewerID string, filter models.DiscoverFilter) ([]models.DiscoverItem, error)
	Cities() []string
}

// DiscoveryHandler handles discovery HTTP requests
type DiscoveryHandler struct {
	discovery DiscoveryService
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discovery DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{discovery: discovery}
}

// Discover handles GET /api/v1/discover
func (h *DiscoveryHandler) Discover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	q := r.URL.Query()

	items, err := h.discovery.Discover(ctx, userID, models.DiscoverFilter{
		Sector: q.Get("sector"),
		City:   q.Get("city"),
		Query:  q.Get("q"),
	})
	if err != nil {
		respondServiceError(w, err, "Failed to discover profiles", withUser(userID))
		return
	}
	if items == nil {
		items = []models.DiscoverItem{}
	}

	respondJSON(w, http.StatusOK, items)
}

// Cities handles GET /api/v1/cities
func (h *DiscoveryHandler) Cities(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.discovery.Cities())
}
