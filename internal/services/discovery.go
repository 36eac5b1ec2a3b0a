package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"entrepreneur-connect-backend/internal/apperrors"
	"entrepreneur-connect-backend/internal/geo"
	"entrepreneur-connect-backend/internal/models"
)

// DiscoveryService ranks other entrepreneurs by proximity
type DiscoveryService struct {
	profiles    ProfileStore
	connections ConnectionStore
}

// NewDiscoveryService creates a new discovery service
func NewDiscoveryService(profiles ProfileStore, connections ConnectionStore) *DiscoveryService {
	return &DiscoveryService{
		profiles:    profiles,
		connections: connections,
	}
}

// Discover lists every profile but the viewer's, annotated with the relation
// and distance to the viewer. Profiles with a distance come first, nearest
// first; the others keep the store order.
func (s *DiscoveryService) Discover(ctx context.Context, viewerID string, filter models.DiscoverFilter) ([]models.DiscoverItem, error) {
	filter.Sector = strings.TrimSpace(filter.Sector)
	filter.City = strings.TrimSpace(filter.City)
	filter.Query = strings.TrimSpace(filter.Query)

	viewer, err := s.profiles.Get(ctx, viewerID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	candidates, err := s.profiles.Discover(ctx, viewerID, filter)
	if err != nil {
		return nil, err
	}

	relations, err := relationMap(ctx, s.connections, viewerID)
	if err != nil {
		return nil, err
	}

	items := make([]models.DiscoverItem, 0, len(candidates))
	for _, p := range candidates {
		if p.ID == viewerID {
			continue
		}
		item := models.DiscoverItem{Profile: p, Relation: models.NoRelation}
		if rel, ok := relations[p.ID]; ok {
			item.Relation = rel
		}
		if viewer != nil && viewer.HasCoordinates() && p.HasCoordinates() {
			rounded := geo.Distance(*viewer.Latitude, *viewer.Longitude, *p.Latitude, *p.Longitude)
			item.DistanceKM = &rounded
			item.Distance = geo.FormatDistance(float64(rounded))
		}
		items = append(items, item)
	}

	sortByDistance(items)
	return items, nil
}

func sortByDistance(items []models.DiscoverItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].DistanceKM, items[j].DistanceKM
		switch {
		case a != nil && b != nil:
			return *a < *b
		case a != nil:
			return true
		default:
			return false
		}
	})
}

// Cities returns the names offered by the city selector
func (s *DiscoveryService) Cities() []string {
	return geo.CityNames()
}
