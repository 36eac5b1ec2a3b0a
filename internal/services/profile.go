package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"entrepreneur-connect-backend/internal/apperrors"
	"entrepreneur-connect-backend/internal/geo"
	"entrepreneur-connect-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// Defaults of a lazily created profile
const (
	DefaultFirstName = "Nouvel"
	DefaultLastName  = "Utilisateur"
)

// maxTags bounds the skills and looking_for lists
const maxTags = 20

// ProfileService handles profile-related business logic
type ProfileService struct {
	profiles    ProfileStore
	connections ConnectionStore
	resolver    CoordinateResolver
	now         func() time.Time
}

// NewProfileService creates a new profile service
func NewProfileService(profiles ProfileStore, connections ConnectionStore, resolver CoordinateResolver) *ProfileService {
	return &ProfileService{
		profiles:    profiles,
		connections: connections,
		resolver:    resolver,
		now:         time.Now,
	}
}

// Get returns a profile by user ID
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	return s.profiles.Get(ctx, userID)
}

// EnsureExists returns the user's profile, creating the default one on first use
func (s *ProfileService) EnsureExists(ctx context.Context, userID string) (*models.Profile, error) {
	return ensureProfile(ctx, s.profiles, userID, s.now)
}

// ensureProfile loads the user's profile, creating the default one when absent.
// Rows written on behalf of a user reference profiles(id).
func ensureProfile(ctx context.Context, profiles ProfileStore, userID string, clock func() time.Time) (*models.Profile, error) {
	profile, err := profiles.Get(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	now := clock()
	profile = &models.Profile{
		ID:         userID,
		FirstName:  DefaultFirstName,
		LastName:   DefaultLastName,
		Skills:     []string{},
		LookingFor: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := profiles.CreateDefault(ctx, profile); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID).Msg("Profile created")

	// A concurrent request may have created it first; read back the stored row
	return profiles.Get(ctx, userID)
}

// Update applies a partial update to the user's own profile
func (s *ProfileService) Update(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.Profile, error) {
	if err := validateStruct(upd); err != nil {
		return nil, err
	}

	profile, err := s.EnsureExists(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		name := strings.TrimSpace(*upd.FirstName)
		if name == "" {
			return nil, apperrors.NewValidationError("first_name", "first_name cannot be empty")
		}
		profile.FirstName = name
	}
	if upd.LastName != nil {
		name := strings.TrimSpace(*upd.LastName)
		if name == "" {
			return nil, apperrors.NewValidationError("last_name", "last_name cannot be empty")
		}
		profile.LastName = name
	}
	if upd.Company != nil {
		profile.Company = strings.TrimSpace(*upd.Company)
	}
	if upd.Position != nil {
		profile.Position = strings.TrimSpace(*upd.Position)
	}
	if upd.Bio != nil {
		profile.Bio = strings.TrimSpace(*upd.Bio)
	}
	if upd.Location != nil {
		profile.Location = strings.TrimSpace(*upd.Location)
	}
	if upd.Sector != nil {
		profile.Sector = strings.TrimSpace(*upd.Sector)
	}
	if upd.Skills != nil {
		tags, err := cleanTags("skills", *upd.Skills)
		if err != nil {
			return nil, err
		}
		profile.Skills = tags
	}
	if upd.LookingFor != nil {
		tags, err := cleanTags("looking_for", *upd.LookingFor)
		if err != nil {
			return nil, err
		}
		profile.LookingFor = tags
	}

	if (upd.Latitude == nil) != (upd.Longitude == nil) {
		return nil, apperrors.NewValidationError("latitude", "latitude and longitude must be provided together")
	}

	cityChanged := false
	if upd.City != nil {
		city := strings.TrimSpace(*upd.City)
		cityChanged = city != profile.City
		profile.City = city
	}

	switch {
	case upd.Latitude != nil:
		profile.Latitude = upd.Latitude
		profile.Longitude = upd.Longitude
	case cityChanged:
		s.locate(ctx, profile)
	}

	profile.UpdatedAt = s.now()
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID).Msg("Profile updated")

	return profile, nil
}

// locate fills the coordinates from the profile's city, clearing them when
// the city cannot be resolved
func (s *ProfileService) locate(ctx context.Context, profile *models.Profile) {
	profile.Latitude, profile.Longitude = nil, nil
	if profile.City == "" || s.resolver == nil {
		return
	}

	point, ok := s.resolver.Resolve(ctx, profile.City)
	if !ok {
		log.Warn().Str("user_id", profile.ID).Str("city", profile.City).Msg("Could not resolve city coordinates")
		return
	}
	lat, lon := point.Lat, point.Lon
	profile.Latitude, profile.Longitude = &lat, &lon
}

// cleanTags trims tags, drops empty ones and removes case-insensitive duplicates
func cleanTags(field string, tags []string) ([]string, error) {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > maxTags {
		return nil, apperrors.NewValidationError(field, fmt.Sprintf("%s cannot contain more than %d entries", field, maxTags))
	}
	return out, nil
}

// View returns another user's profile as seen by the viewer and records the visit
func (s *ProfileService) View(ctx context.Context, viewerID, profileUserID string) (*models.ProfileView, error) {
	profile, err := s.profiles.Get(ctx, profileUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("profile not found")
		}
		return nil, err
	}

	view := &models.ProfileView{Profile: profile, Relation: models.NoRelation}

	count, err := s.connections.CountAccepted(ctx, profileUserID)
	if err != nil {
		return nil, err
	}
	view.Connections = count

	if viewerID == profileUserID {
		return view, nil
	}

	relation, err := relationBetween(ctx, s.connections, viewerID, profileUserID)
	if err != nil {
		return nil, err
	}
	view.Relation = relation

	viewer, err := s.profiles.Get(ctx, viewerID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if viewer != nil && viewer.HasCoordinates() && profile.HasCoordinates() {
		rounded := geo.Distance(*viewer.Latitude, *viewer.Longitude, *profile.Latitude, *profile.Longitude)
		view.DistanceKM = &rounded
		view.Distance = geo.FormatDistance(float64(rounded))
	}

	if err := s.profiles.RecordView(ctx, profileUserID, viewerID); err != nil {
		log.Error().Err(err).Str("profile_id", profileUserID).Str("viewer_id", viewerID).Msg("Failed to record profile view")
	}

	return view, nil
}

// SetPushToken stores the device token of the user; an empty token clears it
func (s *ProfileService) SetPushToken(ctx context.Context, userID, token string) error {
	if _, err := s.EnsureExists(ctx, userID); err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	var value *string
	if token != "" {
		value = &token
	}
	return s.profiles.SetPushToken(ctx, userID, value)
}
