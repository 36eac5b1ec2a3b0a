package models

import (
	"strings"
	"time"
)

// Profile represents the public profile attached to an identity provider user
type Profile struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Company    string    `json:"company"`
	Position   string    `json:"position"`
	Bio        string    `json:"bio"`
	Location   string    `json:"location"`
	City       string    `json:"city"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	Sector     string    `json:"sector"`
	Skills     []string  `json:"skills"`
	LookingFor []string  `json:"looking_for"`
	AvatarURL  string    `json:"avatar_url"`
	CoverURL   string    `json:"cover_url"`
	IsVerified bool      `json:"is_verified"`
	PushToken  *string   `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FullName returns "first last" without stray spaces
func (p *Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// HasCoordinates reports whether both latitude and longitude are set
func (p *Profile) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Summary returns the compact form embedded in lists
func (p *Profile) Summary() ProfileSummary {
	return ProfileSummary{
		ID:         p.ID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Company:    p.Company,
		Position:   p.Position,
		City:       p.City,
		Sector:     p.Sector,
		AvatarURL:  p.AvatarURL,
		IsVerified: p.IsVerified,
	}
}

// ProfileSummary is the counterpart card shown in lists
type ProfileSummary struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Company    string `json:"company"`
	Position   string `json:"position"`
	City       string `json:"city"`
	Sector     string `json:"sector"`
	AvatarURL  string `json:"avatar_url"`
	IsVerified bool   `json:"is_verified"`
}

// FullName returns "first last" without stray spaces
func (s ProfileSummary) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Matches reports whether the lowercase query occurs in the name or company
func (s ProfileSummary) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(s.FullName()), q) ||
		strings.Contains(strings.ToLower(s.Company), q)
}

// ProfileUpdate is a partial update; nil fields are left untouched
type ProfileUpdate struct {
	FirstName  *string   `json:"first_name" validate:"omitempty,max=100"`
	LastName   *string   `json:"last_name" validate:"omitempty,max=100"`
	Company    *string   `json:"company" validate:"omitempty,max=200"`
	Position   *string   `json:"position" validate:"omitempty,max=200"`
	Bio        *string   `json:"bio" validate:"omitempty,max=1000"`
	Location   *string   `json:"location" validate:"omitempty,max=200"`
	City       *string   `json:"city" validate:"omitempty,max=100"`
	Sector     *string   `json:"sector" validate:"omitempty,max=100"`
	Skills     *[]string `json:"skills"`
	LookingFor *[]string `json:"looking_for"`
	Latitude   *float64  `json:"latitude" validate:"omitempty,latitude"`
	Longitude  *float64  `json:"longitude" validate:"omitempty,longitude"`
}

// ProfileView is returned when a user opens someone else's profile
type ProfileView struct {
	Profile     *Profile       `json:"profile"`
	Relation    RelationStatus `json:"relation"`
	DistanceKM  *int           `json:"distance_km,omitempty"`
	Distance    string         `json:"distance,omitempty"`
	Connections int            `json:"connections"`
}

// DiscoverFilter narrows the discovery listing
type DiscoverFilter struct {
	Sector string
	City   string
	Query  string
}

// DiscoverItem is one ranked candidate of the discovery listing
type DiscoverItem struct {
	Profile    *Profile       `json:"profile"`
	Relation   RelationStatus `json:"relation"`
	DistanceKM *int           `json:"distance_km,omitempty"`
	Distance   string         `json:"distance,omitempty"`
}

// Badges holds the counters shown in the navigation bar
type Badges struct {
	Notifications   int `json:"notifications"`
	PendingRequests int `json:"pending_requests"`
	UnreadMessages  int `json:"unread_messages"`
}
