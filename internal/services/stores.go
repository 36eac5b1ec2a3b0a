package services

import (
	"context"

	"entrepreneur-connect-backend/internal/geo"
	"entrepreneur-connect-backend/internal/models"
	"entrepreneur-connect-backend/internal/realtime"
)

// ProfileStore persists profiles
type ProfileStore interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	CreateDefault(ctx context.Context, p *models.Profile) error
	Update(ctx context.Context, p *models.Profile) error
	Exists(ctx context.Context, id string) (bool, error)
	Summaries(ctx context.Context, ids []string) (map[string]models.ProfileSummary, error)
	Discover(ctx context.Context, viewerID string, filter models.DiscoverFilter) ([]*models.Profile, error)
	SetPushToken(ctx context.Context, id string, token *string) error
	SetAvatarURL(ctx context.Context, id, url string) error
	SetCoverURL(ctx context.Context, id, url string) error
	RecordView(ctx context.Context, profileID, viewerID string) error
	CountViews(ctx context.Context, profileID string) (int, error)
}

// ConnectionStore persists connection requests
type ConnectionStore interface {
	Create(ctx context.Context, c *models.Connection) error
	GetByID(ctx context.Context, id string) (*models.Connection, error)
	FindBetween(ctx context.Context, a, b string) (*models.Connection, error)
	Transition(ctx context.Context, id, recipientID string, status models.ConnectionStatus) (*models.Connection, error)
	ListReceived(ctx context.Context, userID string) ([]models.Connection, error)
	ListSent(ctx context.Context, userID string) ([]models.Connection, error)
	ListAccepted(ctx context.Context, userID string) ([]models.Connection, error)
	ListForUser(ctx context.Context, userID string) ([]models.Connection, error)
	CountPending(ctx context.Context, userID string) (int, error)
	CountAccepted(ctx context.Context, userID string) (int, error)
}

// NotificationStore persists notifications
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID string, limit, offset int) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int64, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// MessageStore persists direct messages
type MessageStore interface {
	Create(ctx context.Context, m *models.Message) error
	ListForUser(ctx context.Context, userID string) ([]models.Message, error)
	ListBetween(ctx context.Context, a, b string) ([]models.Message, error)
	RecentReceived(ctx context.Context, userID string, limit int) ([]models.Message, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	CountReceived(ctx context.Context, userID string) (int, error)
	MarkConversationRead(ctx context.Context, receiverID, senderID string) (int64, error)
}

// EventStore persists events and their participants
type EventStore interface {
	Create(ctx context.Context, e *models.Event, organizer *models.EventParticipant) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	GetBySlug(ctx context.Context, slug string) (*models.Event, error)
	List(ctx context.Context, filter models.EventFilter, dates models.DateRange) ([]models.Event, error)
	Upcoming(ctx context.Context, userID, from string, limit int) ([]models.Event, error)
	Delete(ctx context.Context, id string) error
	SetCoverURL(ctx context.Context, id, url string) error
	Register(ctx context.Context, p *models.EventParticipant) error
	Unregister(ctx context.Context, eventID, userID string) (bool, error)
	Participants(ctx context.Context, eventID string) ([]models.EventParticipant, error)
	CountParticipants(ctx context.Context, eventIDs []string) (map[string]int, error)
	RegisteredEventIDs(ctx context.Context, userID string, eventIDs []string) (map[string]bool, error)
	CountRegistrations(ctx context.Context, userID string) (int, error)
	Categories(ctx context.Context) ([]string, error)
}

// Publisher sends change notifications to connected clients
type Publisher interface {
	Publish(ctx context.Context, event realtime.Event) error
}

// CoordinateResolver looks up the coordinates of a city
type CoordinateResolver interface {
	Resolve(ctx context.Context, city string) (geo.Point, bool)
}
