package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"entrepreneur-connect-backend/internal/apperrors"
	"entrepreneur-connect-backend/internal/metrics"
	"entrepreneur-connect-backend/internal/models"
	"entrepreneur-connect-backend/internal/realtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// anonymousName replaces the first name of users who have not set one
const anonymousName = "Un entrepreneur"

type notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
	PublishBadges(ctx context.Context, userIDs ...string)
}

// RelationshipService handles the connection request lifecycle
type RelationshipService struct {
	connections ConnectionStore
	profiles    ProfileStore
	notifier    notifier
	publisher   Publisher
	now         func() time.Time
}

// NewRelationshipService creates a new relationship service
func NewRelationshipService(connections ConnectionStore, profiles ProfileStore, notifier notifier, publisher Publisher) *RelationshipService {
	return &RelationshipService{
		connections: connections,
		profiles:    profiles,
		notifier:    notifier,
		publisher:   publisher,
		now:         time.Now,
	}
}

// SendRequest creates a pending connection from requester to recipient
func (s *RelationshipService) SendRequest(ctx context.Context, requesterID, recipientID string) (*models.Connection, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return nil, apperrors.NewValidationError("recipient_id", "recipient_id is required")
	}
	if requesterID == recipientID {
		return nil, apperrors.ErrSelfConnection
	}

	exists, err := s.profiles.Exists(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewNotFoundError("recipient profile not found")
	}

	if _, err := ensureProfile(ctx, s.profiles, requesterID, s.now); err != nil {
		return nil, err
	}

	// Friendly pre-check; the unique pair index settles concurrent requests
	existing, err := s.connections.FindBetween(ctx, requesterID, recipientID)
	if err != nil && !errors.Is(err, apperrors.ErrConnectionNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.ErrConnectionExists
	}

	conn := &models.Connection{
		ID:              uuid.New().String(),
		UserID:          requesterID,
		ConnectedUserID: recipientID,
		Status:          models.StatusPending,
		CreatedAt:       s.now(),
	}
	if err := s.connections.Create(ctx, conn); err != nil {
		return nil, err
	}

	metrics.ConnectionTransitions.WithLabelValues("requested").Inc()
	log.Info().
		Str("connection_id", conn.ID).
		Str("requester_id", requesterID).
		Str("recipient_id", recipientID).
		Msg("Connection request sent")

	relatedID := requesterID
	s.notify(ctx, &models.Notification{
		UserID:    recipientID,
		Type:      models.NotificationConnectionRequest,
		Title:     "Nouvelle demande de connexion",
		Message:   fmt.Sprintf("%s souhaite rejoindre votre réseau", s.displayName(ctx, requesterID)),
		RelatedID: &relatedID,
	})
	s.publishChange(ctx, conn)

	return conn, nil
}

// AcceptRequest moves a pending request addressed to actor to accepted
func (s *RelationshipService) AcceptRequest(ctx context.Context, actorID, connectionID string) (*models.Connection, error) {
	conn, err := s.transition(ctx, actorID, connectionID, models.StatusAccepted)
	if err != nil {
		return nil, err
	}

	metrics.ConnectionTransitions.WithLabelValues("accepted").Inc()
	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", actorID).
		Msg("Connection request accepted")

	relatedID := actorID
	s.notify(ctx, &models.Notification{
		UserID:    conn.UserID,
		Type:      models.NotificationConnectionAccepted,
		Title:     "Connexion acceptée",
		Message:   fmt.Sprintf("%s a accepté votre demande de connexion", s.firstName(ctx, actorID)),
		RelatedID: &relatedID,
	})
	s.publishChange(ctx, conn)
	s.notifier.PublishBadges(ctx, actorID)

	return conn, nil
}

// DeclineRequest moves a pending request addressed to actor to declined
func (s *RelationshipService) DeclineRequest(ctx context.Context, actorID, connectionID string) (*models.Connection, error) {
	conn, err := s.transition(ctx, actorID, connectionID, models.StatusDeclined)
	if err != nil {
		return nil, err
	}

	metrics.ConnectionTransitions.WithLabelValues("declined").Inc()
	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", actorID).
		Msg("Connection request declined")

	s.publishChange(ctx, conn)
	s.notifier.PublishBadges(ctx, actorID)

	return conn, nil
}

// transition runs the compare-and-swap update and, when it matches nothing,
// works out which guard rejected it
func (s *RelationshipService) transition(ctx context.Context, actorID, connectionID string, status models.ConnectionStatus) (*models.Connection, error) {
	conn, err := s.connections.Transition(ctx, connectionID, actorID, status)
	if err == nil {
		return conn, nil
	}
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		return nil, err
	}

	current, getErr := s.connections.GetByID(ctx, connectionID)
	if getErr != nil {
		return nil, getErr
	}
	if current.ConnectedUserID != actorID {
		return nil, apperrors.NewForbiddenError("only the recipient can answer a connection request")
	}
	return nil, apperrors.ErrInvalidTransition
}

func (s *RelationshipService) notify(ctx context.Context, n *models.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Error().Err(err).Str("user_id", n.UserID).Str("type", n.Type).Msg("Failed to create notification")
	}
}

func (s *RelationshipService) publishChange(ctx context.Context, conn *models.Connection) {
	event := realtime.NewEvent(realtime.TypeConnection, conn, conn.UserID, conn.ConnectedUserID)
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("connection_id", conn.ID).Msg("Failed to publish connection change")
	}
}

func (s *RelationshipService) firstName(ctx context.Context, userID string) string {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil || strings.TrimSpace(profile.FirstName) == "" {
		return anonymousName
	}
	return profile.FirstName
}

func (s *RelationshipService) displayName(ctx context.Context, userID string) string {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil || profile.FullName() == "" {
		return anonymousName
	}
	return profile.FullName()
}

// Lists returns the received, sent and accepted connections of the viewer,
// optionally filtered on the counterpart's name or company
func (s *RelationshipService) Lists(ctx context.Context, viewerID, search string) (*models.ConnectionLists, error) {
	var received, sent, accepted []models.Connection

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		received, err = s.connections.ListReceived(gctx, viewerID)
		return err
	})
	g.Go(func() error {
		var err error
		sent, err = s.connections.ListSent(gctx, viewerID)
		return err
	})
	g.Go(func() error {
		var err error
		accepted, err = s.connections.ListAccepted(gctx, viewerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(received)+len(sent)+len(accepted))
	for _, group := range [][]models.Connection{received, sent, accepted} {
		for i := range group {
			ids = append(ids, group[i].OtherUserID(viewerID))
		}
	}
	summaries, err := s.profiles.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	search = strings.TrimSpace(search)
	return &models.ConnectionLists{
		Received: connectionItems(received, viewerID, summaries, search),
		Sent:     connectionItems(sent, viewerID, summaries, search),
		Accepted: connectionItems(accepted, viewerID, summaries, search),
	}, nil
}

// connectionItems resolves the counterpart of each edge, keeping each
// counterpart once and dropping those not matching search
func connectionItems(conns []models.Connection, viewerID string, summaries map[string]models.ProfileSummary, search string) []models.ConnectionItem {
	items := make([]models.ConnectionItem, 0, len(conns))
	seen := make(map[string]struct{}, len(conns))
	for _, c := range conns {
		other := c.OtherUserID(viewerID)
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}

		item := models.ConnectionItem{Connection: c, OtherUserID: other}
		if summary, ok := summaries[other]; ok {
			item.Profile = &summary
		}
		if search != "" && (item.Profile == nil || !item.Profile.Matches(search)) {
			continue
		}
		items = append(items, item)
	}
	return items
}

// PendingCount returns the number of requests waiting for the user's answer
func (s *RelationshipService) PendingCount(ctx context.Context, userID string) (int, error) {
	return s.connections.CountPending(ctx, userID)
}

// RelationBetween returns the relation of the viewer to another user
func (s *RelationshipService) RelationBetween(ctx context.Context, viewerID, otherID string) (models.RelationStatus, error) {
	return relationBetween(ctx, s.connections, viewerID, otherID)
}

func relationBetween(ctx context.Context, connections ConnectionStore, viewerID, otherID string) (models.RelationStatus, error) {
	conn, err := connections.FindBetween(ctx, viewerID, otherID)
	if err != nil {
		if errors.Is(err, apperrors.ErrConnectionNotFound) {
			return models.NoRelation, nil
		}
		return models.NoRelation, err
	}
	return models.RelationFor(conn, viewerID), nil
}

// relationMap returns the viewer's relation to every user they share a connection with
func relationMap(ctx context.Context, connections ConnectionStore, viewerID string) (map[string]models.RelationStatus, error) {
	conns, err := connections.ListForUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.RelationStatus, len(conns))
	for i := range conns {
		out[conns[i].OtherUserID(viewerID)] = models.RelationFor(&conns[i], viewerID)
	}
	return out, nil
}
