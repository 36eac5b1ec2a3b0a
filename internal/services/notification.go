package services

import (
	"context"
	"strings"
	"time"

	"entrepreneur-connect-backend/internal/apperrors"
	"entrepreneur-connect-backend/internal/models"
	"entrepreneur-connect-backend/internal/push"
	"entrepreneur-connect-backend/internal/realtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Paging of the notification list
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NotificationService stores notifications and fans them out to clients
type NotificationService struct {
	notifications NotificationStore
	connections   ConnectionStore
	messages      MessageStore
	profiles      ProfileStore
	publisher     Publisher
	push          push.Dispatcher
	now           func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	notifications NotificationStore,
	connections ConnectionStore,
	messages MessageStore,
	profiles ProfileStore,
	publisher Publisher,
	dispatcher push.Dispatcher,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		connections:   connections,
		messages:      messages,
		profiles:      profiles,
		publisher:     publisher,
		push:          dispatcher,
		now:           time.Now,
	}
}

// Notify stores a notification, pushes it to the recipient's open sessions
// and to their device when one is registered
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		return err
	}

	if err := s.publisher.Publish(ctx, realtime.NewEvent(realtime.TypeNotification, n, n.UserID)); err != nil {
		log.Warn().Err(err).Str("user_id", n.UserID).Msg("Failed to publish notification")
	}
	badges := s.publishBadges(ctx, n.UserID)
	s.dispatchPush(ctx, n, badges[n.UserID])

	return nil
}

func (s *NotificationService) dispatchPush(ctx context.Context, n *models.Notification, badges *models.Badges) {
	if s.push == nil {
		return
	}
	profile, err := s.profiles.Get(ctx, n.UserID)
	if err != nil || profile.PushToken == nil || *profile.PushToken == "" {
		return
	}

	msg := push.Notification{
		DeviceToken: *profile.PushToken,
		Title:       n.Title,
		Body:        n.Message,
		Data:        map[string]string{"type": n.Type, "notification_id": n.ID},
	}
	if badges != nil {
		count := badges.Notifications + badges.PendingRequests
		msg.Badge = &count
	}
	if err := s.push.Dispatch(ctx, msg); err != nil {
		log.Error().Err(err).Str("user_id", n.UserID).Str("notification_id", n.ID).Msg("Failed to dispatch push notification")
	}
}

// List returns one page of the user's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID string, page, pageSize int) (*models.NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	items, total, err := s.notifications.List(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Notification{}
	}

	return &models.NotificationPage{
		Items:    items,
		Total:    total,
		Unread:   unread,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// MarkRead marks the given notifications of the user as read
func (s *NotificationService) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return 0, apperrors.NewValidationError("ids", "ids is required")
	}

	n, err := s.notifications.MarkRead(ctx, userID, clean)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.PublishBadges(ctx, userID)
	}
	return n, nil
}

// MarkAllRead marks every notification of the user as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.PublishBadges(ctx, userID)
	}
	return n, nil
}

// UnreadCount returns the number of unread notifications of the user
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifications.CountUnread(ctx, userID)
}

// Badges returns the navigation counters of the user
func (s *NotificationService) Badges(ctx context.Context, userID string) (*models.Badges, error) {
	var badges models.Badges

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		badges.Notifications, err = s.notifications.CountUnread(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		badges.PendingRequests, err = s.connections.CountPending(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		badges.UnreadMessages, err = s.messages.CountUnread(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &badges, nil
}

// PublishBadges pushes fresh counters to each user's open sessions
func (s *NotificationService) PublishBadges(ctx context.Context, userIDs ...string) {
	s.publishBadges(ctx, userIDs...)
}

func (s *NotificationService) publishBadges(ctx context.Context, userIDs ...string) map[string]*models.Badges {
	out := make(map[string]*models.Badges, len(userIDs))
	for _, userID := range userIDs {
		badges, err := s.Badges(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to compute badges")
			continue
		}
		out[userID] = badges
		if err := s.publisher.Publish(ctx, realtime.NewEvent(realtime.TypeBadges, badges, userID)); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to publish badges")
		}
	}
	return out
}
