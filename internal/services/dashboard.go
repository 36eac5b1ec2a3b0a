package services

import (
	"context"
	"time"

	"entrepreneur-connect-backend/internal/models"

	"golang.org/x/sync/errgroup"
)

// recentLimit is the number of items in each recent list of the dashboard
const recentLimit = 3

// DashboardService assembles the landing page summary
type DashboardService struct {
	profiles      ProfileStore
	connections   ConnectionStore
	messages      MessageStore
	events        EventStore
	notifications NotificationStore
	now           func() time.Time
	loc           *time.Location
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	profiles ProfileStore,
	connections ConnectionStore,
	messages MessageStore,
	events EventStore,
	notifications NotificationStore,
	loc *time.Location,
) *DashboardService {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardService{
		profiles:      profiles,
		connections:   connections,
		messages:      messages,
		events:        events,
		notifications: notifications,
		now:           time.Now,
		loc:           loc,
	}
}

// Dashboard returns the user's counters and most recent activity
func (s *DashboardService) Dashboard(ctx context.Context, userID string) (*models.Dashboard, error) {
	var (
		stats    models.DashboardStats
		accepted []models.Connection
		received []models.Message
		upcoming []models.Event
	)
	today := s.now().In(s.loc).Format(models.DateLayout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accepted, err = s.connections.ListAccepted(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		stats.MessagesReceived, err = s.messages.CountReceived(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		received, err = s.messages.RecentReceived(gctx, userID, recentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		stats.EventsRegistered, err = s.events.CountRegistrations(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		upcoming, err = s.events.Upcoming(gctx, userID, today, recentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		stats.ProfileViews, err = s.profiles.CountViews(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		stats.UnreadNotifications, err = s.notifications.CountUnread(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		stats.PendingRequests, err = s.connections.CountPending(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.Connections = len(accepted)
	if len(accepted) > recentLimit {
		accepted = accepted[:recentLimit]
	}

	ids := make([]string, 0, len(accepted)+len(received)+len(upcoming))
	for i := range accepted {
		ids = append(ids, accepted[i].OtherUserID(userID))
	}
	for _, m := range received {
		ids = append(ids, m.SenderID)
	}
	for _, e := range upcoming {
		ids = append(ids, e.OrganizerID)
	}
	summaries, err := s.profiles.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	dashboard := &models.Dashboard{
		Stats:             stats,
		RecentConnections: connectionItems(accepted, userID, summaries, ""),
		RecentMessages:    make([]models.MessageItem, 0, len(received)),
		UpcomingEvents:    make([]models.EventItem, 0, len(upcoming)),
	}
	for _, m := range received {
		item := models.MessageItem{Message: m}
		if summary, ok := summaries[m.SenderID]; ok {
			item.Sender = &summary
		}
		dashboard.RecentMessages = append(dashboard.RecentMessages, item)
	}

	eventIDs := make([]string, 0, len(upcoming))
	for _, e := range upcoming {
		eventIDs = append(eventIDs, e.ID)
	}
	counts, err := s.events.CountParticipants(ctx, eventIDs)
	if err != nil {
		return nil, err
	}
	for _, e := range upcoming {
		item := models.EventItem{
			Event:            e,
			ParticipantCount: counts[e.ID],
			IsRegistered:     true,
			IsOrganizer:      e.OrganizerID == userID,
		}
		if summary, ok := summaries[e.OrganizerID]; ok {
			item.Organizer = &summary
		}
		dashboard.UpcomingEvents = append(dashboard.UpcomingEvents, item)
	}

	return dashboard, nil
}
