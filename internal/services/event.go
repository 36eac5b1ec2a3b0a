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
	"github.com/gosimple/slug"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

const (
	slugAlphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
	slugSuffixSize  = 6
	maxSlugAttempts = 5
	maxSlugBase     = 60
)

// EventService handles the event lifecycle
type EventService struct {
	events    EventStore
	profiles  ProfileStore
	publisher Publisher
	now       func() time.Time
	loc       *time.Location
}

// NewEventService creates a new event service; dates are interpreted in loc
func NewEventService(events EventStore, profiles ProfileStore, publisher Publisher, loc *time.Location) *EventService {
	if loc == nil {
		loc = time.Local
	}
	return &EventService{
		events:    events,
		profiles:  profiles,
		publisher: publisher,
		now:       time.Now,
		loc:       loc,
	}
}

// CreateEvent creates an event and registers its organizer as confirmed
func (s *EventService) CreateEvent(ctx context.Context, organizerID string, in models.EventInput) (*models.EventItem, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	in.Category = strings.TrimSpace(in.Category)
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.StartTime = strings.TrimSpace(in.StartTime)
	in.EndDate = strings.TrimSpace(in.EndDate)
	in.EndTime = strings.TrimSpace(in.EndTime)

	if err := validateStruct(in); err != nil {
		return nil, err
	}

	start, err := s.parseDateTime("start", in.StartDate, in.StartTime)
	if err != nil {
		return nil, err
	}

	var endDate, endTime *string
	if in.EndDate != "" {
		if _, err := time.ParseInLocation(models.DateLayout, in.EndDate, s.loc); err != nil {
			return nil, apperrors.NewValidationError("end_date", "end_date must be formatted YYYY-MM-DD")
		}
		endDate = &in.EndDate
	}
	if in.EndTime != "" {
		if _, err := time.Parse(models.TimeLayout, in.EndTime); err != nil {
			return nil, apperrors.NewValidationError("end_time", "end_time must be formatted HH:MM")
		}
		endTime = &in.EndTime
	}
	if endDate != nil {
		endClock := in.StartTime
		if endTime != nil {
			endClock = in.EndTime
		}
		end, err := s.parseDateTime("end", in.EndDate, endClock)
		if err != nil {
			return nil, err
		}
		if end.Before(start) {
			return nil, apperrors.NewValidationError("end_date", "the event cannot end before it starts")
		}
	}

	price := 0.0
	if in.Price != nil {
		price = *in.Price
	}

	if _, err := ensureProfile(ctx, s.profiles, organizerID, s.now); err != nil {
		return nil, err
	}

	now := s.now()
	event := &models.Event{
		ID:              uuid.New().String(),
		Title:           in.Title,
		Description:     in.Description,
		StartDate:       in.StartDate,
		StartTime:       in.StartTime,
		EndDate:         endDate,
		EndTime:         endTime,
		Location:        in.Location,
		Category:        in.Category,
		Price:           price,
		MaxParticipants: in.MaxParticipants,
		OrganizerID:     organizerID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	organizer := &models.EventParticipant{
		ID:               uuid.New().String(),
		EventID:          event.ID,
		UserID:           organizerID,
		Status:           models.ParticipantConfirmed,
		RegistrationDate: now,
	}

	// Retry with a fresh suffix when the slug is already taken
	for attempt := 1; ; attempt++ {
		event.Slug, err = generateSlug(event.Title)
		if err != nil {
			return nil, err
		}
		err = s.events.Create(ctx, event, organizer)
		if err == nil {
			break
		}
		if !errors.Is(err, apperrors.ErrConflict) || attempt >= maxSlugAttempts {
			return nil, err
		}
		log.Warn().Str("slug", event.Slug).Int("attempt", attempt).Msg("Event slug collision, retrying")
	}

	log.Info().
		Str("event_id", event.ID).
		Str("slug", event.Slug).
		Str("organizer_id", organizerID).
		Msg("Event created")

	s.publishChanged(ctx, event.ID)

	item := &models.EventItem{
		Event:            *event,
		ParticipantCount: 1,
		IsRegistered:     true,
		IsOrganizer:      true,
	}
	if summaries, err := s.profiles.Summaries(ctx, []string{organizerID}); err == nil {
		if summary, ok := summaries[organizerID]; ok {
			item.Organizer = &summary
		}
	}
	return item, nil
}

func (s *EventService) parseDateTime(field, date, clock string) (time.Time, error) {
	if _, err := time.ParseInLocation(models.DateLayout, date, s.loc); err != nil {
		return time.Time{}, apperrors.NewValidationError(field+"_date", field+"_date must be formatted YYYY-MM-DD")
	}
	if _, err := time.Parse(models.TimeLayout, clock); err != nil {
		return time.Time{}, apperrors.NewValidationError(field+"_time", field+"_time must be formatted HH:MM")
	}
	return time.ParseInLocation(models.DateLayout+" "+models.TimeLayout, date+" "+clock, s.loc)
}

// generateSlug builds "<title-slug>-<random suffix>"
func generateSlug(title string) (string, error) {
	base := slug.Make(title)
	if len(base) > maxSlugBase {
		base = strings.Trim(base[:maxSlugBase], "-")
	}
	if base == "" {
		base = "event"
	}
	suffix, err := gonanoid.Generate(slugAlphabet, slugSuffixSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate slug: %w", err)
	}
	return base + "-" + suffix, nil
}

// RegisterForEvent registers the user for the event
func (s *EventService) RegisterForEvent(ctx context.Context, eventID, userID string) (*models.EventParticipant, error) {
	if _, err := ensureProfile(ctx, s.profiles, userID, s.now); err != nil {
		return nil, err
	}

	p := &models.EventParticipant{
		ID:               uuid.New().String(),
		EventID:          eventID,
		UserID:           userID,
		Status:           models.ParticipantRegistered,
		RegistrationDate: s.now(),
	}
	if err := s.events.Register(ctx, p); err != nil {
		return nil, err
	}

	metrics.EventRegistrations.WithLabelValues("register").Inc()
	log.Info().Str("event_id", eventID).Str("user_id", userID).Msg("Registered for event")

	s.publishChanged(ctx, eventID)
	return p, nil
}

// UnregisterFromEvent removes the user's registration; a missing one is not an error
func (s *EventService) UnregisterFromEvent(ctx context.Context, eventID, userID string) error {
	removed, err := s.events.Unregister(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	metrics.EventRegistrations.WithLabelValues("unregister").Inc()
	log.Info().Str("event_id", eventID).Str("user_id", userID).Msg("Unregistered from event")

	s.publishChanged(ctx, eventID)
	return nil
}

// ListEvents returns the events matching the filter, soonest first
func (s *EventService) ListEvents(ctx context.Context, viewerID string, filter models.EventFilter) ([]models.EventItem, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Query = strings.TrimSpace(filter.Query)

	dates, err := DateRangeFor(filter.Date, s.now().In(s.loc))
	if err != nil {
		return nil, err
	}

	events, err := s.events.List(ctx, filter, dates)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, viewerID, events)
}

// GetEvent returns one event as seen by the viewer
func (s *EventService) GetEvent(ctx context.Context, viewerID, eventID string) (*models.EventItem, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.decorateOne(ctx, viewerID, event)
}

// GetEventBySlug returns the event behind a share slug as seen by the viewer
func (s *EventService) GetEventBySlug(ctx context.Context, viewerID, eventSlug string) (*models.EventItem, error) {
	event, err := s.events.GetBySlug(ctx, eventSlug)
	if err != nil {
		return nil, err
	}
	return s.decorateOne(ctx, viewerID, event)
}

func (s *EventService) decorateOne(ctx context.Context, viewerID string, event *models.Event) (*models.EventItem, error) {
	items, err := s.decorate(ctx, viewerID, []models.Event{*event})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// decorate fills in the participant counts, the viewer flags and the organizer cards
func (s *EventService) decorate(ctx context.Context, viewerID string, events []models.Event) ([]models.EventItem, error) {
	items := make([]models.EventItem, 0, len(events))
	if len(events) == 0 {
		return items, nil
	}

	ids := make([]string, 0, len(events))
	organizerIDs := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
		organizerIDs = append(organizerIDs, e.OrganizerID)
	}

	counts, err := s.events.CountParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}
	registered, err := s.events.RegisteredEventIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	organizers, err := s.profiles.Summaries(ctx, organizerIDs)
	if err != nil {
		return nil, err
	}

	for _, e := range events {
		item := models.EventItem{
			Event:            e,
			ParticipantCount: counts[e.ID],
			IsRegistered:     registered[e.ID],
			IsOrganizer:      e.OrganizerID == viewerID,
		}
		if summary, ok := organizers[e.OrganizerID]; ok {
			item.Organizer = &summary
		}
		items = append(items, item)
	}
	return items, nil
}

// Participants lists the participants of an event with their profile cards
func (s *EventService) Participants(ctx context.Context, eventID string) ([]models.EventParticipant, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	participants, err := s.events.Participants(ctx, eventID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	summaries, err := s.profiles.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.EventParticipant, 0, len(participants))
	for _, p := range participants {
		if summary, ok := summaries[p.UserID]; ok {
			p.Profile = &summary
		}
		out = append(out, p)
	}
	return out, nil
}

// Categories returns the distinct categories in use
func (s *EventService) Categories(ctx context.Context) ([]string, error) {
	return s.events.Categories(ctx)
}

// DeleteEvent deletes an event; only its organizer may do so
func (s *EventService) DeleteEvent(ctx context.Context, actorID, eventID string) error {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.OrganizerID != actorID {
		return apperrors.NewForbiddenError("only the organizer can delete this event")
	}

	if err := s.events.Delete(ctx, eventID); err != nil {
		return err
	}

	log.Info().Str("event_id", eventID).Str("user_id", actorID).Msg("Event deleted")

	s.publishChanged(ctx, eventID)
	return nil
}

func (s *EventService) publishChanged(ctx context.Context, eventID string) {
	data := map[string]string{"event_id": eventID}
	if err := s.publisher.Publish(ctx, realtime.NewEvent(realtime.TypeEventsChanged, data)); err != nil {
		log.Warn().Err(err).Str("event_id", eventID).Msg("Failed to publish event change")
	}
}

// DateRangeFor turns a date preset into the start_date bounds relative to now.
// An empty preset or "all" means no bound.
func DateRangeFor(preset string, now time.Time) (models.DateRange, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := func(t time.Time) string { return t.Format(models.DateLayout) }

	switch strings.TrimSpace(preset) {
	case "", "all":
		return models.DateRange{}, nil
	case models.DateToday:
		return models.DateRange{From: day(today), To: day(today)}, nil
	case models.DateTomorrow:
		tomorrow := today.AddDate(0, 0, 1)
		return models.DateRange{From: day(tomorrow), To: day(tomorrow)}, nil
	case models.DateThisWeek:
		return models.DateRange{From: day(today), To: day(today.AddDate(0, 0, 7))}, nil
	case models.DateNextWeek:
		// Next week starts on the coming Sunday
		start := today.AddDate(0, 0, 7-int(today.Weekday()))
		return models.DateRange{From: day(start), To: day(start.AddDate(0, 0, 7))}, nil
	case models.DateThisMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		last := first.AddDate(0, 1, -1)
		return models.DateRange{From: day(first), To: day(last)}, nil
	case models.DateUpcoming:
		return models.DateRange{From: day(today)}, nil
	}
	return models.DateRange{}, apperrors.NewValidationError("date", fmt.Sprintf("unknown date filter %q", preset))
}
