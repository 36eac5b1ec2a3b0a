package models

import (
	"fmt"
	"time"
)

// Layouts of the event date and time columns
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ParticipantStatus is the state of an event registration
type ParticipantStatus string

// Participant statuses; all three count towards capacity
const (
	ParticipantRegistered ParticipantStatus = "registered"
	ParticipantConfirmed  ParticipantStatus = "confirmed"
	ParticipantAttended   ParticipantStatus = "attended"
)

// Event is a meetup organised by a user
type Event struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartDate       string    `json:"start_date"`
	StartTime       string    `json:"start_time"`
	EndDate         *string   `json:"end_date,omitempty"`
	EndTime         *string   `json:"end_time,omitempty"`
	Location        string    `json:"location"`
	Category        string    `json:"category"`
	Price           float64   `json:"price"`
	MaxParticipants *int      `json:"max_participants,omitempty"`
	OrganizerID     string    `json:"organizer_id"`
	CoverURL        string    `json:"cover_url"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StartsAt combines the start date and time in loc
func (e *Event) StartsAt(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, e.StartDate+" "+e.StartTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid event start: %w", err)
	}
	return t, nil
}

// IsFull reports whether count participants exhaust the capacity
func (e *Event) IsFull(count int) bool {
	return e.MaxParticipants != nil && count >= *e.MaxParticipants
}

// EventItem is an event with the viewer-dependent fields filled in
type EventItem struct {
	Event
	ParticipantCount int             `json:"participant_count"`
	IsRegistered     bool            `json:"is_registered"`
	IsOrganizer      bool            `json:"is_organizer"`
	Organizer        *ProfileSummary `json:"organizer,omitempty"`
}

// EventParticipant links a user to an event
type EventParticipant struct {
	ID               string            `json:"id"`
	EventID          string            `json:"event_id"`
	UserID           string            `json:"user_id"`
	Status           ParticipantStatus `json:"status"`
	RegistrationDate time.Time         `json:"registration_date"`
	Profile          *ProfileSummary   `json:"profile,omitempty"`
}

// EventInput holds the fields submitted when creating an event
type EventInput struct {
	Title           string   `json:"title" validate:"required,max=200"`
	Description     string   `json:"description" validate:"max=5000"`
	StartDate       string   `json:"start_date" validate:"required"`
	StartTime       string   `json:"start_time" validate:"required"`
	EndDate         string   `json:"end_date"`
	EndTime         string   `json:"end_time"`
	Location        string   `json:"location" validate:"required,max=300"`
	Category        string   `json:"category" validate:"max=100"`
	Price           *float64 `json:"price" validate:"omitempty,gte=0"`
	MaxParticipants *int     `json:"max_participants" validate:"omitempty,gt=0"`
}

// Date presets accepted by the event listing
const (
	DateToday     = "today"
	DateTomorrow  = "tomorrow"
	DateThisWeek  = "this_week"
	DateNextWeek  = "next_week"
	DateThisMonth = "this_month"
	DateUpcoming  = "upcoming"
)

// EventFilter narrows the event listing
type EventFilter struct {
	Category string
	Date     string
	Query    string
}

// DateRange bounds start_date, both ends inclusive; empty means open
type DateRange struct {
	From string
	To   string
}
