package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"entrepreneur-connect-backend/internal/apperrors"
	"entrepreneur-connect-backend/internal/database"
	"entrepreneur-connect-backend/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// participants whose rows count towards capacity
const countedStatuses = `('registered', 'confirmed', 'attended')`

var eventColumnList = []string{
	"id", "slug", "title", "description",
	"start_date::text", "to_char(start_time, 'HH24:MI')",
	"end_date::text", "to_char(end_time, 'HH24:MI')",
	"location", "category", "price::float8", "max_participants",
	"organizer_id", "cover_url", "created_at", "updated_at",
}

var eventColumns = strings.Join(eventColumnList, ", ")

// EventRepository handles database operations for events and participants
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(
		&e.ID, &e.Slug, &e.Title, &e.Description,
		&e.StartDate, &e.StartTime, &e.EndDate, &e.EndTime,
		&e.Location, &e.Category, &e.Price, &e.MaxParticipants,
		&e.OrganizerID, &e.CoverURL, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts the event and its organizer participant in one transaction
func (r *EventRepository) Create(ctx context.Context, e *models.Event, organizer *models.EventParticipant) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO events (id, slug, title, description, start_date, start_time, end_date, end_time,
			location, category, price, max_participants, organizer_id, cover_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
	`
	_, err = tx.Exec(ctx, query,
		e.ID, e.Slug, e.Title, e.Description, e.StartDate, e.StartTime, e.EndDate, e.EndTime,
		e.Location, e.Category, e.Price, e.MaxParticipants, e.OrganizerID, e.CoverURL, e.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, database.EventSlugConstraint) {
			return apperrors.NewConflictError("event slug already taken")
		}
		return fmt.Errorf("failed to create event: %w", err)
	}

	if err := insertParticipant(ctx, tx, organizer); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit event: %w", err)
	}
	return nil
}

func insertParticipant(ctx context.Context, tx pgx.Tx, p *models.EventParticipant) error {
	query := `
		INSERT INTO event_participants (id, event_id, user_id, status, registration_date)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := tx.Exec(ctx, query, p.ID, p.EventID, p.UserID, p.Status, p.RegistrationDate)
	if err != nil {
		if database.IsUniqueViolation(err, database.ParticipantConstraint) {
			return apperrors.ErrAlreadyRegistered
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	return r.getOne(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
}

// GetBySlug retrieves an event by its share slug
func (r *EventRepository) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	return r.getOne(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = $1`, slug)
}

func (r *EventRepository) getOne(ctx context.Context, query string, arg string) (*models.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// List returns events matching the filter, soonest first
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter, dates models.DateRange) ([]models.Event, error) {
	q := psql.Select(eventColumnList...).
		From("events").
		OrderBy("start_date ASC", "start_time ASC", "created_at ASC")

	if filter.Category != "" {
		q = q.Where(sq.Eq{"category": filter.Category})
	}
	if dates.From != "" {
		q = q.Where(sq.GtOrEq{"start_date": dates.From})
	}
	if dates.To != "" {
		q = q.Where(sq.LtOrEq{"start_date": dates.To})
	}
	if strings.TrimSpace(filter.Query) != "" {
		pattern := containsPattern(filter.Query)
		q = q.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
			sq.ILike{"location": pattern},
		})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build event query: %w", err)
	}
	return r.list(ctx, query, args...)
}

func (r *EventRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Event, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return out, nil
}

// Upcoming returns the events the user takes part in starting on or after from
func (r *EventRepository) Upcoming(ctx context.Context, userID, from string, limit int) ([]models.Event, error) {
	query := `
		SELECT ` + prefixed("e.", eventColumnList) + `
		FROM events e
		JOIN event_participants p ON p.event_id = e.id
		WHERE p.user_id = $1 AND e.start_date >= $2
		ORDER BY e.start_date ASC, e.start_time ASC
		LIMIT $3
	`
	return r.list(ctx, query, userID, from, limit)
}

// Delete removes an event and, by cascade, its participants
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

// SetCoverURL updates the cover image of an event
func (r *EventRepository) SetCoverURL(ctx context.Context, id, url string) error {
	result, err := r.db.Exec(ctx, `UPDATE events SET cover_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("failed to update event cover: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

// Register adds a participant. The event row is locked so that the capacity
// check and the insert cannot interleave with another registration.
func (r *EventRepository) Register(ctx context.Context, p *models.EventParticipant) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var maxParticipants *int
	err = tx.QueryRow(ctx, `SELECT max_participants FROM events WHERE id = $1 FOR UPDATE`, p.EventID).Scan(&maxParticipants)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrEventNotFound
		}
		return fmt.Errorf("failed to lock event: %w", err)
	}

	var registered bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM event_participants WHERE event_id = $1 AND user_id = $2)`,
		p.EventID, p.UserID,
	).Scan(&registered)
	if err != nil {
		return fmt.Errorf("failed to check registration: %w", err)
	}
	if registered {
		return apperrors.ErrAlreadyRegistered
	}

	if maxParticipants != nil {
		var count int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM event_participants WHERE event_id = $1 AND status IN `+countedStatuses,
			p.EventID,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to count participants: %w", err)
		}
		if count >= *maxParticipants {
			return apperrors.ErrEventFull
		}
	}

	if err := insertParticipant(ctx, tx, p); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit registration: %w", err)
	}
	return nil
}

// Unregister deletes the participant row; a missing row is not an error
func (r *EventRepository) Unregister(ctx context.Context, eventID, userID string) (bool, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM event_participants WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to unregister: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Participants lists the participants of an event in registration order
func (r *EventRepository) Participants(ctx context.Context, eventID string) ([]models.EventParticipant, error) {
	query := `
		SELECT id, event_id, user_id, status, registration_date
		FROM event_participants
		WHERE event_id = $1
		ORDER BY registration_date ASC
	`
	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var out []models.EventParticipant
	for rows.Next() {
		var p models.EventParticipant
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserID, &p.Status, &p.RegistrationDate); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return out, nil
}

// CountParticipants returns the participant count of each event, keyed by ID
func (r *EventRepository) CountParticipants(ctx context.Context, eventIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT event_id, COUNT(*)
		FROM event_participants
		WHERE event_id = ANY($1) AND status IN ` + countedStatuses + `
		GROUP BY event_id
	`
	rows, err := r.db.Query(ctx, query, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("failed to scan participant count: %w", err)
		}
		out[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participant counts: %w", err)
	}
	return out, nil
}

// RegisteredEventIDs reports which of the events the user takes part in
func (r *EventRepository) RegisteredEventIDs(ctx context.Context, userID string, eventIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(eventIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT event_id FROM event_participants WHERE user_id = $1 AND event_id = ANY($2)`,
		userID, eventIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registrations: %w", err)
	}
	return out, nil
}

// CountRegistrations returns the number of events the user takes part in
func (r *EventRepository) CountRegistrations(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM event_participants WHERE user_id = $1 AND status IN ` + countedStatuses
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

// Categories returns the distinct non-empty categories in use
func (r *EventRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT category FROM events WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

// prefixed qualifies the event columns with a table alias
func prefixed(alias string, columns []string) string {
	out := make([]string, len(columns))
	for i, c := range columns {
		if strings.HasPrefix(c, "to_char(") {
			out[i] = "to_char(" + alias + strings.TrimPrefix(c, "to_char(")
			continue
		}
		out[i] = alias + c
	}
	return strings.Join(out, ", ")
}
