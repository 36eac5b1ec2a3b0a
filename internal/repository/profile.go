package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"entrepreneur-connect-backend/internal/apperrors"
	"entrepreneur-connect-backend/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var profileColumnList = []string{
	"id", "first_name", "last_name", "company", "position", "bio", "location", "city",
	"latitude", "longitude", "sector", "skills", "looking_for", "avatar_url", "cover_url",
	"is_verified", "push_token", "created_at", "updated_at",
}

var profileColumns = strings.Join(profileColumnList, ", ")

// ProfileRepository handles database operations for profiles
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Company, &p.Position, &p.Bio, &p.Location, &p.City,
		&p.Latitude, &p.Longitude, &p.Sector, &p.Skills, &p.LookingFor, &p.AvatarURL, &p.CoverURL,
		&p.IsVerified, &p.PushToken, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get retrieves a profile by user ID
func (r *ProfileRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// CreateDefault inserts a profile unless one already exists for the user
func (r *ProfileRepository) CreateDefault(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (id, first_name, last_name, company, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.FirstName, p.LastName, p.Company, p.Position, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// Update writes every editable column of the profile
func (r *ProfileRepository) Update(ctx context.Context, p *models.Profile) error {
	query := `
		UPDATE profiles SET
			first_name = $2, last_name = $3, company = $4, position = $5, bio = $6,
			location = $7, city = $8, latitude = $9, longitude = $10, sector = $11,
			skills = $12, looking_for = $13, updated_at = $14
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		p.ID, p.FirstName, p.LastName, p.Company, p.Position, p.Bio,
		p.Location, p.City, p.Latitude, p.Longitude, p.Sector,
		p.Skills, p.LookingFor, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Exists checks whether a profile exists
func (r *ProfileRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM profiles WHERE id = $1)`
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check profile existence: %w", err)
	}
	return exists, nil
}

// Summaries loads the list cards of the given users, keyed by ID
func (r *ProfileRepository) Summaries(ctx context.Context, ids []string) (map[string]models.ProfileSummary, error) {
	out := make(map[string]models.ProfileSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `
		SELECT id, first_name, last_name, company, position, city, sector, avatar_url, is_verified
		FROM profiles
		WHERE id = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.ProfileSummary
		if err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Company, &s.Position,
			&s.City, &s.Sector, &s.AvatarURL, &s.IsVerified); err != nil {
			return nil, fmt.Errorf("failed to scan profile summary: %w", err)
		}
		out[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profile summaries: %w", err)
	}
	return out, nil
}

// Discover lists every profile except the viewer's, newest first
func (r *ProfileRepository) Discover(ctx context.Context, viewerID string, filter models.DiscoverFilter) ([]*models.Profile, error) {
	q := psql.Select(profileColumnList...).
		From("profiles").
		Where(sq.NotEq{"id": viewerID}).
		OrderBy("created_at DESC")

	if filter.Sector != "" {
		q = q.Where(sq.Eq{"sector": filter.Sector})
	}
	if filter.City != "" {
		q = q.Where(sq.ILike{"city": strings.TrimSpace(filter.City)})
	}
	if strings.TrimSpace(filter.Query) != "" {
		pattern := containsPattern(filter.Query)
		q = q.Where(sq.Or{
			sq.ILike{"first_name": pattern},
			sq.ILike{"last_name": pattern},
			sq.Expr("(first_name || ' ' || last_name) ILIKE ?", pattern),
			sq.ILike{"company": pattern},
			sq.ILike{"position": pattern},
			sq.ILike{"bio": pattern},
			sq.Expr("array_to_string(skills, ' ') ILIKE ?", pattern),
		})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build discover query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to discover profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, nil
}

// SetPushToken stores or clears the device token of a user
func (r *ProfileRepository) SetPushToken(ctx context.Context, id string, token *string) error {
	query := `UPDATE profiles SET push_token = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id, token)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetAvatarURL updates the avatar image of a user
func (r *ProfileRepository) SetAvatarURL(ctx context.Context, id, url string) error {
	query := `UPDATE profiles SET avatar_url = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, url); err != nil {
		return fmt.Errorf("failed to update avatar url: %w", err)
	}
	return nil
}

// SetCoverURL updates the cover image of a user
func (r *ProfileRepository) SetCoverURL(ctx context.Context, id, url string) error {
	query := `UPDATE profiles SET cover_url = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, url); err != nil {
		return fmt.Errorf("failed to update cover url: %w", err)
	}
	return nil
}

// RecordView stores that viewerID opened the profile of profileID
func (r *ProfileRepository) RecordView(ctx context.Context, profileID, viewerID string) error {
	query := `INSERT INTO profile_views (id, profile_user_id, viewer_id, viewed_at) VALUES ($1, $2, $3, NOW())`
	if _, err := r.db.Exec(ctx, query, uuid.New().String(), profileID, viewerID); err != nil {
		return fmt.Errorf("failed to record profile view: %w", err)
	}
	return nil
}

// CountViews returns how many times a profile was viewed
func (r *ProfileRepository) CountViews(ctx context.Context, profileID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM profile_views WHERE profile_user_id = $1`
	if err := r.db.QueryRow(ctx, query, profileID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count profile views: %w", err)
	}
	return count, nil
}
